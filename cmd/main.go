package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/foodschool/canteen-bot/internal/bot"
	"github.com/foodschool/canteen-bot/internal/config"
	"github.com/foodschool/canteen-bot/internal/disk"
	"github.com/foodschool/canteen-bot/internal/loaders"
	"github.com/foodschool/canteen-bot/internal/routes"
	"github.com/foodschool/canteen-bot/internal/survey"
	"github.com/foodschool/canteen-bot/internal/utils"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Warning: Error loading .env file", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	cleanup := utils.InitLogger(cfg)
	defer cleanup()

	utils.Zlog.Info("Starting application",
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.ServerPort))

	db, err := loaders.NewPostgresClient(cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		utils.Zlog.Error("Failed to create database client", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	diskClient := disk.NewClient(cfg.YandexDiskToken)
	meals := disk.NewMealSource(diskClient, cfg.DiskRootFolder,
		time.Duration(cfg.MealCacheMinutes)*time.Minute)

	sessions := survey.NewSessionStore(time.Duration(cfg.SessionTTLMinutes) * time.Minute)
	scale := survey.NewScale(cfg.ScaleMax, cfg.LowRatingThreshold, cfg.TextEntryRatings)

	tgBot, err := bot.New(cfg.TelegramToken)
	if err != nil {
		utils.Zlog.Error("Failed to create Telegram bot", zap.Error(err))
		os.Exit(1)
	}

	machine := survey.NewMachine(sessions, db, meals, tgBot, scale, disk.Now)

	botCtx, botCancel := context.WithCancel(context.Background())
	defer botCancel()

	go func() {
		if err := tgBot.Run(botCtx, machine); err != nil {
			utils.Zlog.Error("Bot update loop exited", zap.Error(err))
		}
	}()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	routes.SetupRoutes(router, db, cfg)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		utils.Zlog.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Zlog.Error("Failed to start server", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.Zlog.Info("Shutting down...")

	botCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		utils.Zlog.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	utils.Zlog.Info("Server exited")
}
