package config

import (
	"errors"
	"os"
	"strconv"
)

type Config struct {
	TelegramToken   string
	DatabaseURL     string
	YandexDiskToken string

	DiskRootFolder string
	LogLevel       string
	LogFilePath    string
	ServiceName    string
	Environment    string
	ServerPort     string

	Hostname string

	ScaleMax           int
	LowRatingThreshold int
	TextEntryRatings   bool

	SessionTTLMinutes int
	MealCacheMinutes  int
	DBMaxConns        int
}

func LoadConfig() (*Config, error) {
	telegramToken := os.Getenv("TELEGRAM_TOKEN")
	if telegramToken == "" {
		return nil, errors.New("TELEGRAM_TOKEN is required")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	diskToken := os.Getenv("YANDEX_DISK_TOKEN")
	if diskToken == "" {
		return nil, errors.New("YANDEX_DISK_TOKEN is required")
	}

	rootFolder := os.Getenv("DISK_ROOT_FOLDER")
	if rootFolder == "" {
		rootFolder = "/FoodSchool64"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	serviceName := os.Getenv("SERVICE_NAME")
	if serviceName == "" {
		serviceName = "canteen-bot"
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	scaleMax := 5
	if v := os.Getenv("RATING_SCALE_MAX"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && (parsed == 5 || parsed == 10) {
			scaleMax = parsed
		}
	}

	// Follow-up comment cutoff defaults to the scale midpoint.
	lowThreshold := 3
	if scaleMax == 10 {
		lowThreshold = 5
	}
	if v := os.Getenv("LOW_RATING_THRESHOLD"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 1 && parsed < scaleMax {
			lowThreshold = parsed
		}
	}

	textEntry := os.Getenv("TEXT_ENTRY_RATINGS") == "true"
	if scaleMax == 10 {
		// The 1-10 scale has no inline keyboard variant.
		textEntry = true
	}

	sessionTTL := 0 // 0 = sessions never expire
	if v := os.Getenv("SESSION_TTL_MINUTES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			sessionTTL = parsed
		}
	}

	mealCache := 30
	if v := os.Getenv("MEAL_CACHE_MINUTES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			mealCache = parsed
		}
	}

	dbMaxConns := 4
	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			dbMaxConns = parsed
		}
	}

	hostname, _ := os.Hostname()

	return &Config{
		TelegramToken:      telegramToken,
		DatabaseURL:        databaseURL,
		YandexDiskToken:    diskToken,
		DiskRootFolder:     rootFolder,
		LogLevel:           logLevel,
		LogFilePath:        os.Getenv("LOG_FILE_PATH"),
		ServiceName:        serviceName,
		Environment:        environment,
		ServerPort:         serverPort,
		Hostname:           hostname,
		ScaleMax:           scaleMax,
		LowRatingThreshold: lowThreshold,
		TextEntryRatings:   textEntry,
		SessionTTLMinutes:  sessionTTL,
		MealCacheMinutes:   mealCache,
		DBMaxConns:         dbMaxConns,
	}, nil
}
