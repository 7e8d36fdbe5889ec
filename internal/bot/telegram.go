package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/foodschool/canteen-bot/internal/survey"
	"github.com/foodschool/canteen-bot/internal/utils"
)

const parseMode = "Markdown"

// Bot owns the Telegram connection and the per-user dispatch queues.
// Updates from one user are processed strictly in arrival order; updates
// from different users run concurrently.
type Bot struct {
	api *tgbotapi.BotAPI

	mu     sync.Mutex
	queues map[int64][]tgbotapi.Update
	active map[int64]bool
	wg     sync.WaitGroup
}

func New(token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	utils.Zlog.Info("Telegram bot authorized",
		zap.String("username", api.Self.UserName))

	return &Bot{
		api:    api,
		queues: make(map[int64][]tgbotapi.Update),
		active: make(map[int64]bool),
	}, nil
}

// Run consumes the long-poll update stream until the context is canceled,
// then waits for in-flight per-user queues to drain.
func (b *Bot) Run(ctx context.Context, machine *survey.Machine) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			userID := updateUserID(update)
			if userID == 0 {
				continue
			}
			b.enqueue(ctx, userID, update, machine)
		}
	}
}

func updateUserID(update tgbotapi.Update) int64 {
	switch {
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	default:
		return 0
	}
}

// enqueue appends the update to the user's queue and starts a drain
// goroutine if one is not already running for that user.
func (b *Bot) enqueue(ctx context.Context, userID int64, update tgbotapi.Update, machine *survey.Machine) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queues[userID] = append(b.queues[userID], update)
	if b.active[userID] {
		return
	}
	b.active[userID] = true
	b.wg.Add(1)
	go b.drain(ctx, userID, machine)
}

func (b *Bot) drain(ctx context.Context, userID int64, machine *survey.Machine) {
	defer b.wg.Done()
	for {
		b.mu.Lock()
		queue := b.queues[userID]
		if len(queue) == 0 {
			b.active[userID] = false
			delete(b.queues, userID)
			b.mu.Unlock()
			return
		}
		update := queue[0]
		b.queues[userID] = queue[1:]
		b.mu.Unlock()

		b.dispatch(ctx, machine, update)
	}
}

func (b *Bot) dispatch(ctx context.Context, machine *survey.Machine, update tgbotapi.Update) {
	var err error
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.Message == nil {
			return
		}
		err = machine.HandleCallback(ctx, cb.From.ID, cb.Message.Chat.ID, cb.ID, cb.Data)

	case update.Message != nil && update.Message.IsCommand():
		msg := update.Message
		// Commands are swept from the transcript like any other user text.
		_ = b.Delete(ctx, msg.Chat.ID, msg.MessageID)
		err = machine.HandleCommand(ctx, msg.From.ID, msg.Chat.ID, msg.Command())

	case update.Message != nil:
		msg := update.Message
		err = machine.HandleText(ctx, msg.From.ID, msg.Chat.ID, msg.MessageID, msg.Text)
	}

	if err != nil {
		utils.Zlog.Error("update handling failed",
			zap.Int64("user_id", updateUserID(update)),
			zap.Error(err))
	}
}

// --- survey.ChatAPI implementation ---

func (b *Bot) SendText(_ context.Context, chatID int64, text string, kb survey.Controls) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseMode
	if kb != nil {
		msg.ReplyMarkup = toMarkup(kb)
	}
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sent.MessageID, nil
}

func (b *Bot) SendPhoto(_ context.Context, chatID int64, photoURL, caption string, kb survey.Controls) (int, error) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	photo.Caption = caption
	photo.ParseMode = parseMode
	if kb != nil {
		photo.ReplyMarkup = toMarkup(kb)
	}
	sent, err := b.api.Send(photo)
	if err != nil {
		return 0, fmt.Errorf("failed to send photo: %w", err)
	}
	return sent.MessageID, nil
}

func (b *Bot) EditText(_ context.Context, chatID int64, messageID int, text string, kb survey.Controls) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = parseMode
	if kb != nil {
		markup := toMarkup(kb)
		edit.ReplyMarkup = &markup
	}
	_, err := b.api.Send(edit)
	return err
}

func (b *Bot) EditCaption(_ context.Context, chatID int64, messageID int, caption string, kb survey.Controls) error {
	edit := tgbotapi.NewEditMessageCaption(chatID, messageID, caption)
	edit.ParseMode = parseMode
	if kb != nil {
		markup := toMarkup(kb)
		edit.ReplyMarkup = &markup
	}
	_, err := b.api.Send(edit)
	return err
}

func (b *Bot) EditPhoto(_ context.Context, chatID int64, messageID int, photoURL, caption string, kb survey.Controls) error {
	media := tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(photoURL))
	media.Caption = caption
	media.ParseMode = parseMode

	edit := tgbotapi.EditMessageMediaConfig{
		BaseEdit: tgbotapi.BaseEdit{
			ChatID:    chatID,
			MessageID: messageID,
		},
		Media: media,
	}
	if kb != nil {
		markup := toMarkup(kb)
		edit.BaseEdit.ReplyMarkup = &markup
	}
	_, err := b.api.Request(edit)
	return err
}

func (b *Bot) Delete(_ context.Context, chatID int64, messageID int) error {
	_, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func (b *Bot) AnswerCallback(_ context.Context, callbackID, text string) error {
	_, err := b.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func toMarkup(kb survey.Controls) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}
