package survey

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/foodschool/canteen-bot/internal/utils"
)

// Button is one inline control; Data is the opaque callback payload.
type Button struct {
	Label string
	Data  string
}

// Controls is the rows-of-buttons layout attached to a message.
type Controls [][]Button

// Content is what a stage wants on screen. An empty PhotoURL means a
// text-only message.
type Content struct {
	Text     string
	PhotoURL string
}

// ChatAPI is the outbound chat-transport port the presenter drives.
// Implementations live at the transport edge.
type ChatAPI interface {
	SendText(ctx context.Context, chatID int64, text string, kb Controls) (int, error)
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, kb Controls) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string, kb Controls) error
	EditCaption(ctx context.Context, chatID int64, messageID int, caption string, kb Controls) error
	EditPhoto(ctx context.Context, chatID int64, messageID int, photoURL, caption string, kb Controls) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Presenter keeps exactly one live bot message per session: it mutates the
// pending message in place and, when the transport rejects the mutation,
// deletes it (best effort) and sends a replacement.
type Presenter struct {
	api ChatAPI
}

func NewPresenter(api ChatAPI) *Presenter {
	return &Presenter{api: api}
}

// Show displays content with controls on the session's single live message.
// The session's pending-message handle is updated on resend.
func (p *Presenter) Show(ctx context.Context, sess *Session, content Content, kb Controls) error {
	wantPhoto := content.PhotoURL != ""

	if sess.PendingMessageID != 0 {
		err := p.edit(ctx, sess, content, kb, wantPhoto)
		if err == nil {
			sess.PendingIsPhoto = wantPhoto
			if wantPhoto {
				sess.PendingPhotoURL = content.PhotoURL
			} else {
				sess.PendingPhotoURL = ""
			}
			return nil
		}
		utils.Zlog.Debug("in-place edit rejected, falling back to resend",
			zap.Int64("chat_id", sess.ChatID),
			zap.Int("message_id", sess.PendingMessageID),
			zap.Error(err))
		// Best effort: the stale control surface must not outlive this call.
		_ = p.api.Delete(ctx, sess.ChatID, sess.PendingMessageID)
	}

	var id int
	var err error
	if wantPhoto {
		id, err = p.api.SendPhoto(ctx, sess.ChatID, content.PhotoURL, content.Text, kb)
	} else {
		id, err = p.api.SendText(ctx, sess.ChatID, content.Text, kb)
	}
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	sess.PendingMessageID = id
	sess.PendingIsPhoto = wantPhoto
	sess.PendingPhotoURL = content.PhotoURL
	return nil
}

func (p *Presenter) edit(ctx context.Context, sess *Session, content Content, kb Controls, wantPhoto bool) error {
	switch {
	case wantPhoto && sess.PendingIsPhoto && content.PhotoURL == sess.PendingPhotoURL:
		// Same photo, new caption (retry prompts and the like).
		return p.api.EditCaption(ctx, sess.ChatID, sess.PendingMessageID, content.Text, kb)
	case wantPhoto:
		return p.api.EditPhoto(ctx, sess.ChatID, sess.PendingMessageID, content.PhotoURL, content.Text, kb)
	default:
		// Cross-type photo-to-text edits are attempted too; the transport
		// rejects them and the fallback path takes over.
		return p.api.EditText(ctx, sess.ChatID, sess.PendingMessageID, content.Text, kb)
	}
}

// Dismiss removes the session's live message, best effort.
func (p *Presenter) Dismiss(ctx context.Context, sess *Session) {
	if sess.PendingMessageID == 0 {
		return
	}
	_ = p.api.Delete(ctx, sess.ChatID, sess.PendingMessageID)
	sess.PendingMessageID = 0
	sess.PendingIsPhoto = false
	sess.PendingPhotoURL = ""
}
