package survey

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/foodschool/canteen-bot/internal/utils"
)

const maxInvalidAttempts = 3

// MediaSource lists the ratable items for a calendar date. Implementations
// degrade errors to placeholders or an empty list; they never fail the
// machine.
type MediaSource interface {
	MealsForDate(ctx context.Context, date time.Time) ([]MediaItem, error)
}

// Profile is the once-per-user identity record.
type Profile struct {
	UserID     int64
	FullName   string
	Class      string
	HasProfile bool
}

// Result is the complete outcome of one survey, persisted as a single
// logical unit at the terminal stage.
type Result struct {
	UserID         int64
	Date           time.Time
	EatsAtSchool   bool
	NoSchoolReason string
	OverallRating  int // 0 = not answered
	OverallComment string
	Ratings        []ItemRating
	Comments       []ItemComment // low-rated labels only; empty text = skipped
}

// Store is the persistence port. SaveResult must replace, not append, any
// earlier ratings and comments for the same (user, date).
type Store interface {
	UpsertProfile(ctx context.Context, p Profile) error
	HasProfile(ctx context.Context, userID int64) (bool, error)
	SaveResult(ctx context.Context, r *Result) (created bool, err error)
}

// Machine drives the staged survey conversation. Events for one user must
// arrive serialized (the transport dispatcher guarantees ordering); events
// for different users may run concurrently.
type Machine struct {
	sessions *SessionStore
	store    Store
	media    MediaSource
	api      ChatAPI
	pres     *Presenter
	scale    Scale
	now      func() time.Time
}

func NewMachine(sessions *SessionStore, store Store, media MediaSource, api ChatAPI, scale Scale, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{
		sessions: sessions,
		store:    store,
		media:    media,
		api:      api,
		pres:     NewPresenter(api),
		scale:    scale,
		now:      now,
	}
}

// HandleCommand processes an entry command from the user.
func (m *Machine) HandleCommand(ctx context.Context, userID, chatID int64, command string) error {
	switch command {
	case "start":
		_, err := m.api.SendText(ctx, chatID, textGreeting, nil)
		return err
	case "reset":
		m.sessions.Clear(userID)
		m.sessions.Release(userID)
		_, err := m.api.SendText(ctx, chatID, textSessionReset, nil)
		return err
	case "mark":
		return m.startSurvey(ctx, userID, chatID, m.today(), StageEligibility)
	case "mark_special":
		return m.startSurvey(ctx, userID, chatID, time.Time{}, StageDateEntry)
	default:
		return nil
	}
}

func (m *Machine) startSurvey(ctx context.Context, userID, chatID int64, date time.Time, stage Stage) error {
	sess, err := m.sessions.Create(userID, chatID, date, stage)
	if err != nil {
		// An active session stays untouched; the start request is rejected.
		_, sendErr := m.api.SendText(ctx, chatID, textAlreadyActive, nil)
		return sendErr
	}

	utils.Zlog.Info("survey started",
		zap.Int64("user_id", userID),
		zap.String("stage", string(stage)))

	if stage == StageDateEntry {
		return m.show(ctx, sess, Content{Text: textAskDate}, nil)
	}
	return m.show(ctx, sess, Content{Text: textAskEligibility}, eligibilityKeyboard())
}

// HandleCallback processes a button press. A press racing an in-flight
// event for the same (user, stage) is acknowledged and discarded.
func (m *Machine) HandleCallback(ctx context.Context, userID, chatID int64, callbackID, data string) error {
	sess, ok := m.sessions.Get(userID)
	if !ok {
		return m.api.AnswerCallback(ctx, callbackID, "")
	}

	if !m.sessions.TryAcquire(userID, sess.Stage) {
		return m.api.AnswerCallback(ctx, callbackID, "⏳")
	}
	defer m.sessions.Release(userID)

	switch {
	case sess.Stage == StageEligibility && (data == CallbackSchoolYes || data == CallbackSchoolNo):
		if err := m.api.AnswerCallback(ctx, callbackID, ""); err != nil {
			utils.Zlog.Debug("callback ack failed", zap.Error(err))
		}
		return m.acceptEligibility(ctx, sess, data == CallbackSchoolYes)

	case sess.Stage == StageIneligibleReason && data == CallbackSkipReason:
		if err := m.api.AnswerCallback(ctx, callbackID, "Причина пропущена"); err != nil {
			utils.Zlog.Debug("callback ack failed", zap.Error(err))
		}
		return m.acceptIneligibleReason(ctx, sess, "")

	case sess.Stage == StageOverallRating && strings.HasPrefix(data, callbackRatingOverallPfx):
		rating, ok := parseRatingPayload(data, callbackRatingOverallPfx, m.scale)
		if !ok {
			return m.api.AnswerCallback(ctx, callbackID, "❌ Ошибка обработки оценки")
		}
		if err := m.api.AnswerCallback(ctx, callbackID, fmt.Sprintf("Оценка %d принята!", rating)); err != nil {
			utils.Zlog.Debug("callback ack failed", zap.Error(err))
		}
		return m.acceptOverallRating(ctx, sess, rating)

	case sess.Stage == StageOverallComment && data == CallbackSkipOverall:
		if err := m.api.AnswerCallback(ctx, callbackID, "Комментарий пропущен"); err != nil {
			utils.Zlog.Debug("callback ack failed", zap.Error(err))
		}
		return m.acceptOverallComment(ctx, sess, "")

	case sess.Stage == StageItemRating && strings.HasPrefix(data, callbackRatingMealPfx):
		rating, ok := parseRatingPayload(data, callbackRatingMealPfx, m.scale)
		if !ok {
			return m.api.AnswerCallback(ctx, callbackID, "❌ Ошибка обработки оценки")
		}
		ack := fmt.Sprintf("Оценка %d %s принята!", rating, m.scale.Emoji(rating))
		if err := m.api.AnswerCallback(ctx, callbackID, ack); err != nil {
			utils.Zlog.Debug("callback ack failed", zap.Error(err))
		}
		return m.acceptItemRating(ctx, sess, rating)

	case sess.Stage == StageItemComment && data == CallbackSkipMealComment:
		if err := m.api.AnswerCallback(ctx, callbackID, "Комментарий пропущен"); err != nil {
			utils.Zlog.Debug("callback ack failed", zap.Error(err))
		}
		return m.acceptItemComment(ctx, sess, "")

	default:
		// Stale control from an earlier stage.
		return m.api.AnswerCallback(ctx, callbackID, "")
	}
}

// HandleText processes a free-text message. The user's message is removed
// from the transcript regardless of validity.
func (m *Machine) HandleText(ctx context.Context, userID, chatID int64, messageID int, text string) error {
	_ = m.api.Delete(ctx, chatID, messageID)

	sess, ok := m.sessions.Get(userID)
	if !ok {
		return nil
	}
	text = strings.TrimSpace(text)

	switch sess.Stage {
	case StageDateEntry:
		return m.acceptDate(ctx, sess, text)
	case StageProfile:
		return m.acceptProfile(ctx, sess, text)
	case StageIneligibleReason:
		return m.acceptIneligibleReason(ctx, sess, text)
	case StageOverallComment:
		return m.acceptOverallComment(ctx, sess, text)
	case StageItemComment:
		return m.acceptItemComment(ctx, sess, text)
	case StageOverallRating:
		if m.scale.TextEntry {
			return m.acceptRatingText(ctx, sess, text, m.acceptOverallRating)
		}
	case StageItemRating:
		if m.scale.TextEntry {
			return m.acceptRatingText(ctx, sess, text, m.acceptItemRating)
		}
	}
	// Text during a button-driven stage carries no meaning; ignore it.
	return nil
}

func (m *Machine) acceptDate(ctx context.Context, sess *Session, input string) error {
	parsed, err := time.Parse(dateLayout, input)
	if err != nil {
		return m.show(ctx, sess, Content{Text: textBadDate}, nil)
	}
	today := m.today()
	if parsed.After(today) {
		return m.show(ctx, sess, Content{Text: textFutureDate}, nil)
	}
	sess.Date = parsed
	sess.Stage = StageEligibility
	m.sessions.Touch(sess)
	return m.show(ctx, sess, Content{Text: textAskEligibility}, eligibilityKeyboard())
}

func (m *Machine) acceptEligibility(ctx context.Context, sess *Session, eats bool) error {
	sess.EatsAtSchool = eats

	if !eats {
		sess.Stage = StageIneligibleReason
		m.sessions.Touch(sess)
		return m.show(ctx, sess, Content{Text: textAskReason},
			skipKeyboard(buttonNoComment, CallbackSkipReason))
	}

	has, err := m.store.HasProfile(ctx, sess.UserID)
	if err != nil {
		return m.fail(ctx, sess, textGenericFailure, "failed to look up profile", err)
	}
	if has {
		return m.askOverall(ctx, sess)
	}
	sess.Stage = StageProfile
	m.sessions.Touch(sess)
	return m.show(ctx, sess, Content{Text: textAskProfile}, nil)
}

// acceptIneligibleReason is a terminal branch: the answer (possibly empty)
// is persisted together with a profile stub and the session ends.
func (m *Machine) acceptIneligibleReason(ctx context.Context, sess *Session, reason string) error {
	has, err := m.store.HasProfile(ctx, sess.UserID)
	if err != nil {
		return m.fail(ctx, sess, textGenericFailure, "failed to look up profile", err)
	}
	if !has {
		stub := Profile{UserID: sess.UserID}
		if err := m.store.UpsertProfile(ctx, stub); err != nil {
			return m.fail(ctx, sess, textSaveFailed, "failed to save profile stub", err)
		}
	}

	result := &Result{
		UserID:         sess.UserID,
		Date:           sess.Date,
		EatsAtSchool:   false,
		NoSchoolReason: reason,
	}
	if _, err := m.store.SaveResult(ctx, result); err != nil {
		return m.fail(ctx, sess, textSaveFailed, "failed to save ineligibility answer", err)
	}

	final := textIneligibleFinal(sess.Date.Format(dateLayout), reason)
	if err := m.pres.Show(ctx, sess, Content{Text: final}, nil); err != nil {
		utils.Zlog.Warn("failed to present final message", zap.Error(err))
	}
	m.sessions.Clear(sess.UserID)
	return nil
}

func (m *Machine) acceptProfile(ctx context.Context, sess *Session, input string) error {
	parts := strings.Fields(input)
	if len(parts) < 3 {
		return m.show(ctx, sess, Content{Text: textBadProfile}, nil)
	}
	fullName := strings.Join(parts[:len(parts)-1], " ")
	class := parts[len(parts)-1]

	profile := Profile{
		UserID:     sess.UserID,
		FullName:   fullName,
		Class:      class,
		HasProfile: true,
	}
	if err := m.store.UpsertProfile(ctx, profile); err != nil {
		return m.fail(ctx, sess, textSaveFailed, "failed to save profile", err)
	}

	sess.FullName = fullName
	sess.Class = class
	return m.askOverall(ctx, sess)
}

func (m *Machine) askOverall(ctx context.Context, sess *Session) error {
	sess.Stage = StageOverallRating
	sess.InvalidAttempts = 0
	m.sessions.Touch(sess)

	if m.scale.TextEntry {
		prompt := fmt.Sprintf("%s\n\n📝 Введите оценку от 1 до %d:", textAskOverall, m.scale.Max)
		return m.show(ctx, sess, Content{Text: prompt}, nil)
	}
	return m.show(ctx, sess, Content{Text: textAskOverall},
		ratingKeyboard(m.scale, callbackRatingOverallPfx))
}

func (m *Machine) acceptOverallRating(ctx context.Context, sess *Session, rating int) error {
	sess.OverallRating = rating
	sess.InvalidAttempts = 0

	if m.scale.IsLow(rating) {
		sess.Stage = StageOverallComment
		m.sessions.Touch(sess)
		return m.show(ctx, sess, Content{Text: textAskOverallComment},
			skipKeyboard(buttonNoComment, CallbackSkipOverall))
	}
	return m.startItems(ctx, sess)
}

func (m *Machine) acceptOverallComment(ctx context.Context, sess *Session, comment string) error {
	sess.OverallComment = comment
	return m.startItems(ctx, sess)
}

// startItems snapshots the item list for the session's date. The list is
// fetched exactly once; an empty day is a dead end, not an item stage.
func (m *Machine) startItems(ctx context.Context, sess *Session) error {
	items, err := m.media.MealsForDate(ctx, sess.Date)
	if err != nil {
		return m.fail(ctx, sess, textGenericFailure, "failed to list meals", err)
	}
	if len(items) == 0 {
		if err := m.pres.Show(ctx, sess, Content{Text: textNoMeals}, nil); err != nil {
			utils.Zlog.Warn("failed to present no-meals message", zap.Error(err))
		}
		m.sessions.Clear(sess.UserID)
		return nil
	}

	sess.Items = items
	sess.Cursor = 0
	sess.Ratings = sess.Ratings[:0]
	sess.LowRated = sess.LowRated[:0]
	sess.Stage = StageItemRating
	sess.InvalidAttempts = 0
	m.sessions.Touch(sess)
	return m.presentItem(ctx, sess)
}

func (m *Machine) presentItem(ctx context.Context, sess *Session) error {
	item := sess.Items[sess.Cursor]
	content := Content{
		Text:     itemCaption(item, sess.Cursor+1, len(sess.Items), m.scale),
		PhotoURL: item.PhotoURL,
	}
	var kb Controls
	if !m.scale.TextEntry {
		kb = ratingKeyboard(m.scale, callbackRatingMealPfx)
	}
	return m.show(ctx, sess, content, kb)
}

func (m *Machine) acceptItemRating(ctx context.Context, sess *Session, rating int) error {
	item := sess.Items[sess.Cursor]
	sess.Ratings = append(sess.Ratings, ItemRating{Label: item.Label, Rating: rating})
	if m.scale.IsLow(rating) {
		sess.LowRated = append(sess.LowRated, item.Label)
	}
	sess.Cursor++
	sess.InvalidAttempts = 0
	m.sessions.Touch(sess)

	if sess.Cursor == len(sess.Items) {
		return m.enterComments(ctx, sess)
	}
	return m.presentItem(ctx, sess)
}

// acceptRatingText validates text-entry ratings with the bounded retry
// loop: three consecutive failures abort the session.
func (m *Machine) acceptRatingText(ctx context.Context, sess *Session, input string, accept func(context.Context, *Session, int) error) error {
	rating, ok := m.scale.Parse(input)
	if ok {
		return accept(ctx, sess, rating)
	}

	sess.InvalidAttempts++
	if sess.InvalidAttempts >= maxInvalidAttempts {
		utils.Zlog.Info("survey aborted after repeated invalid input",
			zap.Int64("user_id", sess.UserID),
			zap.String("stage", string(sess.Stage)))
		if err := m.pres.Show(ctx, sess, Content{Text: textTooManyAttempts}, nil); err != nil {
			utils.Zlog.Warn("failed to present abort message", zap.Error(err))
		}
		m.sessions.Clear(sess.UserID)
		return nil
	}
	m.sessions.Touch(sess)

	content := Content{Text: textInvalidRating(sess.InvalidAttempts, m.scale)}
	if sess.Stage == StageItemRating {
		item := sess.Items[sess.Cursor]
		content.PhotoURL = item.PhotoURL
		content.Text = fmt.Sprintf("%s\n%s", content.Text,
			itemCaption(item, sess.Cursor+1, len(sess.Items), m.scale))
	}
	return m.show(ctx, sess, content, nil)
}

// enterComments moves to comment collection over the low-rated labels,
// or straight to finalize when there are none.
func (m *Machine) enterComments(ctx context.Context, sess *Session) error {
	if len(sess.LowRated) == 0 {
		return m.finalize(ctx, sess)
	}
	sess.Stage = StageItemComment
	sess.CommentCursor = 0
	sess.Comments = sess.Comments[:0]
	m.sessions.Touch(sess)
	return m.presentCommentPrompt(ctx, sess)
}

func (m *Machine) presentCommentPrompt(ctx context.Context, sess *Session) error {
	label := sess.LowRated[sess.CommentCursor]
	header := ""
	if sess.CommentCursor == 0 {
		header = textRatingStats(len(sess.Ratings), average(sess.Ratings))
	}
	return m.show(ctx, sess, Content{Text: textCommentPrompt(label, header)},
		skipKeyboard(buttonSkipComment, CallbackSkipMealComment))
}

func (m *Machine) acceptItemComment(ctx context.Context, sess *Session, comment string) error {
	label := sess.LowRated[sess.CommentCursor]
	sess.Comments = append(sess.Comments, ItemComment{Label: label, Comment: comment})
	sess.CommentCursor++
	m.sessions.Touch(sess)

	if sess.CommentCursor == len(sess.LowRated) {
		return m.finalize(ctx, sess)
	}
	return m.presentCommentPrompt(ctx, sess)
}

// finalize persists the collected answers as one logical unit and ends
// the session with a human-readable summary.
func (m *Machine) finalize(ctx context.Context, sess *Session) error {
	result := &Result{
		UserID:         sess.UserID,
		Date:           sess.Date,
		EatsAtSchool:   true,
		OverallRating:  sess.OverallRating,
		OverallComment: sess.OverallComment,
		Ratings:        append([]ItemRating(nil), sess.Ratings...),
		Comments:       append([]ItemComment(nil), sess.Comments...),
	}

	created, err := m.store.SaveResult(ctx, result)
	if err != nil {
		return m.fail(ctx, sess, textSaveFailed, "failed to save survey", err)
	}

	utils.Zlog.Info("survey saved",
		zap.Int64("user_id", sess.UserID),
		zap.String("date", sess.Date.Format(dateLayout)),
		zap.Int("ratings", len(result.Ratings)),
		zap.Bool("created", created))

	if err := m.pres.Show(ctx, sess, Content{Text: m.summaryText(sess, created)}, nil); err != nil {
		utils.Zlog.Warn("failed to present summary", zap.Error(err))
	}
	m.sessions.Clear(sess.UserID)
	return nil
}

func (m *Machine) summaryText(sess *Session, created bool) string {
	var b strings.Builder
	if created {
		b.WriteString("✅ Спасибо за ваш отзыв!\n\n")
	} else {
		b.WriteString("🔄 Ваш опрос обновлен!\n\n")
	}
	fmt.Fprintf(&b, "Ваши ответы за %s сохранены и будут учтены для улучшения питания.\n\n",
		sess.Date.Format(dateLayout))
	b.WriteString("📊 *Краткая статистика:*\n")

	if sess.OverallRating > 0 {
		fmt.Fprintf(&b, "• Общая оценка: %d %s\n", sess.OverallRating, m.scale.Emoji(sess.OverallRating))
	}
	fmt.Fprintf(&b, "• Оценено блюд: %d\n", len(sess.Ratings))
	fmt.Fprintf(&b, "• Средняя оценка: %.1f\n", average(sess.Ratings))
	for _, r := range sess.Ratings {
		fmt.Fprintf(&b, "• %s: %d %s\n", capitalize(r.Label), r.Rating, m.scale.Emoji(r.Rating))
	}

	commented := 0
	for _, c := range sess.Comments {
		if c.Comment != "" {
			commented++
		}
	}
	if commented > 0 {
		fmt.Fprintf(&b, "• Комментариев: %d\n", commented)
	}
	b.WriteString("\nСпасибо за ваше время! 🍽️")
	return b.String()
}

// fail ends the session after an external-collaborator error: log, tell
// the user to restart, clear. The failed step is never retried.
func (m *Machine) fail(ctx context.Context, sess *Session, userText, msg string, err error) error {
	utils.Zlog.Error(msg,
		zap.Int64("user_id", sess.UserID),
		zap.String("stage", string(sess.Stage)),
		zap.Error(err))
	if showErr := m.pres.Show(ctx, sess, Content{Text: userText}, nil); showErr != nil {
		utils.Zlog.Warn("failed to present failure message", zap.Error(showErr))
	}
	m.sessions.Clear(sess.UserID)
	return fmt.Errorf("%s: %w", msg, err)
}

func (m *Machine) show(ctx context.Context, sess *Session, content Content, kb Controls) error {
	if err := m.pres.Show(ctx, sess, content, kb); err != nil {
		utils.Zlog.Warn("failed to present content",
			zap.Int64("user_id", sess.UserID),
			zap.String("stage", string(sess.Stage)),
			zap.Error(err))
		return err
	}
	m.sessions.Touch(sess)
	return nil
}

func (m *Machine) today() time.Time {
	now := m.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func average(ratings []ItemRating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Rating
	}
	return float64(sum) / float64(len(ratings))
}

func parseRatingPayload(data, prefix string, scale Scale) (int, bool) {
	n, ok := scale.Parse(strings.TrimPrefix(data, prefix))
	if !ok || !scale.Contains(n) {
		return 0, false
	}
	return n, true
}
