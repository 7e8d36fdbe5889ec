package survey

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Stage is a named state of the survey state machine.
type Stage string

const (
	StageDateEntry        Stage = "date_entry"
	StageEligibility      Stage = "eligibility"
	StageIneligibleReason Stage = "ineligible_reason"
	StageProfile          Stage = "profile"
	StageOverallRating    Stage = "overall_rating"
	StageOverallComment   Stage = "overall_comment"
	StageItemRating       Stage = "item_rating"
	StageItemComment      Stage = "item_comment"
)

// MediaItem is one ratable unit: a meal slot with an optional photo.
type MediaItem struct {
	Label    string // meal slot, e.g. "первое"
	Title    string // display name derived from the slot
	PhotoURL string // empty for a placeholder item
}

type ItemRating struct {
	Label  string
	Rating int
}

type ItemComment struct {
	Label   string
	Comment string // empty when the user skipped
}

// Session is the in-memory record of one user's in-progress survey. It is
// mutated only by the handler owning its current stage.
type Session struct {
	UserID int64
	ChatID int64
	Stage  Stage
	Date   time.Time

	FullName     string
	Class        string
	EatsAtSchool bool

	Items         []MediaItem
	Cursor        int
	Ratings       []ItemRating
	LowRated      []string
	CommentCursor int
	Comments      []ItemComment

	OverallRating  int // 0 = not yet set
	OverallComment string

	InvalidAttempts int

	// Bookkeeping for the presenter's edit-or-resend choreography.
	PendingMessageID int
	PendingIsPhoto   bool
	PendingPhotoURL  string

	CreatedAt time.Time
}

// ErrSessionActive is returned when a survey start is requested while one
// is already running for the same user.
var ErrSessionActive = errors.New("survey already in progress")

// SessionStore owns the per-user session map and the per-(user, stage)
// in-flight markers used to discard double-pressed buttons. Session expiry
// is off by default; a positive TTL makes stalled sessions evaporate.
type SessionStore struct {
	mu       sync.Mutex
	sessions *cache.Cache
	inflight map[int64]Stage
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	exp := cache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		exp = ttl
		cleanup = 10 * time.Minute
	}
	return &SessionStore{
		sessions: cache.New(exp, cleanup),
		inflight: make(map[int64]Stage),
	}
}

func (s *SessionStore) Get(userID int64) (*Session, bool) {
	if v, found := s.sessions.Get(sessionKey(userID)); found {
		return v.(*Session), true
	}
	return nil, false
}

// Create starts a session for the user, rejecting a second concurrent one.
func (s *SessionStore) Create(userID, chatID int64, date time.Time, stage Stage) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.sessions.Get(sessionKey(userID)); found {
		return nil, ErrSessionActive
	}
	sess := &Session{
		UserID:    userID,
		ChatID:    chatID,
		Stage:     stage,
		Date:      date,
		CreatedAt: time.Now(),
	}
	s.sessions.Set(sessionKey(userID), sess, cache.DefaultExpiration)
	return sess, nil
}

// Touch re-sets the session to refresh its TTL window after activity.
func (s *SessionStore) Touch(sess *Session) {
	s.sessions.Set(sessionKey(sess.UserID), sess, cache.DefaultExpiration)
}

func (s *SessionStore) Clear(userID int64) {
	s.sessions.Delete(sessionKey(userID))
}

// TryAcquire marks (user, stage) as in-flight. A false return means an
// earlier event for the same key is still being processed and this one
// must be discarded.
func (s *SessionStore) TryAcquire(userID int64, stage Stage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, busy := s.inflight[userID]; busy && current == stage {
		return false
	}
	s.inflight[userID] = stage
	return true
}

// Release clears the in-flight marker. Callers must release on every exit
// path, success or failure.
func (s *SessionStore) Release(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, userID)
}

func sessionKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
