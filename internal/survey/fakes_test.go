package survey

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// fakeChat records outbound chat traffic and emulates the transport's
// refusal to edit a message into a different content type.
type fakeChat struct {
	nextID   int
	kinds    map[int]string // "text" or "photo"
	texts    map[int]string
	photos   map[int]string
	kbs      map[int]Controls
	deleted  map[int]bool
	answered []string
	failAll  bool
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		kinds:   make(map[int]string),
		texts:   make(map[int]string),
		photos:  make(map[int]string),
		kbs:     make(map[int]Controls),
		deleted: make(map[int]bool),
	}
}

func (f *fakeChat) SendText(_ context.Context, _ int64, text string, kb Controls) (int, error) {
	if f.failAll {
		return 0, errors.New("send failed")
	}
	f.nextID++
	f.kinds[f.nextID] = "text"
	f.texts[f.nextID] = text
	f.kbs[f.nextID] = kb
	return f.nextID, nil
}

func (f *fakeChat) SendPhoto(_ context.Context, _ int64, photoURL, caption string, kb Controls) (int, error) {
	if f.failAll {
		return 0, errors.New("send failed")
	}
	f.nextID++
	f.kinds[f.nextID] = "photo"
	f.texts[f.nextID] = caption
	f.photos[f.nextID] = photoURL
	f.kbs[f.nextID] = kb
	return f.nextID, nil
}

func (f *fakeChat) EditText(_ context.Context, _ int64, messageID int, text string, kb Controls) error {
	if f.failAll {
		return errors.New("edit failed")
	}
	if f.kinds[messageID] != "text" {
		return fmt.Errorf("message %d has no text to edit", messageID)
	}
	f.texts[messageID] = text
	f.kbs[messageID] = kb
	return nil
}

func (f *fakeChat) EditCaption(_ context.Context, _ int64, messageID int, caption string, kb Controls) error {
	if f.failAll {
		return errors.New("edit failed")
	}
	if f.kinds[messageID] != "photo" {
		return fmt.Errorf("message %d has no caption to edit", messageID)
	}
	f.texts[messageID] = caption
	f.kbs[messageID] = kb
	return nil
}

func (f *fakeChat) EditPhoto(_ context.Context, _ int64, messageID int, photoURL, caption string, kb Controls) error {
	if f.failAll {
		return errors.New("edit failed")
	}
	if f.kinds[messageID] != "photo" {
		return fmt.Errorf("message %d has no media to edit", messageID)
	}
	f.photos[messageID] = photoURL
	f.texts[messageID] = caption
	f.kbs[messageID] = kb
	return nil
}

func (f *fakeChat) Delete(_ context.Context, _ int64, messageID int) error {
	f.deleted[messageID] = true
	return nil
}

func (f *fakeChat) AnswerCallback(_ context.Context, _, text string) error {
	f.answered = append(f.answered, text)
	return nil
}

// liveText returns the text of the newest non-deleted message.
func (f *fakeChat) liveText() string {
	for id := f.nextID; id >= 1; id-- {
		if !f.deleted[id] {
			return f.texts[id]
		}
	}
	return ""
}

func (f *fakeChat) liveCount() int {
	count := 0
	for id := 1; id <= f.nextID; id++ {
		if !f.deleted[id] {
			count++
		}
	}
	return count
}

type savedKey struct {
	userID int64
	date   string
}

// fakeStore is an in-memory Store with replace-on-resubmit bookkeeping.
type fakeStore struct {
	profiles   map[int64]Profile
	results    map[savedKey]*Result
	saveCalls  int
	profileErr error
	saveErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: make(map[int64]Profile),
		results:  make(map[savedKey]*Result),
	}
}

func (f *fakeStore) UpsertProfile(_ context.Context, p Profile) error {
	if f.profileErr != nil {
		return f.profileErr
	}
	if existing, ok := f.profiles[p.UserID]; ok && existing.HasProfile && !p.HasProfile {
		// Stub upserts never clobber a real profile.
		return nil
	}
	f.profiles[p.UserID] = p
	return nil
}

func (f *fakeStore) HasProfile(_ context.Context, userID int64) (bool, error) {
	if f.profileErr != nil {
		return false, f.profileErr
	}
	return f.profiles[userID].HasProfile, nil
}

func (f *fakeStore) SaveResult(_ context.Context, r *Result) (bool, error) {
	if f.saveErr != nil {
		return false, f.saveErr
	}
	f.saveCalls++
	key := savedKey{userID: r.UserID, date: r.Date.Format("02.01.2006")}
	_, existed := f.results[key]
	copied := *r
	f.results[key] = &copied
	return !existed, nil
}

func (f *fakeStore) result(userID int64, date time.Time) *Result {
	return f.results[savedKey{userID: userID, date: date.Format("02.01.2006")}]
}

// fakeMedia serves a fixed item list.
type fakeMedia struct {
	items []MediaItem
	err   error
	calls int
}

func (f *fakeMedia) MealsForDate(_ context.Context, _ time.Time) ([]MediaItem, error) {
	f.calls++
	return f.items, f.err
}
