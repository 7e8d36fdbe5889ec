package survey

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenterSendsWhenNoPending(t *testing.T) {
	chat := newFakeChat()
	pres := NewPresenter(chat)
	sess := &Session{UserID: 1, ChatID: 100}

	err := pres.Show(context.Background(), sess, Content{Text: "hello"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, sess.PendingMessageID)
	assert.False(t, sess.PendingIsPhoto)
	assert.Equal(t, "hello", chat.liveText())
}

func TestPresenterEditsTextInPlace(t *testing.T) {
	chat := newFakeChat()
	pres := NewPresenter(chat)
	sess := &Session{UserID: 1, ChatID: 100}
	ctx := context.Background()

	require.NoError(t, pres.Show(ctx, sess, Content{Text: "first"}, nil))
	require.NoError(t, pres.Show(ctx, sess, Content{Text: "second"}, nil))

	// Same message mutated, nothing new sent.
	assert.Equal(t, 1, sess.PendingMessageID)
	assert.Equal(t, 1, chat.liveCount())
	assert.Equal(t, "second", chat.texts[1])
}

func TestPresenterFallsBackOnCrossTypeEdit(t *testing.T) {
	chat := newFakeChat()
	pres := NewPresenter(chat)
	sess := &Session{UserID: 1, ChatID: 100}
	ctx := context.Background()

	require.NoError(t, pres.Show(ctx, sess, Content{Text: "caption", PhotoURL: "http://x/1.jpg"}, nil))
	photoID := sess.PendingMessageID

	// A text payload cannot be edited onto a photo message; the presenter
	// must delete and resend.
	require.NoError(t, pres.Show(ctx, sess, Content{Text: "plain"}, nil))

	assert.True(t, chat.deleted[photoID])
	assert.NotEqual(t, photoID, sess.PendingMessageID)
	assert.Equal(t, "plain", chat.liveText())
	assert.Equal(t, 1, chat.liveCount())
}

func TestPresenterEditsCaptionForSamePhoto(t *testing.T) {
	chat := newFakeChat()
	pres := NewPresenter(chat)
	sess := &Session{UserID: 1, ChatID: 100}
	ctx := context.Background()

	require.NoError(t, pres.Show(ctx, sess, Content{Text: "v1", PhotoURL: "http://x/1.jpg"}, nil))
	id := sess.PendingMessageID

	require.NoError(t, pres.Show(ctx, sess, Content{Text: "v2", PhotoURL: "http://x/1.jpg"}, nil))

	assert.Equal(t, id, sess.PendingMessageID)
	assert.Equal(t, "v2", chat.texts[id])
	assert.Equal(t, "http://x/1.jpg", chat.photos[id])
}

func TestPresenterSwapsPhotoInPlace(t *testing.T) {
	chat := newFakeChat()
	pres := NewPresenter(chat)
	sess := &Session{UserID: 1, ChatID: 100}
	ctx := context.Background()

	require.NoError(t, pres.Show(ctx, sess, Content{Text: "soup", PhotoURL: "http://x/1.jpg"}, nil))
	id := sess.PendingMessageID

	require.NoError(t, pres.Show(ctx, sess, Content{Text: "main", PhotoURL: "http://x/2.jpg"}, nil))

	assert.Equal(t, id, sess.PendingMessageID)
	assert.Equal(t, "http://x/2.jpg", chat.photos[id])
	assert.Equal(t, "http://x/2.jpg", sess.PendingPhotoURL)
}

func TestPresenterDismiss(t *testing.T) {
	chat := newFakeChat()
	pres := NewPresenter(chat)
	sess := &Session{UserID: 1, ChatID: 100}
	ctx := context.Background()

	require.NoError(t, pres.Show(ctx, sess, Content{Text: "bye"}, nil))
	id := sess.PendingMessageID

	pres.Dismiss(ctx, sess)
	assert.True(t, chat.deleted[id])
	assert.Zero(t, sess.PendingMessageID)
}
