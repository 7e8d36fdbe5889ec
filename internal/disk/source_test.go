package disk

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)

// driveHandler emulates the dated folder layout for one day: a soup photo
// in Первое, a non-image file in Второе, and no Напиток folder at all.
func driveHandler(requests *int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(requests, 1)
		path := r.URL.Query().Get("path")

		if r.URL.Path == "/resources/download" {
			fmt.Fprintf(w, `{"href":"https://downloader.example/%s"}`, r.URL.Query().Get("path"))
			return
		}

		switch path {
		case "/FoodSchool64/15.12.2024":
			w.Write([]byte(`{"name":"15.12.2024","type":"dir"}`))
		case "/FoodSchool64/15.12.2024/Первое":
			w.Write([]byte(`{"type":"dir","_embedded":{"items":[
				{"name":"soup.JPG","path":"disk:/soup.JPG","type":"file"}
			]}}`))
		case "/FoodSchool64/15.12.2024/Второе":
			w.Write([]byte(`{"type":"dir","_embedded":{"items":[
				{"name":"menu.txt","path":"disk:/menu.txt","type":"file"}
			]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"DiskNotFoundError"}`))
		}
	})
}

func newTestSource(t *testing.T, requests *int64) *MealSource {
	t.Helper()
	srv := httptest.NewServer(driveHandler(requests))
	t.Cleanup(srv.Close)

	client := NewClient("t")
	client.base = srv.URL
	return NewMealSource(client, "/FoodSchool64", time.Minute)
}

func TestMealsForDateMixesPhotosAndPlaceholders(t *testing.T) {
	var requests int64
	src := newTestSource(t, &requests)

	items, err := src.MealsForDate(context.Background(), testDate)
	require.NoError(t, err)
	require.Len(t, items, 3)

	// Fixed slot order regardless of what the drive holds.
	assert.Equal(t, "первое", items[0].Label)
	assert.Equal(t, "второе", items[1].Label)
	assert.Equal(t, "напиток", items[2].Label)

	// The uppercase extension still counts as an image.
	assert.Contains(t, items[0].PhotoURL, "downloader.example")
	// A folder without an image degrades to a placeholder.
	assert.Empty(t, items[1].PhotoURL)
	// A missing folder degrades to a placeholder too.
	assert.Empty(t, items[2].PhotoURL)
}

func TestMealsForDateMissingDayIsEmpty(t *testing.T) {
	var requests int64
	src := newTestSource(t, &requests)

	items, err := src.MealsForDate(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMealsForDateCachesListing(t *testing.T) {
	var requests int64
	src := newTestSource(t, &requests)
	ctx := context.Background()

	first, err := src.MealsForDate(ctx, testDate)
	require.NoError(t, err)
	after := atomic.LoadInt64(&requests)

	second, err := src.MealsForDate(ctx, testDate)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, after, atomic.LoadInt64(&requests))
}

func TestMealsForDateDegradesOnDriveError(t *testing.T) {
	var requests int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := NewClient("t")
	client.base = srv.URL
	src := NewMealSource(client, "/FoodSchool64", time.Minute)
	ctx := context.Background()

	items, err := src.MealsForDate(ctx, testDate)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, item := range items {
		assert.Empty(t, item.PhotoURL)
	}

	// The degraded listing is not cached; the next call retries the drive.
	before := atomic.LoadInt64(&requests)
	_, err = src.MealsForDate(ctx, testDate)
	require.NoError(t, err)
	assert.Greater(t, atomic.LoadInt64(&requests), before)
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, isImageFile("soup.jpg"))
	assert.True(t, isImageFile("SOUP.JPEG"))
	assert.True(t, isImageFile("drink.webp"))
	assert.False(t, isImageFile("menu.txt"))
	assert.False(t, isImageFile("noext"))
}
