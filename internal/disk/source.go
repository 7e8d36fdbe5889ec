package disk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/foodschool/canteen-bot/internal/survey"
	"github.com/foodschool/canteen-bot/internal/utils"
)

// Moscow is the drive's calendar zone: the dated folders follow the
// canteen's local day, not UTC.
var Moscow = time.FixedZone("MSK", 3*60*60)

// Now returns the current wall-clock time in the drive's zone.
func Now() time.Time {
	return time.Now().In(Moscow)
}

const dateLayout = "02.01.2006"

// mealSlots is the fixed presentation order of a day's folders.
var mealSlots = []string{"первое", "второе", "напиток"}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".jfif": true,
}

// MealSource lists ratable meal slots from the dated folder layout
// <root>/<DD.MM.YYYY>/<Slot>/. Listings are cached per date so a burst of
// sessions for the same day hits the drive once.
type MealSource struct {
	client *Client
	root   string
	cache  *cache.Cache
}

func NewMealSource(client *Client, root string, cacheTTL time.Duration) *MealSource {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}
	return &MealSource{
		client: client,
		root:   strings.TrimRight(root, "/"),
		cache:  cache.New(cacheTTL, 10*time.Minute),
	}
}

// MealsForDate returns the day's slots in fixed order. A missing date
// folder yields an empty list; a slot folder without a usable photo yields
// a placeholder item. Transient failures degrade to uncached placeholders
// rather than failing the listing, so a survey in progress never dies on a
// drive hiccup.
func (s *MealSource) MealsForDate(ctx context.Context, date time.Time) ([]survey.MediaItem, error) {
	key := date.Format(dateLayout)
	if v, found := s.cache.Get(key); found {
		return v.([]survey.MediaItem), nil
	}

	items, cacheable := s.fetch(ctx, key)
	if cacheable {
		s.cache.Set(key, items, cache.DefaultExpiration)
	}
	return items, nil
}

func (s *MealSource) fetch(ctx context.Context, dateStr string) (items []survey.MediaItem, cacheable bool) {
	dateFolder := fmt.Sprintf("%s/%s", s.root, dateStr)

	if _, err := s.client.GetResource(ctx, dateFolder); err != nil {
		if errors.Is(err, ErrNotFound) {
			utils.Zlog.Info("no meal folder for date", zap.String("date", dateStr))
			return nil, true
		}
		utils.Zlog.Warn("failed to check date folder, serving placeholders",
			zap.String("date", dateStr),
			zap.Error(err))
		return placeholderItems(), false
	}

	items = make([]survey.MediaItem, 0, len(mealSlots))
	for _, slot := range mealSlots {
		item := survey.MediaItem{Label: slot, Title: titleCase(slot)}

		photoURL, err := s.slotPhoto(ctx, dateFolder, slot)
		if err != nil {
			utils.Zlog.Warn("failed to resolve slot photo",
				zap.String("date", dateStr),
				zap.String("slot", slot),
				zap.Error(err))
		}
		item.PhotoURL = photoURL
		items = append(items, item)
	}
	return items, true
}

func placeholderItems() []survey.MediaItem {
	items := make([]survey.MediaItem, 0, len(mealSlots))
	for _, slot := range mealSlots {
		items = append(items, survey.MediaItem{Label: slot, Title: titleCase(slot)})
	}
	return items
}

// slotPhoto returns the download URL of the first image in a slot folder,
// or "" when the folder or image is absent.
func (s *MealSource) slotPhoto(ctx context.Context, dateFolder, slot string) (string, error) {
	folder := fmt.Sprintf("%s/%s", dateFolder, titleCase(slot))

	res, err := s.client.GetResource(ctx, folder)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	for _, entry := range res.Embedded.Items {
		if entry.Type != "file" || !isImageFile(entry.Name) {
			continue
		}
		href, err := s.client.DownloadURL(ctx, entry.Path)
		if err != nil {
			utils.Zlog.Warn("failed to resolve download link",
				zap.String("path", entry.Path),
				zap.Error(err))
			continue
		}
		return href, nil
	}
	return "", nil
}

func isImageFile(name string) bool {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return false
	}
	return imageExtensions[strings.ToLower(name[idx:])]
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
