package report

import (
	"context"
	"fmt"
	"time"

	"github.com/foodschool/canteen-bot/internal/loaders"
)

const dateLayout = "02.01.2006"

type Service struct {
	db *loaders.PostgresClient
}

func NewService(db *loaders.PostgresClient) *Service {
	return &Service{db: db}
}

// GetDayReport assembles the per-day aggregation across surveys, meal
// ratings and comments.
func (s *Service) GetDayReport(ctx context.Context, date time.Time) (*Response, error) {
	stats, err := s.db.GetDayStats(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load day stats: %w", err)
	}

	mealStats, err := s.db.GetMealStats(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load meal stats: %w", err)
	}

	comments, err := s.db.GetMealComments(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load meal comments: %w", err)
	}
	commentsByLabel := make(map[string][]string)
	for _, c := range comments {
		commentsByLabel[c.Label] = append(commentsByLabel[c.Label], c.Comment)
	}

	reasons, err := s.db.GetNoSchoolReasons(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load reasons: %w", err)
	}

	res := &Response{
		Date:            date.Format(dateLayout),
		TotalSurveys:    stats.TotalSurveys,
		EatingCount:     stats.EatingCount,
		NotEatingCount:  stats.NotEatingCount,
		AverageOverall:  stats.AvgOverall,
		Meals:           make([]MealReport, 0, len(mealStats)),
		NoSchoolReasons: reasons,
	}
	for _, st := range mealStats {
		res.Meals = append(res.Meals, MealReport{
			Label:    st.Label,
			Ratings:  st.Ratings,
			Average:  st.Average,
			Comments: commentsByLabel[st.Label],
		})
	}
	return res, nil
}
