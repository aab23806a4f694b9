package service

import (
	"context"
	"errors"
	"time"

	"github.com/guttosm/spimexpulse/internal/domain/models"
	"github.com/guttosm/spimexpulse/internal/storage"
)

var (
	// ErrStoreEmpty is returned when the store holds no trading results at all.
	ErrStoreEmpty = errors.New("database is empty")
	// ErrInvalidPeriod is returned when the period start is after its end.
	ErrInvalidPeriod = errors.New("start_date must not be after end_date")
	// ErrInvalidDays is returned when the look-back window is not positive.
	ErrInvalidDays = errors.New("days must be at least 1")
)

// TradingResultsService defines the read side of the trading results store.
type TradingResultsService interface {
	GetResultsInPeriod(ctx context.Context, start, end time.Time, filter models.ResultsFilter) ([]models.TradingResult, error)
	GetLastResults(ctx context.Context, filter models.ResultsFilter) ([]models.TradingResult, error)
	GetLastTradingDates(ctx context.Context, days int) ([]time.Time, error)
}

type tradingResultsService struct {
	repo storage.TradingResultsRepository
	loc  *time.Location
	now  func() time.Time
}

// NewTradingResultsService builds the service. loc decides what "today" is; nil means UTC.
func NewTradingResultsService(repo storage.TradingResultsRepository, loc *time.Location) TradingResultsService {
	if loc == nil {
		loc = time.UTC
	}
	return &tradingResultsService{repo: repo, loc: loc, now: time.Now}
}

func (s *tradingResultsService) GetResultsInPeriod(ctx context.Context, start, end time.Time, filter models.ResultsFilter) ([]models.TradingResult, error) {
	start, end = models.DateOf(start), models.DateOf(end)
	if start.After(end) {
		return nil, ErrInvalidPeriod
	}
	return s.repo.GetResultsInPeriod(ctx, start, end, filter)
}

// GetLastResults returns the records of the most recent trade date present in the store.
func (s *tradingResultsService) GetLastResults(ctx context.Context, filter models.ResultsFilter) ([]models.TradingResult, error) {
	last, err := s.repo.GetLastTradeDate(ctx)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, ErrStoreEmpty
	}
	return s.repo.GetResultsForDate(ctx, *last, filter)
}

// GetLastTradingDates returns, most recent first, the dates among the last `days` calendar
// days (today included) that have at least one record.
func (s *tradingResultsService) GetLastTradingDates(ctx context.Context, days int) ([]time.Time, error) {
	if days < 1 {
		return nil, ErrInvalidDays
	}
	today := models.DateOf(s.now().In(s.loc))
	since := today.AddDate(0, 0, -(days - 1))
	dates, err := s.repo.GetTradingDatesSince(ctx, since, today)
	if err != nil {
		return nil, err
	}
	if dates == nil {
		dates = []time.Time{}
	}
	return dates, nil
}
