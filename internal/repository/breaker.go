package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"fivebyfive/internal/models"
)

// BreakerConfig: настройки автомата защиты для хранилища
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig возвращает настройки по умолчанию
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

// GuardedStore оборачивает Store в circuit breaker и таймаут на каждый вызов.
// Пока автомат разомкнут, вызовы сразу завершаются с ErrStoreUnavailable.
type GuardedStore struct {
	next    Store
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
}

// NewGuardedStore создаёт обёртку над next
func NewGuardedStore(next Store, timeout time.Duration, cfg BreakerConfig, logger *zap.Logger) *GuardedStore {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "history-store",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &GuardedStore{next: next, cb: cb, timeout: timeout}
}

// State возвращает текущее состояние автомата
func (s *GuardedStore) State() gobreaker.State {
	return s.cb.State()
}

func (s *GuardedStore) call(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	res, err := s.cb.Execute(func() (any, error) {
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return res, err
}

// Append добавляет запись через автомат защиты
func (s *GuardedStore) Append(ctx context.Context, entry models.Entry) (models.Entry, error) {
	res, err := s.call(ctx, func(ctx context.Context) (any, error) {
		return s.next.Append(ctx, entry)
	})
	if err != nil {
		return models.Entry{}, err
	}
	return res.(models.Entry), nil
}

// Latest возвращает последнюю запись
func (s *GuardedStore) Latest(ctx context.Context) (*models.Entry, error) {
	res, err := s.call(ctx, func(ctx context.Context) (any, error) {
		return s.next.Latest(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.(*models.Entry), nil
}

// SecondToLatest возвращает предпоследнюю запись
func (s *GuardedStore) SecondToLatest(ctx context.Context) (*models.Entry, error) {
	res, err := s.call(ctx, func(ctx context.Context) (any, error) {
		return s.next.SecondToLatest(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.(*models.Entry), nil
}

// Count возвращает количество записей
func (s *GuardedStore) Count(ctx context.Context) (int, error) {
	res, err := s.call(ctx, func(ctx context.Context) (any, error) {
		return s.next.Count(ctx)
	})
	if err != nil {
		return 0, err
	}
	return res.(int), nil
}

// List возвращает всю историю
func (s *GuardedStore) List(ctx context.Context) ([]models.Entry, error) {
	res, err := s.call(ctx, func(ctx context.Context) (any, error) {
		return s.next.List(ctx)
	})
	if err != nil {
		return nil, err
	}
	return res.([]models.Entry), nil
}
