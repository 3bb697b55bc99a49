package notify

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/config"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/db/models"
	"github.com/Mahmoudzaineldeen/booktifi-supabase-sub014/pkg/logger"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type outboxRepository interface {
	FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, err error) error
}

type eventDispatcher interface {
	Dispatch(ctx context.Context, event models.OutboxEvent) error
}

// Service drains the outbox and hands each event to the dispatcher. Events
// whose collaborators fail get their attempt counter bumped and are retried
// on a later poll until max attempts is reached.
type Service struct {
	repo         outboxRepository
	dispatcher   eventDispatcher
	logg         *logger.Logger
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(repo outboxRepository, dispatcher eventDispatcher, cfg config.OutboxConfig, logg *logger.Logger) *Service {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := cfg.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Service{
		repo:         repo,
		dispatcher:   dispatcher,
		logg:         logg,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}
}

// Run polls until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	interval := s.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "notify worker context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.ProcessBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "notify batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval
		if processed > 0 {
			continue
		}
		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

// ProcessBatch delivers one batch of unpublished events. Returns how many
// events were picked up.
func (s *Service) ProcessBatch(ctx context.Context) (int, error) {
	events, err := s.repo.FetchUnpublished(s.batchSize, s.maxAttempts)
	if err != nil {
		return 0, err
	}

	for _, event := range events {
		eventCtx := s.logg.WithFields(ctx, map[string]any{
			"outbox_id":     event.ID.String(),
			"event_type":    event.EventType,
			"attempt_count": event.AttemptCount,
		})

		if err := s.dispatcher.Dispatch(ctx, event); err != nil {
			s.logg.Warn(s.logg.WithField(eventCtx, "error", err.Error()), "event dispatch failed")
			if markErr := s.repo.MarkFailed(event.ID, err); markErr != nil {
				return len(events), markErr
			}
			continue
		}

		if err := s.repo.MarkPublished(event.ID); err != nil {
			return len(events), err
		}
		s.logg.Info(eventCtx, "event dispatched")
	}
	return len(events), nil
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}
