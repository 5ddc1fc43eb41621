package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Manchinn/cslogbook-reconciler/internal/models"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// NotificationServiceConfig sizes the dispatch worker pool.
type NotificationServiceConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationService delivers alert rows asynchronously so a slow insert
// never stalls a sweep. Delivery is at-least-once: a retried insert may
// duplicate a row, which downstream consumers tolerate.
type NotificationService struct {
	repo   notificationStore
	logger *zap.Logger
	cfg    NotificationServiceConfig

	pending chan pendingNotification
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

type pendingNotification struct {
	notification models.Notification
	attempt      int
}

// NewNotificationService constructs the dispatcher with defaults.
func NewNotificationService(repo notificationStore, logger *zap.Logger, cfg NotificationServiceConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &NotificationService{
		repo:    repo,
		logger:  logger,
		cfg:     cfg,
		pending: make(chan pendingNotification, cfg.BufferSize),
	}
}

// Start launches the dispatch workers. Safe to call once.
func (s *NotificationService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	s.started = true
	s.logger.Info("notification dispatcher started", zap.Int("workers", s.cfg.Workers))
}

// Stop cancels workers and waits for them to exit.
func (s *NotificationService) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Info("notification dispatcher stopped")
}

// NotifyOverdue queues an alert for one project that just crossed a hard
// deadline. Fire-and-forget: a full buffer drops the alert with a warning
// rather than blocking the sweep.
func (s *NotificationService) NotifyOverdue(projectID string, deadline *models.Deadline) {
	n := models.Notification{
		RecipientID:   projectID,
		RecipientType: models.RecipientTypeStudent,
		Title:         "Deadline missed",
		Message:       fmt.Sprintf("The deadline %q (%s %s) has passed without a submission. Your project has been marked overdue.", deadline.Name, deadline.AcademicYear, deadline.Term),
		Priority:      models.NotificationPriorityHigh,
		RelatedTo:     deadline.ID,
	}
	s.enqueue(pendingNotification{notification: n})
}

func (s *NotificationService) enqueue(p pendingNotification) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		s.logger.Warn("notification dropped, dispatcher not started", zap.String("recipient", p.notification.RecipientID))
		return
	}

	select {
	case s.pending <- p:
	default:
		s.logger.Warn("notification dropped, buffer full", zap.String("recipient", p.notification.RecipientID), zap.String("related_to", p.notification.RelatedTo))
	}
}

func (s *NotificationService) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case p := <-s.pending:
			if err := s.repo.Create(s.ctx, &p.notification); err != nil {
				s.handleFailure(p, err)
			}
		}
	}
}

func (s *NotificationService) handleFailure(p pendingNotification, err error) {
	p.attempt++
	if p.attempt > s.cfg.MaxRetries {
		s.logger.Error("notification delivery exceeded retries", zap.String("recipient", p.notification.RecipientID), zap.String("related_to", p.notification.RelatedTo), zap.Error(err))
		return
	}
	s.logger.Warn("notification delivery failed, retrying", zap.Int("attempt", p.attempt), zap.Error(err))

	go func(p pendingNotification) {
		timer := time.NewTimer(s.cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-s.ctx.Done():
		case <-timer.C:
			s.enqueue(p)
		}
	}(p)
}
