package service

import (
	"context"
	"time"

	apprepository "github.com/ClipsonBusiness/tracking-system-sub000/internal/app/repository"
	"go.uber.org/zap"
)

// WebhookBacklogChecker periodically counts stored deliveries that were
// never marked processed. A growing backlog means dispatch keeps
// failing and the sender is redelivering; operators see it in the logs
// before tenants notice missing conversions.
type WebhookBacklogChecker struct {
	logger   *zap.Logger
	repo     apprepository.WebhookEventRepository
	ttl      time.Duration
	interval time.Duration
	stopChan chan struct{}
}

// NewWebhookBacklogChecker creates a new backlog checker. ttl is how
// old an unprocessed event must be before it counts as stuck.
func NewWebhookBacklogChecker(logger *zap.Logger, repo apprepository.WebhookEventRepository, ttl time.Duration) *WebhookBacklogChecker {
	return &WebhookBacklogChecker{
		logger:   logger,
		repo:     repo,
		ttl:      ttl,
		interval: 5 * time.Minute,
		stopChan: make(chan struct{}),
	}
}

// Start begins the periodic checking.
func (c *WebhookBacklogChecker) Start() {
	go c.run()
}

// Stop stops the periodic checking.
func (c *WebhookBacklogChecker) Stop() {
	close(c.stopChan)
}

func (c *WebhookBacklogChecker) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.checkBacklog()
		case <-c.stopChan:
			c.logger.Info("webhook backlog checker stopped")
			return
		}
	}
}

func (c *WebhookBacklogChecker) checkBacklog() {
	ctx := context.Background()
	stuckBefore := time.Now().Add(-c.ttl)

	count, err := c.repo.CountUnprocessedBefore(ctx, stuckBefore)
	if err != nil {
		c.logger.Error("failed to count unprocessed webhook events", zap.Error(err))
		return
	}

	if count > 0 {
		c.logger.Warn("webhook events stuck unprocessed",
			zap.Int64("count", count),
			zap.Time("received_before", stuckBefore),
		)
	}
}
