package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/oversightlab/missiondesk/internal/models"
	"github.com/oversightlab/missiondesk/pkg/logger"
	"github.com/oversightlab/missiondesk/pkg/mail"
	"github.com/oversightlab/missiondesk/pkg/metrics"
)

const defaultMaxAttempts = 5

// Dispatcher delivers pending outbox events as emails. Delivery is
// best-effort: a failed event is retried with backoff and eventually parked
// as failed, never affecting committed domain state.
type Dispatcher struct {
	db          *gorm.DB
	mailer      mail.Mailer
	log         *zap.Logger
	maxAttempts int
}

// NewDispatcher constructs a dispatcher over the given database and mailer.
func NewDispatcher(db *gorm.DB, mailer mail.Mailer) (*Dispatcher, error) {
	if db == nil {
		return nil, errors.New("outbox dispatcher: db is required")
	}
	if mailer == nil {
		return nil, errors.New("outbox dispatcher: mailer is required")
	}
	return &Dispatcher{
		db:          db,
		mailer:      mailer,
		log:         logger.WithModule("outbox"),
		maxAttempts: defaultMaxAttempts,
	}, nil
}

// Run polls for pending events until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.DispatchPending(ctx); err != nil {
				d.log.Error("dispatch cycle failed", zap.Error(err))
			}
		}
	}
}

// DispatchPending processes all pending events once, oldest first.
func (d *Dispatcher) DispatchPending(ctx context.Context) error {
	var events []models.OutboxEvent
	if err := d.db.WithContext(ctx).
		Where("status = ?", models.OutboxPending).
		Order("created_at ASC").
		Limit(100).
		Find(&events).Error; err != nil {
		return fmt.Errorf("outbox dispatcher: load pending events: %w", err)
	}

	for i := range events {
		d.dispatchOne(ctx, &events[i])
	}
	return nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, event *models.OutboxEvent) {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)

	err := backoff.Retry(func() error {
		return d.deliver(ctx, event)
	}, policy)

	event.Attempts++
	updates := map[string]any{"attempts": event.Attempts}

	switch {
	case err == nil:
		now := time.Now()
		updates["status"] = models.OutboxDelivered
		updates["delivered_at"] = &now
		updates["last_error"] = ""
		metrics.OutboxDeliveries.WithLabelValues(event.Type, "delivered").Inc()
	case event.Attempts >= d.maxAttempts:
		updates["status"] = models.OutboxFailed
		updates["last_error"] = err.Error()
		metrics.OutboxDeliveries.WithLabelValues(event.Type, "failed").Inc()
		d.log.Error("event parked as failed",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type),
			zap.Int("attempts", event.Attempts),
			zap.Error(err))
	default:
		updates["last_error"] = err.Error()
		metrics.OutboxDeliveries.WithLabelValues(event.Type, "retry").Inc()
		d.log.Warn("event delivery failed, will retry",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type),
			zap.Int("attempts", event.Attempts),
			zap.Error(err))
	}

	if dbErr := d.db.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Where("id = ?", event.ID).
		Updates(updates).Error; dbErr != nil {
		d.log.Error("update event state", zap.String("event_id", event.ID), zap.Error(dbErr))
	}
}

// RetryFailed re-queues failed events so the next cycle retries them.
// Invoked by the maintenance cron.
func (d *Dispatcher) RetryFailed(ctx context.Context) error {
	result := d.db.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Where("status = ?", models.OutboxFailed).
		Updates(map[string]any{"status": models.OutboxPending, "attempts": 0})
	if result.Error != nil {
		return fmt.Errorf("outbox dispatcher: requeue failed events: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		d.log.Info("requeued failed events", zap.Int64("count", result.RowsAffected))
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, event *models.OutboxEvent) error {
	msg, err := renderMessage(event)
	if err != nil {
		// Unrenderable payloads will never succeed; treat as permanent.
		return backoff.Permanent(err)
	}
	if err := d.mailer.Send(ctx, msg); err != nil {
		if errors.Is(err, mail.ErrDisabled) {
			d.log.Info("mail delivery disabled, dropping event",
				zap.String("event_id", event.ID),
				zap.String("type", event.Type))
			return nil
		}
		return err
	}
	return nil
}

func renderMessage(event *models.OutboxEvent) (mail.Message, error) {
	switch event.Type {
	case models.EventMissionSubmitted:
		var p MissionSubmittedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return mail.Message{}, fmt.Errorf("outbox: decode %s: %w", event.Type, err)
		}
		return mail.Message{
			To:      p.Recipients,
			Subject: fmt.Sprintf("Mission %s submitted for review", p.MissionNumber),
			Body: fmt.Sprintf("Mission %s, led by %s, has been submitted and awaits your review.",
				p.MissionNumber, p.TeamLeaderName),
		}, nil

	case models.EventMissionRejected:
		var p MissionRejectedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return mail.Message{}, fmt.Errorf("outbox: decode %s: %w", event.Type, err)
		}
		return mail.Message{
			To:      []string{p.Recipient},
			Subject: fmt.Sprintf("Mission %s was rejected", p.MissionNumber),
			Body: fmt.Sprintf("Mission %s was rejected by the reviewer.\n\nReview comment:\n%s",
				p.MissionNumber, p.Comment),
		}, nil

	case models.EventInvitationCreated:
		var p InvitationCreatedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			return mail.Message{}, fmt.Errorf("outbox: decode %s: %w", event.Type, err)
		}
		return mail.Message{
			To:      []string{p.Recipient},
			Subject: fmt.Sprintf("Invitation to join %s", p.OrganizationName),
			Body: fmt.Sprintf("You have been invited to join %s.\nYour invitation token: %s\nThe invitation expires on %s.",
				p.OrganizationName, p.Token, p.ExpiresAt.Format("2006-01-02")),
		}, nil

	default:
		return mail.Message{}, fmt.Errorf("outbox: unknown event type %q", event.Type)
	}
}
