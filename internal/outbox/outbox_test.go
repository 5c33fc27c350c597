package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oversightlab/missiondesk/internal/models"
	"github.com/oversightlab/missiondesk/pkg/mail"
)

type recordingMailer struct {
	mu       sync.Mutex
	sent     []mail.Message
	failFor  int // fail this many calls before succeeding
	attempts int
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.attempts <= m.failFor {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func openOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.OutboxEvent{}))
	return db
}

func TestEnqueueCommitsWithTransaction(t *testing.T) {
	db := openOutboxTestDB(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Enqueue(tx, models.EventMissionRejected, MissionRejectedPayload{
			MissionID:     "m1",
			MissionNumber: "MIS-2026-000001",
			Comment:       "photos missing",
			Recipient:     "lead@example.com",
		})
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("status = ?", models.OutboxPending).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestEnqueueRollsBackWithTransaction(t *testing.T) {
	db := openOutboxTestDB(t)

	sentinel := errors.New("domain mutation failed")
	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, Enqueue(tx, models.EventMissionSubmitted, MissionSubmittedPayload{
			MissionID: "m1", MissionNumber: "MIS-2026-000002", Recipients: []string{"rev@example.com"},
		}))
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}

func TestDispatchPendingDeliversAndMarks(t *testing.T) {
	db := openOutboxTestDB(t)
	mailer := &recordingMailer{}

	d, err := NewDispatcher(db, mailer)
	require.NoError(t, err)

	require.NoError(t, Enqueue(db, models.EventMissionRejected, MissionRejectedPayload{
		MissionNumber: "MIS-2026-000003",
		Comment:       "wrong location recorded",
		Recipient:     "lead@example.com",
	}))

	require.NoError(t, d.DispatchPending(context.Background()))

	require.Len(t, mailer.sent, 1)
	require.Equal(t, []string{"lead@example.com"}, mailer.sent[0].To)
	require.Contains(t, mailer.sent[0].Body, "wrong location recorded")

	var event models.OutboxEvent
	require.NoError(t, db.First(&event).Error)
	require.Equal(t, models.OutboxDelivered, event.Status)
	require.NotNil(t, event.DeliveredAt)
}

func TestDispatchMarksFailedAfterMaxAttempts(t *testing.T) {
	db := openOutboxTestDB(t)
	mailer := &recordingMailer{failFor: 1 << 30}

	d, err := NewDispatcher(db, mailer)
	require.NoError(t, err)
	d.maxAttempts = 1

	require.NoError(t, Enqueue(db, models.EventInvitationCreated, InvitationCreatedPayload{
		Recipient:        "new@example.com",
		OrganizationName: "Ponts et Chaussées",
		Token:            "tok",
	}))

	require.NoError(t, d.DispatchPending(context.Background()))

	var event models.OutboxEvent
	require.NoError(t, db.First(&event).Error)
	require.Equal(t, models.OutboxFailed, event.Status)
	require.NotEmpty(t, event.LastError)

	// maintenance requeues parked events
	require.NoError(t, d.RetryFailed(context.Background()))
	require.NoError(t, db.First(&event).Error)
	require.Equal(t, models.OutboxPending, event.Status)
	require.Zero(t, event.Attempts)
}

type disabledMailer struct{}

func (disabledMailer) Send(context.Context, mail.Message) error { return mail.ErrDisabled }

func TestDispatchDropsEventsWhenMailDisabled(t *testing.T) {
	db := openOutboxTestDB(t)

	d, err := NewDispatcher(db, disabledMailer{})
	require.NoError(t, err)

	require.NoError(t, Enqueue(db, models.EventMissionSubmitted, MissionSubmittedPayload{
		MissionNumber: "MIS-2026-000004",
		Recipients:    []string{"rev@example.com"},
	}))

	require.NoError(t, d.DispatchPending(context.Background()))

	var event models.OutboxEvent
	require.NoError(t, db.First(&event).Error)
	require.Equal(t, models.OutboxDelivered, event.Status)
}

func TestRenderMessageUnknownType(t *testing.T) {
	_, err := renderMessage(&models.OutboxEvent{Type: "mystery"})
	require.Error(t, err)
}
