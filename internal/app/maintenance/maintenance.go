package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iauth "github.com/oversightlab/missiondesk/internal/auth"
	"github.com/oversightlab/missiondesk/internal/outbox"
	"github.com/oversightlab/missiondesk/internal/services"
	"github.com/oversightlab/missiondesk/pkg/logger"
)

const (
	defaultSessionSpec    = "@hourly"
	defaultInvitationSpec = "@hourly"
	defaultOutboxSpec     = "@every 10m"
)

// Runner coordinates background maintenance: pruning expired sessions,
// cancelling overdue invitations and re-queuing failed outbox events.
type Runner struct {
	sessions    *iauth.SessionService
	invitations *services.InvitationService
	dispatcher  *outbox.Dispatcher
	cron        *cron.Cron
	log         *zap.Logger

	sessionSchedule    string
	invitationSchedule string
	outboxSchedule     string
}

// Option customises the Runner.
type Option func(*Runner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(r *Runner) {
		if c != nil {
			r.cron = c
		}
	}
}

// WithSessionSchedule overrides the cron specification for session pruning.
func WithSessionSchedule(spec string) Option {
	return func(r *Runner) {
		if spec != "" {
			r.sessionSchedule = spec
		}
	}
}

// WithInvitationSchedule overrides the cron specification for the invitation expiry sweep.
func WithInvitationSchedule(spec string) Option {
	return func(r *Runner) {
		if spec != "" {
			r.invitationSchedule = spec
		}
	}
}

// WithOutboxSchedule overrides the cron specification for retrying failed outbox events.
func WithOutboxSchedule(spec string) Option {
	return func(r *Runner) {
		if spec != "" {
			r.outboxSchedule = spec
		}
	}
}

// NewRunner constructs a Runner with sensible defaults. Any nil dependency
// results in the corresponding job being skipped.
func NewRunner(sessions *iauth.SessionService, invitations *services.InvitationService, dispatcher *outbox.Dispatcher, opts ...Option) *Runner {
	runner := &Runner{
		sessions:           sessions,
		invitations:        invitations,
		dispatcher:         dispatcher,
		log:                logger.WithModule("maintenance"),
		sessionSchedule:    defaultSessionSpec,
		invitationSchedule: defaultInvitationSpec,
		outboxSchedule:     defaultOutboxSpec,
	}

	for _, opt := range opts {
		opt(runner)
	}

	if runner.cron == nil {
		runner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return runner
}

// Start registers the jobs with the cron scheduler and launches it.
func (r *Runner) Start() error {
	if r.sessions != nil {
		if _, err := r.cron.AddFunc(r.sessionSchedule, func() {
			if _, err := r.sessions.PruneExpired(context.Background()); err != nil {
				r.log.Warn("session prune failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if r.invitations != nil {
		if _, err := r.cron.AddFunc(r.invitationSchedule, func() {
			if _, err := r.invitations.ExpireOverdue(context.Background()); err != nil {
				r.log.Warn("invitation expiry sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if r.dispatcher != nil {
		if _, err := r.cron.AddFunc(r.outboxSchedule, func() {
			if err := r.dispatcher.RetryFailed(context.Background()); err != nil {
				r.log.Warn("outbox retry failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	r.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (r *Runner) Stop() context.Context {
	if r.cron == nil {
		return context.Background()
	}
	return r.cron.Stop()
}

// RunOnce executes all configured maintenance routines sequentially. Used in
// tests and during graceful shutdown.
func (r *Runner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if r.sessions != nil {
		if _, err := r.sessions.PruneExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if r.invitations != nil {
		if _, err := r.invitations.ExpireOverdue(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if r.dispatcher != nil {
		if err := r.dispatcher.RetryFailed(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
