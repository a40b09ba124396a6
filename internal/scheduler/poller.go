// Package scheduler runs the periodic feedback reminder job.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/peerview/interview-service/internal/domain"
	"github.com/peerview/interview-service/internal/gateway"
	"github.com/peerview/interview-service/pkg/logger/sl"
)

// PendingFeedbackLister is the slice of the interview store the poller needs.
type PendingFeedbackLister interface {
	ListPendingFeedback(ctx context.Context, from, to time.Time) ([]domain.Interview, error)
}

// FeedbackPoller periodically finds sessions whose start time has passed
// without complete feedback and reminds the participants. Each run looks at
// a fixed window ending now, so a session is reminded about once.
type FeedbackPoller struct {
	log           *slog.Logger
	interviews    PendingFeedbackLister
	notifications gateway.NotificationGateway
	window        time.Duration
	schedule      string
	cron          *cron.Cron
	now           func() time.Time
}

func NewFeedbackPoller(
	log *slog.Logger,
	interviews PendingFeedbackLister,
	notifications gateway.NotificationGateway,
	schedule string,
	window time.Duration,
) *FeedbackPoller {
	return &FeedbackPoller{
		log:           log,
		interviews:    interviews,
		notifications: notifications,
		window:        window,
		schedule:      schedule,
		now:           time.Now,
	}
}

// Start registers the cron job and begins running it on the configured
// schedule.
func (p *FeedbackPoller) Start(ctx context.Context) error {
	const op = "internal.scheduler.poller.Start"

	p.cron = cron.New()

	if _, err := p.cron.AddFunc(p.schedule, func() {
		if err := p.Run(ctx); err != nil {
			p.log.Error("feedback poll failed", slog.String("op", op), sl.Err(err))
		}
	}); err != nil {
		return err
	}

	p.cron.Start()
	p.log.Info("feedback poller started", slog.String("schedule", p.schedule))

	return nil
}

// Stop halts the cron scheduler and waits for a running job to finish.
func (p *FeedbackPoller) Stop() {
	if p.cron == nil {
		return
	}

	<-p.cron.Stop().Done()
}

// Run executes one poll: every session that started inside the window and
// still lacks complete feedback gets a reminder per participant. A failed
// reminder is logged and skipped; the next run covers a fresh window.
func (p *FeedbackPoller) Run(ctx context.Context) error {
	const op = "internal.scheduler.poller.Run"
	log := p.log.With(slog.String("op", op))

	to := p.now()
	from := to.Add(-p.window)

	rows, err := p.interviews.ListPendingFeedback(ctx, from, to)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		log.Debug("no sessions awaiting feedback")
		return nil
	}

	log.Info("reminding participants about pending feedback", slog.Int("count", len(rows)))

	for _, row := range rows {
		payload := "Your interview has finished, please submit feedback"
		if err := p.notifications.Send(ctx, row.UserID, gateway.KindFeedbackRequested, payload); err != nil {
			log.Error("failed to send feedback reminder",
				sl.Err(err),
				slog.String("interview_id", row.InterviewID),
				slog.String("user_id", row.UserID),
			)
		}
	}

	return nil
}
