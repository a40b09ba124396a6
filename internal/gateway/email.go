package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	resend "github.com/resend/resend-go/v2"
	"github.com/peerview/interview-service/internal/config"
	"github.com/peerview/interview-service/internal/domain"
	"github.com/peerview/interview-service/pkg/logger/sl"
)

// ResendEmailGateway sends session emails through the Resend API.
// Delivery happens in a goroutine so a slow or failing provider never
// blocks the calling operation.
type ResendEmailGateway struct {
	client *resend.Client
	sender string
	log    *slog.Logger
}

var _ EmailGateway = (*ResendEmailGateway)(nil)

func NewResendEmailGateway(cfg config.Email, log *slog.Logger) *ResendEmailGateway {
	var client *resend.Client
	if cfg.APIKey != "" {
		client = resend.NewClient(cfg.APIKey)
	}

	return &ResendEmailGateway{
		client: client,
		sender: cfg.Sender,
		log:    log,
	}
}

func (g *ResendEmailGateway) SendScheduled(_ context.Context, user, counterpart *domain.User, startTime time.Time, roomURL string) error {
	subject := "Your mock interview is scheduled"
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your interview with %s is scheduled for %s.</p><p>Join here: <a href=%q>%s</a></p>",
		user.Username, counterpart.Username, startTime.Format(time.RFC1123), roomURL, roomURL,
	)

	g.sendAsync(user.Email, subject, body)

	return nil
}

func (g *ResendEmailGateway) SendRejected(_ context.Context, user, rejector *domain.User, startTime time.Time) error {
	subject := "Your mock interview was cancelled"
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>%s cancelled the interview scheduled for %s. Your request is back in the matching pool.</p>",
		user.Username, rejector.Username, startTime.Format(time.RFC1123),
	)

	g.sendAsync(user.Email, subject, body)

	return nil
}

func (g *ResendEmailGateway) sendAsync(toEmail, subject, htmlBody string) {
	if g.client == nil {
		g.log.Warn("resend client not configured, skipping email", slog.String("to", toEmail))
		return
	}

	go func() {
		params := &resend.SendEmailRequest{
			From:    g.sender,
			To:      []string{toEmail},
			Subject: subject,
			Html:    htmlBody,
		}

		if _, err := g.client.Emails.Send(params); err != nil {
			g.log.Error("failed to send email", sl.Err(err), slog.String("to", toEmail), slog.String("subject", subject))
			return
		}

		g.log.Info("email sent", slog.String("to", toEmail), slog.String("subject", subject))
	}()
}
