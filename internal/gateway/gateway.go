// package gateway defines the boundary contracts the core calls out to:
// participant notifications, email delivery and meeting-room provisioning.
// All implementations are thin; failures of notification and email gateways
// are logged by the caller and never abort the surrounding operation.
package gateway

import (
	"context"
	"time"

	"github.com/peerview/interview-service/internal/domain"
)

// Notification kinds used across the core.
const (
	KindInterviewScheduled = "INTERVIEW_SCHEDULED"
	KindInterviewRejected  = "INTERVIEW_REJECTED"
	KindFeedbackRequested  = "FEEDBACK_REQUESTED"
)

// NotificationGateway delivers an in-app notification to a user.
type NotificationGateway interface {
	Send(ctx context.Context, userID, kind, payload string) error
}

// EmailGateway sends session lifecycle emails. Implementations deliver
// asynchronously; a returned nil only means the message was accepted.
type EmailGateway interface {
	SendScheduled(ctx context.Context, user, counterpart *domain.User, startTime time.Time, roomURL string) error
	SendRejected(ctx context.Context, user, rejector *domain.User, startTime time.Time) error
}

// MeetingProvider provisions a meeting room for a session. Selected once at
// startup from configuration. A failure here is fatal to pair creation.
type MeetingProvider interface {
	CreateRoom(ctx context.Context, topic string, startTime time.Time) (string, error)
}
