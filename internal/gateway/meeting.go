package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peerview/interview-service/internal/config"
)

// NewMeetingProvider selects the configured meeting room implementation once
// at startup. Unknown provider names are a startup failure, not a runtime one.
func NewMeetingProvider(cfg config.Meeting) (MeetingProvider, error) {
	switch cfg.Provider {
	case "static":
		return &StaticMeetingProvider{baseURL: strings.TrimRight(cfg.BaseURL, "/")}, nil
	default:
		return nil, fmt.Errorf("unknown meeting provider '%s'", cfg.Provider)
	}
}

// StaticMeetingProvider issues room links under a fixed base URL without
// calling out to a real conferencing backend.
type StaticMeetingProvider struct {
	baseURL string
}

var _ MeetingProvider = (*StaticMeetingProvider)(nil)

func (p *StaticMeetingProvider) CreateRoom(_ context.Context, _ string, _ time.Time) (string, error) {
	return p.baseURL + "/" + uuid.NewString(), nil
}
