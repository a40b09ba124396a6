// Package queue connects the service to the shared matcher queue over Redis
// pub/sub. New requests are announced on one channel; externally matched
// pairs arrive on another and are booked through the lifecycle service.
package queue

import (
	"github.com/peerview/interview-service/internal/domain"
)

// RequestMessage announces a newly created interview request to the matcher
// queue.
type RequestMessage struct {
	RequestID    int64       `json:"requestId"`
	UserID       string      `json:"userId"`
	MasteryID    int64       `json:"masteryId"`
	Role         domain.Role `json:"role"`
	LanguageCode string      `json:"languageCode"`
}

// PairRequest identifies one side of an externally matched pair.
type PairRequest struct {
	ID   int64       `json:"id"`
	Role domain.Role `json:"role"`
}

// PairMessage carries a matched pair produced by an external matcher.
type PairMessage struct {
	Requests []PairRequest `json:"requests"`
}
