package http

import "time"

type createRequestRequest struct {
	UserID            string      `json:"user_id" validate:"required,custom_id,min=1,max=100"`
	MasteryID         int64       `json:"mastery_id" validate:"required,gt=0"`
	Role              string      `json:"role" validate:"required,oneof=CANDIDATE INTERVIEWER"`
	DesiredInterviews int         `json:"desired_interviews" validate:"required,gte=1,lte=20"`
	LanguageCode      string      `json:"language_code" validate:"required,min=2,max=10"`
	TimeSlots         []time.Time `json:"time_slots" validate:"required,min=1,max=50"`
}

type updateRequestRequest struct {
	RequestID         int64       `json:"request_id" validate:"required,gt=0"`
	UserID            string      `json:"user_id" validate:"required,custom_id,min=1,max=100"`
	DesiredInterviews int         `json:"desired_interviews" validate:"required,gte=1,lte=20"`
	LanguageCode      string      `json:"language_code" validate:"required,min=2,max=10"`
	TimeSlots         []time.Time `json:"time_slots" validate:"required,min=1,max=50"`
}

type withdrawRequestRequest struct {
	RequestID int64  `json:"request_id" validate:"required,gt=0"`
	UserID    string `json:"user_id" validate:"required,custom_id,min=1,max=100"`
}

type rejectInterviewRequest struct {
	InterviewID string `json:"interview_id" validate:"required,custom_id,min=1,max=100"`
	UserID      string `json:"user_id" validate:"required,custom_id,min=1,max=100"`
}

type submitFeedbackRequest struct {
	InterviewID string        `json:"interview_id" validate:"required,custom_id,min=1,max=100"`
	UserID      string        `json:"user_id" validate:"required,custom_id,min=1,max=100"`
	Marks       map[int64]int `json:"marks" validate:"required,min=1,dive,mark"`
}

type markNotificationReadRequest struct {
	NotificationID int64  `json:"notification_id" validate:"required,gt=0"`
	UserID         string `json:"user_id" validate:"required,custom_id,min=1,max=100"`
}
