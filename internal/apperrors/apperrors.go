package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")

	ErrInvalidRequest = errors.New("invalid request body")
	ErrValidation     = errors.New("validation failed")

	ErrRequestConsumed          = errors.New("interview request is no longer active")
	ErrIncompletePair           = errors.New("matched pair must contain one candidate and one interviewer")
	ErrNoCommonSlot             = errors.New("matched requests share no time slot")
	ErrFeedbackSkillMismatch    = errors.New("feedback skill set does not match offered skills")
	ErrFeedbackAlreadySubmitted = errors.New("feedback already submitted for this interview")
)

type RequestConsumedError struct{ RequestID int64 }

func (e *RequestConsumedError) Error() string {
	return fmt.Sprintf("interview request '%d' is already consumed by another pair", e.RequestID)
}
func (e *RequestConsumedError) Is(target error) bool { return target == ErrRequestConsumed }

type SkillMismatchError struct {
	Missing []int64
	Unknown []int64
}

func (e *SkillMismatchError) Error() string {
	return fmt.Sprintf("feedback skill set mismatch: missing %v, unknown %v", e.Missing, e.Unknown)
}
func (e *SkillMismatchError) Is(target error) bool { return target == ErrFeedbackSkillMismatch }
