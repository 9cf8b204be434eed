package apperr

import (
	"errors"
	"fmt"
)

// Error classes. Every rejection returned by the engine unwraps to one of
// these so callers can branch with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotEligible = errors.New("not eligible")
	ErrNotFound    = errors.New("not found")
	ErrStorage     = errors.New("storage failure")
)

// Rejection is an expected, user-facing outcome: a malformed input or a
// business rule that says no.
type Rejection struct {
	Kind    error
	Code    string
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

func (r *Rejection) Unwrap() error {
	return r.Kind
}

// Is matches another rejection with the same code, so sentinel rejections
// like ErrInsufficientFunds compare equal to freshly built ones.
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	if !ok {
		return false
	}
	return t.Code == r.Code
}

func Validation(code, format string, args ...any) *Rejection {
	return &Rejection{Kind: ErrValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotEligible(code, format string, args ...any) *Rejection {
	return &Rejection{Kind: ErrNotEligible, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(code, format string, args ...any) *Rejection {
	return &Rejection{Kind: ErrNotFound, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Storage marks err as a storage fault. Nil stays nil.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// Code returns the rejection code carried by err, or "" when err is not a
// rejection.
func Code(err error) string {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Code
	}
	return ""
}

var (
	ErrInsufficientFunds = NotEligible("insufficient_funds", "insufficient wallet balance")
	ErrDailyCapReached   = NotEligible("daily_cap_reached", "daily limit reached for this activity")
	ErrAlreadyClaimed    = NotEligible("already_claimed", "reward already claimed for this content today")
	ErrUserNotFound      = NotFound("user_not_found", "user not found")

	ErrDuplicateReference = NotEligible("duplicate_reference", "payment reference has already been settled")
)
