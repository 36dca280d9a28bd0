package threads

import (
	"errors"
)

var (
	ErrSignInRequired  = errors.New("sign in required")
	ErrValidation      = errors.New("validation failed")
	ErrRemote          = errors.New("remote call failed")
	ErrNotInteractive  = errors.New("record is not interactive")
	ErrNotFound        = errors.New("record not found")
	ErrRefreshCooldown = errors.New("refresh cooldown")
)

// Outcome is what every engine operation reports to its caller. Failures are
// classified by Err (one of the sentinels above); Message is meant for the user.
type Outcome struct {
	Success bool             `json:"success"`
	Status  ModerationStatus `json:"status,omitempty"`
	Message string           `json:"message,omitempty"`
	Err     error            `json:"-"`
}

func (o Outcome) Code() string {
	switch {
	case o.Err == nil:
		return ""
	case errors.Is(o.Err, ErrSignInRequired):
		return "SIGN_IN_REQUIRED"
	case errors.Is(o.Err, ErrValidation):
		return "VALIDATION"
	case errors.Is(o.Err, ErrNotInteractive):
		return "NOT_INTERACTIVE"
	case errors.Is(o.Err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(o.Err, ErrRefreshCooldown):
		return "REFRESH_COOLDOWN"
	default:
		return "REMOTE_FAILURE"
	}
}

func succeed(msg string) Outcome { return Outcome{Success: true, Message: msg} }

func fail(err error, msg string) Outcome { return Outcome{Err: err, Message: msg} }

// PublicError is implemented by backend errors that carry a message safe to
// show to the user.
type PublicError interface {
	error
	PublicMessage() string
}

// remoteFailure converts a backend error into an Outcome, preferring the
// server message over the action's fallback.
func remoteFailure(err error, fallback string) Outcome {
	msg := fallback
	var pe PublicError
	if errors.As(err, &pe) && pe.PublicMessage() != "" {
		msg = pe.PublicMessage()
	}
	return Outcome{Err: errors.Join(ErrRemote, err), Message: msg}
}

// moderated turns a confirmed moderation status into the success outcome for
// a submission of the given kind ("comment" or "reply").
func moderated(status ModerationStatus, kind string) Outcome {
	switch status {
	case StatusRejected:
		return Outcome{Success: true, Status: StatusRejected,
			Message: "Your " + kind + " was rejected because it violates our content guidelines."}
	case StatusNeedsReview:
		return Outcome{Success: true, Status: StatusNeedsReview,
			Message: "Your " + kind + " is pending review."}
	default:
		return Outcome{Success: true, Status: StatusApproved, Message: "Your " + kind + " was posted."}
	}
}
