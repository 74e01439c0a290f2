package ledger

import (
	"errors"

	"advisory/internal/repository"
)

// Kind is an HTTP-agnostic failure classification. Handlers map it to
// a status code in one place.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindBadRequest Kind = "bad_request"
	KindConflict   Kind = "conflict"
)

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

var (
	// ErrNotPremiumPlan rejects a subscription attempt on a plan sold
	// as one-time investment only.
	ErrNotPremiumPlan = &Error{Kind: KindBadRequest, Msg: "plan is not a premium plan"}

	// ErrClientNotRegistered rejects ledger operations for callers
	// without a client profile.
	ErrClientNotRegistered = &Error{Kind: KindNotFound, Msg: "client profile is not registered"}
)

func NotFound(what string) error {
	return &Error{Kind: KindNotFound, Msg: what + " not found"}
}

func BadRequest(msg string) error {
	return &Error{Kind: KindBadRequest, Msg: msg}
}

// KindOf extracts the classification from any error in the chain.
// Unclassified errors return "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, repository.ErrVersionConflict) {
		return KindConflict
	}
	return ""
}
