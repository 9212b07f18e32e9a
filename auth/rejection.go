package auth

import (
	"fmt"
	"net/http"
)

// RejectionKind classifies an expected, caller-facing refusal.
type RejectionKind int

const (
	KindMalformed       RejectionKind = iota + 1 // bad input shape or encoding
	KindUnauthenticated                          // window or signature failure
	KindInvalidToken                             // no active token for the id
	KindSession                                  // missing, expired or revoked session
	KindForbidden                                // identity not allowed
)

func (k RejectionKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInvalidToken:
		return "invalid_token"
	case KindSession:
		return "session"
	case KindForbidden:
		return "forbidden"
	default:
		return fmt.Sprintf("RejectionKind(%d)", int(k))
	}
}

// StatusCode maps the kind to its HTTP status.
func (k RejectionKind) StatusCode() int {
	switch k {
	case KindMalformed:
		return http.StatusBadRequest
	case KindUnauthenticated, KindInvalidToken, KindSession:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Rejection is returned for every expected refusal. Anything else coming out
// of the service is an infrastructure fault.
type Rejection struct {
	Kind    RejectionKind
	Message string // safe to show the caller

	cause error // internal detail, logged but never rendered
}

func (r *Rejection) Error() string {
	if r.cause != nil {
		return fmt.Sprintf("%s: %s: %v", r.Kind, r.Message, r.cause)
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Message)
}

func (r *Rejection) Unwrap() error {
	return r.cause
}

// Reject builds a rejection. cause may be nil.
func Reject(kind RejectionKind, message string, cause error) *Rejection {
	return &Rejection{Kind: kind, Message: message, cause: cause}
}

// Caller-visible messages.
const (
	MsgInvalidProof    = "invalid proof"
	MsgMalformedToken  = "malformed token id"
	MsgUserNotAllowed  = "user not allowed"
	MsgTokenRevoked    = "token revoked"
	MsgBadSession      = "bad_session"
	MsgInvalidToken    = "invalid token"
	MsgMissingArgument = "missing argument"
)

// invalidProof is shared by the window and the signature check so the two are
// indistinguishable to the caller.
func invalidProof(cause error) *Rejection {
	return Reject(KindUnauthenticated, MsgInvalidProof, cause)
}

func badSession(cause error) *Rejection {
	return Reject(KindSession, MsgBadSession, cause)
}
