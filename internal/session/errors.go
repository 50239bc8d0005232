package session

import (
	"errors"
	"net/http"

	"github.com/planet-dev/planet/internal/remote"
)

// Validation errors. Intents that return one of these were rejected before
// any state mutation or network call.
var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrAskBusy       = errors.New("a question is already awaiting an answer")
	ErrUploadBusy    = errors.New("an upload is already in progress")
	ErrNoDocument    = errors.New("no document given")
)

// errInvalidTransition guards the status machine; seeing it means a caller
// inside this package broke the begin/settle pairing.
var errInvalidTransition = errors.New("invalid status transition")

// genericTransportDetail is shown when a request never got a response.
const genericTransportDetail = "network error"

// invalidResponseDetail is shown when a success response was unreadable.
const invalidResponseDetail = "the server sent a response that could not be read"

// IsValidation reports whether err is one of the validation errors.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyQuestion) ||
		errors.Is(err, ErrAskBusy) ||
		errors.Is(err, ErrUploadBusy) ||
		errors.Is(err, ErrNoDocument)
}

// Kind classifies a failed operation.
type Kind int

const (
	// KindRemoteRejection means the server answered with a non-success status.
	KindRemoteRejection Kind = iota + 1
	// KindTransportFailure means no response was received.
	KindTransportFailure
	// KindInvalidResponse means the server answered with success but the
	// body could not be read.
	KindInvalidResponse
)

func (k Kind) String() string {
	switch k {
	case KindRemoteRejection:
		return "remote_rejection"
	case KindTransportFailure:
		return "transport_failure"
	case KindInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// Error is the normalized failure of an upload or ask. Error() returns the
// user-facing detail verbatim.
type Error struct {
	Op     Op
	Kind   Kind
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// normalize turns a transport-level error into an *Error.
func normalize(op Op, err error) *Error {
	var se *remote.StatusError
	if errors.As(err, &se) {
		detail := se.Detail
		if detail == "" {
			detail = http.StatusText(se.StatusCode)
		}
		if detail == "" {
			detail = se.Error()
		}
		return &Error{Op: op, Kind: KindRemoteRejection, Status: se.StatusCode, Detail: detail, Err: err}
	}
	var re *remote.ResponseError
	if errors.As(err, &re) {
		return &Error{Op: op, Kind: KindInvalidResponse, Status: re.StatusCode, Detail: invalidResponseDetail, Err: err}
	}
	return &Error{Op: op, Kind: KindTransportFailure, Detail: genericTransportDetail, Err: err}
}
