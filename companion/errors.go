package companion

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyUtterance is returned when a submission is blank after trimming.
	ErrEmptyUtterance = errors.New("utterance is empty")

	// ErrBusy is returned when a submission arrives while another is in
	// flight. The transcript is not touched and no endpoint call is made.
	ErrBusy = errors.New("a request is already in flight")

	// ErrSessionClosed is returned for operations on a closed session.
	ErrSessionClosed = errors.New("session is closed")
)

// ErrorKind classifies an endpoint failure.
type ErrorKind int

const (
	// ErrorTransient covers network faults, rate limits and anything else
	// the user can recover from by resubmitting.
	ErrorTransient ErrorKind = iota

	// ErrorCredential covers a missing or rejected API credential.
	ErrorCredential
)

// credentialErrorMarkers are the known substrings the vendor includes in
// authorization failures. The endpoint exposes no structured error codes,
// so this matching is brittle by nature: a wording change upstream silently
// downgrades credential errors to transient ones.
var credentialErrorMarkers = []string{
	"API_KEY_INVALID",
	"Requested entity was not found",
}

// ClassifyError maps an endpoint error to its kind.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorTransient
	}
	msg := err.Error()
	for _, marker := range credentialErrorMarkers {
		if strings.Contains(msg, marker) {
			return ErrorCredential
		}
	}
	return ErrorTransient
}
