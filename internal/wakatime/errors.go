package wakatime

import (
	"errors"
	"fmt"
)

// ErrFetchFailed matches every error returned by Client.FetchSummary via
// errors.Is. Callers that only care whether a summary arrived check this.
var ErrFetchFailed = errors.New("fetch failed")

// Kind classifies a failed fetch.
type Kind int

const (
	// KindTransport covers network failures and cancelled contexts.
	KindTransport Kind = iota
	// KindStatus is a response with a non-200 status code.
	KindStatus
	// KindParse is a response body that is not a valid summary.
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindParse:
		return "parse"
	}
	return "unknown"
}

// Error describes why a summary could not be fetched.
type Error struct {
	Kind   Kind
	Date   string
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("error requesting WakaTime summary for %s: API error %d: %v", e.Date, e.Status, e.Err)
	case KindParse:
		return fmt.Sprintf("error requesting WakaTime summary for %s: decoding response: %v", e.Date, e.Err)
	}
	return fmt.Sprintf("error requesting WakaTime summary for %s: %v", e.Date, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes every *Error match ErrFetchFailed.
func (e *Error) Is(target error) bool { return target == ErrFetchFailed }
