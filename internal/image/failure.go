package image

import (
	"errors"
	"fmt"
)

// Kind classifies why an image request failed.
type Kind string

const (
	KindConfiguration      Kind = "configuration_error"
	KindServiceUnavailable Kind = "service_unavailable"
	KindRouteNotFound      Kind = "route_not_found"
	KindEndpointRemoved    Kind = "endpoint_removed"
	KindRemote             Kind = "remote_error"
	KindEmptyPayload       Kind = "empty_payload"
	KindTransport          Kind = "transport_error"
)

// ErrEmptyPrompt is wrapped in a KindConfiguration failure when Generate is
// asked to render nothing.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Failure is the error returned for every failed image request.
type Failure struct {
	Kind     Kind
	Status   int    // HTTP status of the last response, 0 if none was received
	Body     string // response text kept for diagnostics
	Attempts int    // HTTP requests made, fallback included
	Err      error
}

func (f *Failure) Error() string {
	msg := string(f.Kind)
	if f.Status != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, f.Status)
	}
	if f.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, f.Body)
	}
	if f.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, f.Err)
	}
	if f.Attempts > 1 {
		msg = fmt.Sprintf("%s (after %d attempts)", msg, f.Attempts)
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf reports the failure kind carried by err, or "" when err is not a Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func configurationError(format string, args ...any) *Failure {
	return &Failure{Kind: KindConfiguration, Err: fmt.Errorf(format, args...)}
}
