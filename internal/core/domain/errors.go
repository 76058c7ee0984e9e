package domain

import "errors"

// Camera and snapshot failures.
var (
	ErrPermissionDenied  = errors.New("domain: permission denied")
	ErrDeviceUnavailable = errors.New("domain: camera device unavailable")
	ErrNotReady          = errors.New("domain: camera stream not ready")
	ErrEmptyFrame        = errors.New("domain: captured frame is empty")
	ErrInvalidImage      = errors.New("domain: invalid image data")
)

// Remote analysis failures.
var (
	ErrNetwork           = errors.New("domain: network error")
	ErrRateLimited       = errors.New("domain: rate limited")
	ErrEmptyResponse     = errors.New("domain: empty response from analyzer")
	ErrMalformedResponse = errors.New("domain: malformed analyzer response")
)

// Session flow failures.
var (
	ErrNotFound          = errors.New("domain: not found")
	ErrAnalysisInFlight  = errors.New("domain: analysis already in progress")
	ErrInvalidTransition = errors.New("domain: invalid state transition")
	ErrNoSelection       = errors.New("domain: song index out of range")
)

// ErrorKind is a stable, client-facing code for an error.
type ErrorKind string

const (
	KindPermissionDenied  ErrorKind = "PERMISSION_DENIED"
	KindDeviceUnavailable ErrorKind = "DEVICE_UNAVAILABLE"
	KindNotReady          ErrorKind = "NOT_READY"
	KindEmptyFrame        ErrorKind = "EMPTY_FRAME"
	KindInvalidImage      ErrorKind = "INVALID_IMAGE"
	KindNetwork           ErrorKind = "NETWORK_ERROR"
	KindRateLimited       ErrorKind = "RATE_LIMITED"
	KindEmptyResponse     ErrorKind = "EMPTY_RESPONSE"
	KindMalformedResponse ErrorKind = "MALFORMED_RESPONSE"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindAnalysisInFlight  ErrorKind = "ANALYSIS_IN_FLIGHT"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindNoSelection       ErrorKind = "NO_SELECTION"
	KindInternal          ErrorKind = "INTERNAL"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrPermissionDenied, KindPermissionDenied},
	{ErrDeviceUnavailable, KindDeviceUnavailable},
	{ErrNotReady, KindNotReady},
	{ErrEmptyFrame, KindEmptyFrame},
	{ErrInvalidImage, KindInvalidImage},
	{ErrRateLimited, KindRateLimited},
	{ErrNetwork, KindNetwork},
	{ErrEmptyResponse, KindEmptyResponse},
	{ErrMalformedResponse, KindMalformedResponse},
	{ErrNotFound, KindNotFound},
	{ErrAnalysisInFlight, KindAnalysisInFlight},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrNoSelection, KindNoSelection},
}

// KindOf returns the code of the first known sentinel in err's chain.
// Unknown errors report KindInternal; nil reports an empty kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
