package biometric

import "errors"

// Kind classifies why a capture did not produce an artifact.
type Kind int

const (
	// KindCapabilityUnsupported means the environment has no public-key credential capability.
	KindCapabilityUnsupported Kind = iota + 1
	// KindAuthenticatorUnavailable means no user-verifying platform authenticator is available.
	KindAuthenticatorUnavailable
	// KindCaptureFailed means the ceremony was rejected, timed out or errored.
	KindCaptureFailed
)

func (k Kind) String() string {
	switch k {
	case KindCapabilityUnsupported:
		return "CapabilityUnsupported"
	case KindAuthenticatorUnavailable:
		return "AuthenticatorUnavailable"
	case KindCaptureFailed:
		return "CaptureFailed"
	default:
		return "Unknown"
	}
}

// Retryable reports whether re-invoking capture can succeed without changing
// the environment.
func (k Kind) Retryable() bool { return k == KindCaptureFailed }

var (
	ErrCapabilityUnsupported    = &Error{Kind: KindCapabilityUnsupported, Message: "WebAuthn is not supported by this platform"}
	ErrAuthenticatorUnavailable = &Error{Kind: KindAuthenticatorUnavailable, Message: "Biometric authentication is not available"}
	ErrCaptureFailed            = &Error{Kind: KindCaptureFailed, Message: "fingerprint capture failed"}
)

// Error is returned by Capture. Message is shown to the operator verbatim.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind so callers can use errors.Is with the
// package sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func captureFailed(err error) error {
	return &Error{Kind: KindCaptureFailed, Message: err.Error(), Err: err}
}

// KindOf extracts the capture error kind, or 0 when err is not a capture error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
