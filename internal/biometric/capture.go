// Package biometric performs platform credential-creation ceremonies and turns
// their attestation objects into transportable artifacts.
package biometric

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"go.uber.org/zap"
)

// State is the per-attempt capture state exposed to callers.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateCaptured
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "Scanning"
	case StateCaptured:
		return "Captured"
	case StateFailed:
		return "Failed"
	default:
		return "Idle"
	}
}

// Attestation is the platform's answer to a successful ceremony.
type Attestation struct {
	CredentialID      []byte
	AttestationObject []byte
	ClientDataJSON    []byte
}

// Platform is the native authenticator surface of the execution environment.
type Platform interface {
	// Supported reports whether the environment exposes public-key credentials at all.
	Supported() bool
	// UserVerifyingPlatformAuthenticatorAvailable reports whether a platform
	// authenticator that verifies the user can be used right now.
	UserVerifyingPlatformAuthenticatorAvailable(ctx context.Context) (bool, error)
	// Create runs one credential-creation ceremony and blocks until it resolves.
	Create(ctx context.Context, opts *protocol.CredentialCreation) (*Attestation, error)
}

// Capturer performs exactly one ceremony per Capture call. It never caches
// challenges or artifacts between attempts.
type Capturer struct {
	platform Platform
	rp       RelyingParty
	timeout  time.Duration
	random   io.Reader
	logger   *zap.Logger
	onState  func(Slot, State)

	mu     sync.Mutex
	states map[Slot]State
	last   map[Slot]error
}

type settings struct {
	rpName  string
	origin  string
	timeout time.Duration
	random  io.Reader
	logger  *zap.Logger
	onState func(Slot, State)
}

// Option configures a Capturer.
type Option func(*settings)

// WithRelyingParty sets the relying-party name and the origin its ID is derived from.
func WithRelyingParty(name, origin string) Option {
	return func(s *settings) {
		s.rpName = name
		s.origin = origin
	}
}

// WithTimeout sets the ceremony timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithRandom replaces the challenge source. It must be cryptographically secure
// outside of tests.
func WithRandom(r io.Reader) Option {
	return func(s *settings) { s.random = r }
}

// WithLogger sets a custom logger for the capturer.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithStateHook registers a callback invoked on every state transition.
func WithStateHook(fn func(Slot, State)) Option {
	return func(s *settings) { s.onState = fn }
}

func applyOptions(opts []Option) settings {
	s := settings{
		rpName:  defaultRPName,
		origin:  "http://localhost",
		timeout: defaultTimeout,
		random:  rand.Reader,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// NewCapturer creates a capturer bound to a platform.
func NewCapturer(platform Platform, opts ...Option) *Capturer {
	s := applyOptions(opts)
	return &Capturer{
		platform: platform,
		rp:       RelyingParty{Name: s.rpName, Origin: s.origin},
		timeout:  s.timeout,
		random:   s.random,
		logger:   s.logger,
		onState:  s.onState,
		states:   make(map[Slot]State),
		last:     make(map[Slot]error),
	}
}

// State returns the state of the most recent attempt for slot.
func (c *Capturer) State(slot Slot) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[slot]
}

// LastError returns the failure of the most recent attempt for slot, if any.
func (c *Capturer) LastError(slot Slot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last[slot]
}

func (c *Capturer) transition(slot Slot, st State, err error) {
	c.mu.Lock()
	c.states[slot] = st
	c.last[slot] = err
	hook := c.onState
	c.mu.Unlock()
	if hook != nil {
		hook(slot, st)
	}
}

// Capture runs one ceremony with the placeholder user identity.
func (c *Capturer) Capture(ctx context.Context, slot Slot) (Artifact, error) {
	return c.CaptureAs(ctx, slot, PlaceholderIdentity)
}

// CaptureAs runs one ceremony binding the credential to user. The slot is only
// used to tag the resulting artifact and track state.
func (c *Capturer) CaptureAs(ctx context.Context, slot Slot, user UserIdentity) (Artifact, error) {
	if !slot.Valid() {
		return Artifact{}, fmt.Errorf("unknown %s", slot)
	}

	if c.platform == nil || !c.platform.Supported() {
		c.transition(slot, StateFailed, ErrCapabilityUnsupported)
		return Artifact{}, ErrCapabilityUnsupported
	}

	available, err := c.platform.UserVerifyingPlatformAuthenticatorAvailable(ctx)
	if err != nil {
		c.logger.Debug("authenticator availability check failed", zap.Error(err))
	}
	if err != nil || !available {
		c.transition(slot, StateFailed, ErrAuthenticatorUnavailable)
		return Artifact{}, ErrAuthenticatorUnavailable
	}

	c.transition(slot, StateScanning, nil)

	challenge, err := newChallenge(c.random)
	if err != nil {
		return c.fail(slot, err)
	}
	opts, err := creationOptions(c.rp, user, challenge, c.timeout)
	if err != nil {
		return c.fail(slot, err)
	}

	ceremonyCtx, cancel := context.WithTimeout(ctx, time.Duration(opts.Response.Timeout)*time.Millisecond)
	defer cancel()

	att, err := c.platform.Create(ceremonyCtx, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("the operation timed out: %w", err)
		}
		return c.fail(slot, err)
	}
	if att == nil || len(att.AttestationObject) == 0 {
		return c.fail(slot, errors.New("platform returned no attestation object"))
	}

	artifact := NewArtifact(slot, att.AttestationObject)
	c.transition(slot, StateCaptured, nil)
	c.logger.Info("fingerprint captured",
		zap.Int("slot", int(slot)),
		zap.Int("attestation_bytes", len(att.AttestationObject)),
	)
	return artifact, nil
}

func (c *Capturer) fail(slot Slot, err error) (Artifact, error) {
	capErr := captureFailed(err)
	c.transition(slot, StateFailed, capErr)
	c.logger.Warn("fingerprint capture failed", zap.Int("slot", int(slot)), zap.Error(err))
	return Artifact{}, capErr
}
