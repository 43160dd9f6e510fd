package biometric

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPlatform struct {
	supported bool
	available bool
	probeErr  error
	createErr error
	block     bool

	mu    sync.Mutex
	calls []*protocol.CredentialCreation
}

func (p *recordingPlatform) Supported() bool { return p.supported }

func (p *recordingPlatform) UserVerifyingPlatformAuthenticatorAvailable(context.Context) (bool, error) {
	return p.available, p.probeErr
}

func (p *recordingPlatform) Create(ctx context.Context, opts *protocol.CredentialCreation) (*Attestation, error) {
	p.mu.Lock()
	p.calls = append(p.calls, opts)
	p.mu.Unlock()
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.createErr != nil {
		return nil, p.createErr
	}
	return &Attestation{AttestationObject: []byte("attestation")}, nil
}

func (p *recordingPlatform) challenges() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, 0, len(p.calls))
	for _, c := range p.calls {
		out = append(out, c.Response.Challenge)
	}
	return out
}

func TestCapture_CapabilityUnsupported(t *testing.T) {
	platform := &recordingPlatform{supported: false, available: true}
	c := NewCapturer(platform)

	_, err := c.Capture(context.Background(), Slot1)

	require.ErrorIs(t, err, ErrCapabilityUnsupported)
	assert.Equal(t, KindCapabilityUnsupported, KindOf(err))
	assert.Equal(t, StateFailed, c.State(Slot1))
	assert.Empty(t, platform.calls, "no ceremony may start without the capability")
}

func TestCapture_NilPlatformIsUnsupported(t *testing.T) {
	c := NewCapturer(nil)
	_, err := c.Capture(context.Background(), Slot2)
	require.ErrorIs(t, err, ErrCapabilityUnsupported)
}

func TestCapture_AuthenticatorUnavailable(t *testing.T) {
	platform := &recordingPlatform{supported: true, available: false}
	c := NewCapturer(platform)

	_, err := c.Capture(context.Background(), Slot1)

	require.ErrorIs(t, err, ErrAuthenticatorUnavailable)
	assert.Equal(t, "Biometric authentication is not available", err.Error())
	assert.False(t, KindOf(err).Retryable())
	assert.Empty(t, platform.calls)
}

func TestCapture_ProbeErrorIsUnavailable(t *testing.T) {
	platform := &recordingPlatform{supported: true, available: true, probeErr: errors.New("agent down")}
	c := NewCapturer(platform)

	_, err := c.Capture(context.Background(), Slot1)
	require.ErrorIs(t, err, ErrAuthenticatorUnavailable)
}

func TestCapture_BuildsCreationRequest(t *testing.T) {
	platform := &recordingPlatform{supported: true, available: true}
	c := NewCapturer(platform, WithRelyingParty("Department App", "https://registry.example.edu:8443/dept"))

	artifact, err := c.Capture(context.Background(), Slot2)
	require.NoError(t, err)

	assert.Equal(t, Slot2, artifact.Slot)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("attestation")), artifact.Data)
	assert.Equal(t, StateCaptured, c.State(Slot2))

	require.Len(t, platform.calls, 1)
	opts := platform.calls[0].Response
	assert.Equal(t, "Department App", opts.RelyingParty.Name)
	assert.Equal(t, "registry.example.edu", opts.RelyingParty.ID)
	assert.Equal(t, "student@example.com", opts.User.Name)
	assert.Equal(t, "Student", opts.User.DisplayName)
	assert.Equal(t, protocol.URLEncodedBase64("STUDENT_ID"), opts.User.ID)
	require.Len(t, opts.Parameters, 1)
	assert.Equal(t, protocol.PublicKeyCredentialType, opts.Parameters[0].Type)
	assert.Equal(t, webauthncose.AlgES256, opts.Parameters[0].Algorithm)
	assert.Equal(t, protocol.Platform, opts.AuthenticatorSelection.AuthenticatorAttachment)
	assert.Equal(t, protocol.VerificationRequired, opts.AuthenticatorSelection.UserVerification)
	require.NotNil(t, opts.AuthenticatorSelection.RequireResidentKey)
	assert.False(t, *opts.AuthenticatorSelection.RequireResidentKey)
	assert.Equal(t, 60000, opts.Timeout)
	assert.Equal(t, protocol.PreferDirectAttestation, opts.Attestation)
	assert.Len(t, opts.Challenge, ChallengeSize)
}

func TestCapture_CaptureAsBindsIdentity(t *testing.T) {
	platform := &recordingPlatform{supported: true, available: true}
	c := NewCapturer(platform)

	_, err := c.CaptureAs(context.Background(), Slot1, UserIdentity{
		ID:          []byte("21CS01"),
		Name:        "a@x.com",
		DisplayName: "Alice",
	})
	require.NoError(t, err)

	opts := platform.calls[0].Response
	assert.Equal(t, protocol.URLEncodedBase64("21CS01"), opts.User.ID)
	assert.Equal(t, "a@x.com", opts.User.Name)
	assert.Equal(t, "Alice", opts.User.DisplayName)
}

func TestCapture_FailureCarriesUnderlyingMessage(t *testing.T) {
	platform := &recordingPlatform{supported: true, available: true, createErr: errors.New("The operation either timed out or was not allowed.")}
	c := NewCapturer(platform)

	_, err := c.Capture(context.Background(), Slot1)

	require.ErrorIs(t, err, ErrCaptureFailed)
	assert.Equal(t, "The operation either timed out or was not allowed.", err.Error())
	assert.True(t, KindOf(err).Retryable())
	assert.Equal(t, StateFailed, c.State(Slot1))
	assert.Equal(t, err, c.LastError(Slot1))
	assert.Len(t, platform.calls, 1, "failed ceremonies are not retried")
}

func TestCapture_TimeoutIsCaptureFailed(t *testing.T) {
	platform := &recordingPlatform{supported: true, available: true, block: true}
	c := NewCapturer(platform, WithTimeout(20*time.Millisecond))

	_, err := c.Capture(context.Background(), Slot1)

	require.ErrorIs(t, err, ErrCaptureFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")
}

func TestCapture_RetryUsesFreshChallenge(t *testing.T) {
	platform := &recordingPlatform{supported: true, available: true, createErr: errors.New("NotAllowedError")}
	c := NewCapturer(platform)

	_, err := c.Capture(context.Background(), Slot1)
	require.ErrorIs(t, err, ErrCaptureFailed)

	platform.createErr = nil
	_, err = c.Capture(context.Background(), Slot1)
	require.NoError(t, err)
	_, err = c.Capture(context.Background(), Slot1)
	require.NoError(t, err)

	challenges := platform.challenges()
	require.Len(t, challenges, 3)
	for i := range challenges {
		assert.Len(t, challenges[i], ChallengeSize)
		for j := i + 1; j < len(challenges); j++ {
			assert.False(t, bytes.Equal(challenges[i], challenges[j]), "challenge %d reused in attempt %d", i, j)
		}
	}
}

func TestCapture_ChallengeSourceFailure(t *testing.T) {
	platform := &recordingPlatform{supported: true, available: true}
	c := NewCapturer(platform, WithRandom(bytes.NewReader([]byte{1, 2, 3})))

	_, err := c.Capture(context.Background(), Slot1)

	require.ErrorIs(t, err, ErrCaptureFailed)
	assert.Empty(t, platform.calls)
}

func TestCapture_StateHookSequence(t *testing.T) {
	platform := &recordingPlatform{supported: true, available: true}
	var seen []State
	c := NewCapturer(platform, WithStateHook(func(slot Slot, st State) {
		assert.Equal(t, Slot1, slot)
		seen = append(seen, st)
	}))

	assert.Equal(t, StateIdle, c.State(Slot1))
	_, err := c.Capture(context.Background(), Slot1)
	require.NoError(t, err)

	assert.Equal(t, []State{StateScanning, StateCaptured}, seen)
}

func TestCapture_RejectsUnknownSlot(t *testing.T) {
	c := NewCapturer(&recordingPlatform{supported: true, available: true})
	_, err := c.Capture(context.Background(), Slot(3))
	require.Error(t, err)
}

func TestRelyingPartyID(t *testing.T) {
	id, err := RelyingParty{Origin: "http://localhost:3000"}.ID()
	require.NoError(t, err)
	assert.Equal(t, "localhost", id)

	_, err = RelyingParty{Origin: "not a url"}.ID()
	require.Error(t, err)
}
