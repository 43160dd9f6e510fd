package biometric

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftPlatform_ProducesInspectableArtifact(t *testing.T) {
	c := NewCapturer(NewSoftPlatform("http://localhost:3000"), WithRelyingParty("Department App", "http://localhost:3000"))

	artifact, err := c.Capture(context.Background(), Slot1)
	require.NoError(t, err)
	require.False(t, artifact.Empty())

	summary, err := Inspect(artifact)
	require.NoError(t, err)

	expected := sha256.Sum256([]byte("localhost"))
	assert.Equal(t, "packed", summary.Format)
	assert.Equal(t, expected[:], summary.RPIDHash)
	assert.True(t, summary.UserPresent)
	assert.True(t, summary.UserVerified)
	assert.True(t, summary.HasCredential)
	assert.Zero(t, summary.SignCount)
}

func TestSoftPlatform_NewCredentialEveryCeremony(t *testing.T) {
	c := NewCapturer(NewSoftPlatform("http://localhost"))

	first, err := c.Capture(context.Background(), Slot1)
	require.NoError(t, err)
	second, err := c.Capture(context.Background(), Slot1)
	require.NoError(t, err)

	assert.NotEqual(t, first.Data, second.Data)
}

func TestSoftPlatform_Unavailable(t *testing.T) {
	p := NewSoftPlatform("http://localhost")
	p.Unavailable = true

	_, err := NewCapturer(p).Capture(context.Background(), Slot1)
	require.ErrorIs(t, err, ErrAuthenticatorUnavailable)
}

func TestSoftPlatform_Reject(t *testing.T) {
	p := NewSoftPlatform("http://localhost")
	p.Reject = errors.New("user cancelled")

	_, err := NewCapturer(p).Capture(context.Background(), Slot2)
	require.ErrorIs(t, err, ErrCaptureFailed)
	assert.Equal(t, "user cancelled", err.Error())
}

func TestNoPlatform(t *testing.T) {
	_, err := NewCapturer(NoPlatform{}).Capture(context.Background(), Slot1)
	require.ErrorIs(t, err, ErrCapabilityUnsupported)
}

func TestInspect_RejectsGarbage(t *testing.T) {
	_, err := Inspect(Artifact{Slot: Slot1, Data: "%%%"})
	require.Error(t, err)

	_, err = Inspect(NewArtifact(Slot1, []byte{0xa0}))
	require.Error(t, err)
}

func TestSlotFieldName(t *testing.T) {
	assert.Equal(t, "fingerprint1", Slot1.FieldName())
	assert.Equal(t, "fingerprint2", Slot2.FieldName())
	assert.False(t, Slot(0).Valid())
}

func newAgentServer(t *testing.T, caps Capabilities, create http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/capabilities", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(caps)
	})
	mux.HandleFunc("/credentials/create", create)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestAgentPlatform_Create(t *testing.T) {
	server := newAgentServer(t, Capabilities{Supported: true, UVPlatformAvailable: true}, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST method, got %s", r.Method)
		}
		var body struct {
			RequestID string         `json:"request_id"`
			PublicKey map[string]any `json:"publicKey"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body.RequestID)
		assert.Equal(t, "direct", body.PublicKey["attestation"])
		assert.EqualValues(t, 60000, body.PublicKey["timeout"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"credential_id":      base64.RawURLEncoding.EncodeToString([]byte("cred")),
			"attestation_object": base64.StdEncoding.EncodeToString([]byte("att-obj")),
		})
	})

	agent := NewAgentPlatform(server.URL, 5*time.Second)
	require.NoError(t, agent.Health(context.Background()))

	artifact, err := NewCapturer(agent).Capture(context.Background(), Slot1)
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("att-obj")), artifact.Data)
}

func TestAgentPlatform_CeremonyRejected(t *testing.T) {
	server := newAgentServer(t, Capabilities{Supported: true, UVPlatformAvailable: true}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "NotAllowedError: user cancelled"})
	})

	_, err := NewCapturer(NewAgentPlatform(server.URL, time.Second)).Capture(context.Background(), Slot2)
	require.ErrorIs(t, err, ErrCaptureFailed)
	assert.Equal(t, "NotAllowedError: user cancelled", err.Error())
}

func TestAgentPlatform_NoReader(t *testing.T) {
	server := newAgentServer(t, Capabilities{Supported: true, UVPlatformAvailable: false}, func(w http.ResponseWriter, r *http.Request) {
		t.Error("ceremony must not start without an authenticator")
	})

	_, err := NewCapturer(NewAgentPlatform(server.URL, time.Second)).Capture(context.Background(), Slot1)
	require.ErrorIs(t, err, ErrAuthenticatorUnavailable)
}

func TestAgentPlatform_OneCapabilitiesRequestPerCapture(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/capabilities", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(Capabilities{Supported: true, UVPlatformAvailable: true})
	})
	mux.HandleFunc("/credentials/create", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"attestation_object": base64.StdEncoding.EncodeToString([]byte("att-obj")),
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	capturer := NewCapturer(NewAgentPlatform(server.URL, time.Second))
	_, err := capturer.Capture(context.Background(), Slot1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())

	_, err = capturer.Capture(context.Background(), Slot2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load(), "every attempt probes afresh")
}

func TestAgentPlatform_AvailabilityWithoutProbe(t *testing.T) {
	server := newAgentServer(t, Capabilities{Supported: true, UVPlatformAvailable: true}, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no ceremony expected")
	})

	ok, err := NewAgentPlatform(server.URL, time.Second).UserVerifyingPlatformAuthenticatorAvailable(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAgentPlatform_Unreachable(t *testing.T) {
	agent := NewAgentPlatform("http://127.0.0.1:1", time.Second)
	assert.False(t, agent.Supported())

	var unset *AgentPlatform
	assert.False(t, unset.Supported())
}
