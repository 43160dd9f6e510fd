package biometric

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/google/uuid"
)

const probeTimeout = 2 * time.Second

// Capabilities is what the authenticator agent reports about its host.
type Capabilities struct {
	Supported           bool   `json:"supported"`
	UVPlatformAvailable bool   `json:"uv_platform_available"`
	Authenticator       string `json:"authenticator,omitempty"`
}

// AgentPlatform calls a companion authenticator agent running on the operator's
// machine. The agent owns the native fingerprint reader and performs the
// ceremony on our behalf.
type AgentPlatform struct {
	BaseURL string
	HTTP    *http.Client

	// probed holds the capabilities fetched by Supported until the
	// availability check of the same attempt consumes them.
	mu     sync.Mutex
	probed *Capabilities
}

// NewAgentPlatform creates an agent client. timeout bounds every request and
// must exceed the ceremony timeout.
func NewAgentPlatform(baseURL string, timeout time.Duration) *AgentPlatform {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &AgentPlatform{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Health checks if the agent is reachable.
func (p *AgentPlatform) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("authenticator agent unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("authenticator agent unhealthy: %s", resp.Status)
	}
	return nil
}

// Capabilities asks the agent what its host can do.
func (p *AgentPlatform) Capabilities(ctx context.Context) (*Capabilities, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/capabilities", nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authenticator agent request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("authenticator agent error %s: %s", resp.Status, string(bodyBytes))
	}

	var out Capabilities
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// Supported reports whether an agent is configured and says the host supports
// public-key credentials. The Platform interface gives it no context, so the
// request is bounded by a short timeout of its own.
func (p *AgentPlatform) Supported() bool {
	if p == nil || p.BaseURL == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	caps, err := p.Capabilities(ctx)
	if err != nil {
		return false
	}
	p.mu.Lock()
	p.probed = caps
	p.mu.Unlock()
	return caps.Supported
}

// UserVerifyingPlatformAuthenticatorAvailable asks the agent for a usable
// fingerprint authenticator. It answers from the capabilities fetched by the
// preceding Supported call when there is one.
func (p *AgentPlatform) UserVerifyingPlatformAuthenticatorAvailable(ctx context.Context) (bool, error) {
	p.mu.Lock()
	caps := p.probed
	p.probed = nil
	p.mu.Unlock()

	if caps == nil {
		var err error
		if caps, err = p.Capabilities(ctx); err != nil {
			return false, err
		}
	}
	return caps.UVPlatformAvailable, nil
}

// Create forwards the creation request to the agent and waits for the
// operator to complete the ceremony.
func (p *AgentPlatform) Create(ctx context.Context, opts *protocol.CredentialCreation) (*Attestation, error) {
	if opts == nil {
		return nil, errors.New("missing creation options")
	}

	body, err := json.Marshal(map[string]any{
		"request_id": uuid.NewString(),
		"publicKey":  opts.Response,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/credentials/create", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authenticator agent request failed: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		CredentialID      string `json:"credential_id"`
		AttestationObject string `json:"attestation_object"`
		ClientDataJSON    string `json:"client_data_json"`
		Error             string `json:"error"`
	}
	bodyBytes, _ := io.ReadAll(resp.Body)
	if len(bodyBytes) > 0 {
		if err := json.Unmarshal(bodyBytes, &out); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	if resp.StatusCode >= 300 {
		if out.Error != "" {
			return nil, errors.New(out.Error)
		}
		return nil, fmt.Errorf("authenticator agent error %s: %s", resp.Status, string(bodyBytes))
	}

	attObj, err := base64.StdEncoding.DecodeString(out.AttestationObject)
	if err != nil {
		return nil, fmt.Errorf("agent returned invalid attestation object: %w", err)
	}
	credID, _ := base64.RawURLEncoding.DecodeString(out.CredentialID)
	clientData, _ := base64.StdEncoding.DecodeString(out.ClientDataJSON)

	return &Attestation{
		CredentialID:      credID,
		AttestationObject: attObj,
		ClientDataJSON:    clientData,
	}, nil
}
