package biometric

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-webauthn/webauthn/protocol"
)

// Slot identifies which of the required biometric samples a capture fills.
type Slot int

const (
	Slot1 Slot = 1
	Slot2 Slot = 2
)

// Slots lists every slot an enrollment must fill before it can be submitted.
var Slots = []Slot{Slot1, Slot2}

// Valid reports whether s is one of the known slots.
func (s Slot) Valid() bool {
	for _, known := range Slots {
		if s == known {
			return true
		}
	}
	return false
}

// FieldName is the request field the slot is serialized under.
func (s Slot) FieldName() string {
	return fmt.Sprintf("fingerprint%d", int(s))
}

func (s Slot) String() string {
	return fmt.Sprintf("slot %d", int(s))
}

// Artifact is the base64 text of one attestation object, tagged with the slot
// it was captured for. It is immutable once produced.
type Artifact struct {
	Slot Slot
	Data string
}

// NewArtifact encodes a raw attestation object for transport.
func NewArtifact(slot Slot, attestationObject []byte) Artifact {
	return Artifact{Slot: slot, Data: base64.StdEncoding.EncodeToString(attestationObject)}
}

// Empty reports whether the artifact carries no data.
func (a Artifact) Empty() bool { return a.Data == "" }

// AttestationSummary describes the decoded content of an artifact.
type AttestationSummary struct {
	Format         string
	RPIDHash       []byte
	UserPresent    bool
	UserVerified   bool
	HasCredential  bool
	SignCount      uint32
	AuthDataLength int
}

type attestationObject struct {
	Format   string         `cbor:"fmt"`
	AuthData []byte         `cbor:"authData"`
	AttStmt  map[string]any `cbor:"attStmt"`
}

const authDataHeaderLength = 37

// Inspect decodes an artifact's attestation object. The console uses it for
// diagnostics only; the backend remains the verifier.
func Inspect(a Artifact) (*AttestationSummary, error) {
	raw, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return nil, fmt.Errorf("artifact is not base64: %w", err)
	}

	var obj attestationObject
	if err := cbor.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode attestation object: %w", err)
	}
	if len(obj.AuthData) < authDataHeaderLength {
		return nil, fmt.Errorf("authenticator data too short: %d bytes", len(obj.AuthData))
	}

	flags := protocol.AuthenticatorFlags(obj.AuthData[32])
	return &AttestationSummary{
		Format:         obj.Format,
		RPIDHash:       obj.AuthData[:32],
		UserPresent:    flags.UserPresent(),
		UserVerified:   flags.UserVerified(),
		HasCredential:  flags.HasAttestedCredentialData(),
		SignCount:      binary.BigEndian.Uint32(obj.AuthData[33:37]),
		AuthDataLength: len(obj.AuthData),
	}, nil
}
