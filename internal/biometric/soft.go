package biometric

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

const (
	flagUserPresent  byte = 0x01
	flagUserVerified byte = 0x04
	flagAttestedData byte = 0x40

	credentialIDSize = 32
)

// SoftPlatform is an in-process authenticator that answers ceremonies with a
// freshly generated P-256 key and a packed self-attestation. It stands in for
// a fingerprint reader during development and in tests.
type SoftPlatform struct {
	// Origin is reported in the client data.
	Origin string
	// Unavailable makes the availability probe answer false.
	Unavailable bool
	// Reject, when set, is returned from every ceremony.
	Reject error
}

// NewSoftPlatform creates an available soft authenticator for origin.
func NewSoftPlatform(origin string) *SoftPlatform {
	return &SoftPlatform{Origin: origin}
}

// Supported always reports true.
func (p *SoftPlatform) Supported() bool { return true }

// UserVerifyingPlatformAuthenticatorAvailable reports !p.Unavailable.
func (p *SoftPlatform) UserVerifyingPlatformAuthenticatorAvailable(ctx context.Context) (bool, error) {
	return !p.Unavailable, ctx.Err()
}

// Create generates a new credential for the requested relying party.
func (p *SoftPlatform) Create(ctx context.Context, opts *protocol.CredentialCreation) (*Attestation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Reject != nil {
		return nil, p.Reject
	}
	if opts == nil {
		return nil, errors.New("missing creation options")
	}
	req := opts.Response
	if !supportsES256(req.Parameters) {
		return nil, errors.New("no supported algorithm in pubKeyCredParams")
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate credential key: %w", err)
	}
	credentialID := make([]byte, credentialIDSize)
	if _, err := rand.Read(credentialID); err != nil {
		return nil, fmt.Errorf("generate credential id: %w", err)
	}

	clientData, err := json.Marshal(map[string]any{
		"type":        "webauthn.create",
		"challenge":   base64.RawURLEncoding.EncodeToString(req.Challenge),
		"origin":      p.Origin,
		"crossOrigin": false,
	})
	if err != nil {
		return nil, err
	}

	em, err := cbor.CTAP2EncOptions().EncMode()
	if err != nil {
		return nil, err
	}

	coseKey, err := encodeCOSEKey(em, key)
	if err != nil {
		return nil, err
	}

	rpIDHash := sha256.Sum256([]byte(req.RelyingParty.ID))
	authData := make([]byte, 0, authDataHeaderLength+16+2+credentialIDSize+len(coseKey))
	authData = append(authData, rpIDHash[:]...)
	authData = append(authData, flagUserPresent|flagUserVerified|flagAttestedData)
	authData = binary.BigEndian.AppendUint32(authData, 0)
	authData = append(authData, make([]byte, 16)...) // zero AAGUID
	authData = binary.BigEndian.AppendUint16(authData, credentialIDSize)
	authData = append(authData, credentialID...)
	authData = append(authData, coseKey...)

	format := "packed"
	attStmt := map[string]any{}
	if req.Attestation == protocol.PreferNoAttestation {
		format = "none"
	} else {
		clientDataHash := sha256.Sum256(clientData)
		signed := sha256.Sum256(append(append([]byte{}, authData...), clientDataHash[:]...))
		sig, err := ecdsa.SignASN1(rand.Reader, key, signed[:])
		if err != nil {
			return nil, fmt.Errorf("sign attestation: %w", err)
		}
		attStmt["alg"] = int64(webauthncose.AlgES256)
		attStmt["sig"] = sig
	}

	object, err := em.Marshal(attestationObject{Format: format, AuthData: authData, AttStmt: attStmt})
	if err != nil {
		return nil, fmt.Errorf("encode attestation object: %w", err)
	}

	return &Attestation{
		CredentialID:      credentialID,
		AttestationObject: object,
		ClientDataJSON:    clientData,
	}, nil
}

func supportsES256(params []protocol.CredentialParameter) bool {
	for _, p := range params {
		if p.Type == protocol.PublicKeyCredentialType && p.Algorithm == webauthncose.AlgES256 {
			return true
		}
	}
	return false
}

func encodeCOSEKey(em cbor.EncMode, key *ecdsa.PrivateKey) ([]byte, error) {
	pub, err := key.PublicKey.ECDH()
	if err != nil {
		return nil, fmt.Errorf("convert public key: %w", err)
	}
	raw := pub.Bytes() // 0x04 || X || Y
	return em.Marshal(map[int]any{
		1:  int64(webauthncose.EllipticKey),
		3:  int64(webauthncose.AlgES256),
		-1: int64(webauthncose.P256),
		-2: raw[1:33],
		-3: raw[33:65],
	})
}

// NoPlatform models an environment without public-key credential support.
type NoPlatform struct{}

func (NoPlatform) Supported() bool { return false }

func (NoPlatform) UserVerifyingPlatformAuthenticatorAvailable(context.Context) (bool, error) {
	return false, nil
}

func (NoPlatform) Create(context.Context, *protocol.CredentialCreation) (*Attestation, error) {
	return nil, ErrCapabilityUnsupported
}
