package biometric

import (
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

// ChallengeSize is the number of random bytes in every ceremony challenge.
const ChallengeSize = 32

const (
	defaultRPName  = "Department App"
	defaultTimeout = 60 * time.Second
)

// UserIdentity is the relying-party user bound to a new platform credential.
type UserIdentity struct {
	ID          []byte
	Name        string
	DisplayName string
}

// PlaceholderIdentity is the static user sent when no identity is supplied.
// It is not derived from the student being enrolled.
var PlaceholderIdentity = UserIdentity{
	ID:          []byte("STUDENT_ID"),
	Name:        "student@example.com",
	DisplayName: "Student",
}

// RelyingParty names the entity on whose behalf credentials are created.
type RelyingParty struct {
	Name   string
	Origin string
}

// ID is the relying-party identifier: the host of the origin, without port.
func (rp RelyingParty) ID() (string, error) {
	u, err := url.Parse(rp.Origin)
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", rp.Origin, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("origin %q has no host", rp.Origin)
	}
	return host, nil
}

func newChallenge(r io.Reader) (protocol.URLEncodedBase64, error) {
	challenge := make([]byte, ChallengeSize)
	if _, err := io.ReadFull(r, challenge); err != nil {
		return nil, fmt.Errorf("generate challenge: %w", err)
	}
	return challenge, nil
}

// creationOptions builds the credential-creation request for one ceremony.
func creationOptions(rp RelyingParty, user UserIdentity, challenge protocol.URLEncodedBase64, timeout time.Duration) (*protocol.CredentialCreation, error) {
	rpID, err := rp.ID()
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &protocol.CredentialCreation{
		Response: protocol.PublicKeyCredentialCreationOptions{
			RelyingParty: protocol.RelyingPartyEntity{
				CredentialEntity: protocol.CredentialEntity{Name: rp.Name},
				ID:               rpID,
			},
			User: protocol.UserEntity{
				CredentialEntity: protocol.CredentialEntity{Name: user.Name},
				DisplayName:      user.DisplayName,
				ID:               protocol.URLEncodedBase64(user.ID),
			},
			Challenge: challenge,
			Parameters: []protocol.CredentialParameter{
				{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgES256},
			},
			AuthenticatorSelection: protocol.AuthenticatorSelection{
				AuthenticatorAttachment: protocol.Platform,
				RequireResidentKey:      protocol.ResidentKeyNotRequired(),
				UserVerification:        protocol.VerificationRequired,
			},
			Timeout:     int(timeout / time.Millisecond),
			Attestation: protocol.PreferDirectAttestation,
		},
	}, nil
}
