// Package enrollment holds the state of one "add student" action: the profile
// being typed and the two fingerprint artifacts, up to a single submission.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"regdesk/internal/biometric"
)

// Field names accepted by SetField. They match the request keys of the
// student-creation endpoint.
const (
	FieldName   = "name"
	FieldRollNo = "roll_no"
	FieldEmail  = "email"
	FieldClass  = "class"
)

var (
	ErrUnknownField   = errors.New("unknown profile field")
	ErrNotSubmittable = errors.New("enrollment is incomplete")
	ErrDiscarded      = errors.New("enrollment was discarded")
)

// Profile is the student record typed by the operator.
type Profile struct {
	Name   string `json:"name"`
	RollNo string `json:"roll_no"`
	Email  string `json:"email"`
	Class  string `json:"class"`
}

// Complete reports whether every field is non-empty.
func (p Profile) Complete() bool {
	return p.Name != "" && p.RollNo != "" && p.Email != "" && p.Class != ""
}

// Identity derives the credential user from the profile. ok is false until
// both the roll number and email are known.
func (p Profile) Identity() (biometric.UserIdentity, bool) {
	if p.RollNo == "" || p.Email == "" {
		return biometric.UserIdentity{}, false
	}
	display := p.Name
	if display == "" {
		display = p.RollNo
	}
	return biometric.UserIdentity{
		ID:          []byte(p.RollNo),
		Name:        p.Email,
		DisplayName: display,
	}, true
}

// Request is the student-creation payload.
type Request struct {
	Profile
	Fingerprint1 string `json:"fingerprint1"`
	Fingerprint2 string `json:"fingerprint2"`
}

// Student is a record returned by the backend.
type Student struct {
	RollNo string `json:"roll_no"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Class  string `json:"class"`
	DeptID int64  `json:"dept_id"`
}

// Submitter issues the student-creation request. Implementations return a
// single human-readable error on failure.
type Submitter interface {
	AddStudent(ctx context.Context, req Request) (*Student, error)
}

// Capturer performs one fingerprint ceremony.
type Capturer interface {
	Capture(ctx context.Context, slot biometric.Slot) (biometric.Artifact, error)
	CaptureAs(ctx context.Context, slot biometric.Slot, user biometric.UserIdentity) (biometric.Artifact, error)
}

// Session aggregates one profile and at most one artifact per slot. It is
// owned by a single operator action and is not shared.
type Session struct {
	bindProfile bool

	mu        sync.Mutex
	profile   Profile
	artifacts map[biometric.Slot]biometric.Artifact
	discarded bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithProfileBinding makes Capture bind the credential to the student once
// roll number and email are entered. Without it the placeholder identity is
// sent.
func WithProfileBinding(enabled bool) SessionOption {
	return func(s *Session) { s.bindProfile = enabled }
}

// NewSession opens an empty enrollment.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{artifacts: make(map[biometric.Slot]biometric.Artifact, len(biometric.Slots))}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetField replaces one profile attribute. The value is not validated.
func (s *Session) SetField(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discarded {
		return ErrDiscarded
	}

	switch name {
	case FieldName:
		s.profile.Name = value
	case FieldRollNo:
		s.profile.RollNo = value
	case FieldEmail:
		s.profile.Email = value
	case FieldClass:
		s.profile.Class = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// Profile returns a copy of the current profile.
func (s *Session) Profile() Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// RecordCapture stores the artifact under its slot, replacing any earlier
// one. Results for a discarded session are dropped.
func (s *Session) RecordCapture(a biometric.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.discarded {
		return ErrDiscarded
	}
	if !a.Slot.Valid() {
		return fmt.Errorf("cannot record artifact for %s", a.Slot)
	}
	s.artifacts[a.Slot] = a
	return nil
}

// Artifact returns the stored artifact for slot.
func (s *Session) Artifact(slot biometric.Slot) (biometric.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.artifacts[slot]
	return a, ok
}

// IsSubmittable reports whether every profile field is set and every slot
// holds an artifact.
func (s *Session) IsSubmittable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submittableLocked()
}

func (s *Session) submittableLocked() bool {
	if s.discarded || !s.profile.Complete() {
		return false
	}
	for _, slot := range biometric.Slots {
		if a, ok := s.artifacts[slot]; !ok || a.Empty() {
			return false
		}
	}
	return true
}

// Discarded reports whether the session has been closed.
func (s *Session) Discarded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discarded
}

// Discard closes the session. In-flight captures and submissions complete but
// their results are ignored.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = true
	s.artifacts = make(map[biometric.Slot]biometric.Artifact)
	s.profile = Profile{}
}

// Capture runs one ceremony for slot and records the result. On failure the
// stored artifacts are left as they were.
func (s *Session) Capture(ctx context.Context, c Capturer, slot biometric.Slot) (biometric.Artifact, error) {
	if s.Discarded() {
		return biometric.Artifact{}, ErrDiscarded
	}

	var (
		artifact biometric.Artifact
		err      error
	)
	if user, ok := s.Profile().Identity(); s.bindProfile && ok {
		artifact, err = c.CaptureAs(ctx, slot, user)
	} else {
		artifact, err = c.Capture(ctx, slot)
	}
	if err != nil {
		return biometric.Artifact{}, err
	}

	if err := s.RecordCapture(artifact); err != nil {
		return biometric.Artifact{}, err
	}
	return artifact, nil
}

// Request builds the creation payload from the current state.
func (s *Session) Request() (Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.submittableLocked() {
		if s.discarded {
			return Request{}, ErrDiscarded
		}
		return Request{}, ErrNotSubmittable
	}
	return Request{
		Profile:      s.profile,
		Fingerprint1: s.artifacts[biometric.Slot1].Data,
		Fingerprint2: s.artifacts[biometric.Slot2].Data,
	}, nil
}

// Submit sends the enrollment. It refuses to dispatch anything unless the
// session is submittable. A successful submission discards the session; a
// failed one leaves it untouched for another attempt.
func (s *Session) Submit(ctx context.Context, sub Submitter) (*Student, error) {
	req, err := s.Request()
	if err != nil {
		return nil, err
	}

	student, err := sub.AddStudent(ctx, req)
	if s.Discarded() {
		return nil, ErrDiscarded
	}
	if err != nil {
		return nil, err
	}

	s.Discard()
	return student, nil
}
