// Package session persists the admin and department bearer tokens between
// console invocations.
package session

import (
	"context"
	"errors"
	"sync"
)

// Kind selects one of the two independent tokens.
type Kind int

const (
	Admin Kind = iota + 1
	Department
)

// Key is the storage key the token is kept under.
func (k Kind) Key() string {
	switch k {
	case Admin:
		return "token"
	case Department:
		return "deptToken"
	default:
		return ""
	}
}

func (k Kind) String() string {
	switch k {
	case Admin:
		return "admin"
	case Department:
		return "department"
	default:
		return "unknown"
	}
}

var (
	ErrNoToken     = errors.New("no token stored")
	ErrUnknownKind = errors.New("unknown token kind")
)

// Store keeps one token per Kind. Implementations are safe for concurrent use.
type Store interface {
	// Get returns ErrNoToken when nothing is stored for kind.
	Get(ctx context.Context, kind Kind) (string, error)
	// Set replaces the stored token.
	Set(ctx context.Context, kind Kind, token string) error
	// Clear removes the token. Clearing an absent token is not an error.
	Clear(ctx context.Context, kind Kind) error
}

// MemoryStore keeps tokens for the lifetime of the process.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, kind Kind) (string, error) {
	key := kind.Key()
	if key == "" {
		return "", ErrUnknownKind
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[key]
	if !ok || token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (s *MemoryStore) Set(_ context.Context, kind Kind, token string) error {
	key := kind.Key()
	if key == "" {
		return ErrUnknownKind
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[key] = token
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, kind Kind) error {
	key := kind.Key()
	if key == "" {
		return ErrUnknownKind
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, key)
	return nil
}
