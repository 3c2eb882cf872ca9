// ABOUTME: Conversation identifier persistence for the parley adapter
// ABOUTME: Lazily creates, parses, and resets the UUID stored in the preference store

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/2389/parley/internal/store"
)

// conversationIDKey is the fixed preference key holding the active
// conversation identifier.
const conversationIDKey = "conversation_id"

// IdentifierStore manages the locally persisted conversation identifier.
// The identifier is created lazily on first use and only ever overwritten,
// never deleted.
type IdentifierStore struct {
	prefs  store.Preferences
	logger *slog.Logger
}

// NewIdentifierStore creates an IdentifierStore backed by the given
// preference store. Pass nil logger for default.
func NewIdentifierStore(prefs store.Preferences, logger *slog.Logger) *IdentifierStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentifierStore{
		prefs:  prefs,
		logger: logger.With("component", "session"),
	}
}

// GetOrCreate returns the persisted conversation identifier, generating and
// persisting a new one if none is stored. A stored value that fails to parse
// as a UUID is replaced with a freshly generated identifier which is
// persisted immediately, so the store and the returned value never diverge.
func (s *IdentifierStore) GetOrCreate(ctx context.Context) (uuid.UUID, error) {
	stored, err := s.prefs.Get(ctx, conversationIDKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return uuid.Nil, fmt.Errorf("reading conversation id: %w", err)
	}

	if errors.Is(err, store.ErrNotFound) || stored == "" {
		return s.generate(ctx)
	}

	id, parseErr := uuid.Parse(stored)
	if parseErr != nil {
		s.logger.Warn("stored conversation id is corrupted, regenerating",
			"stored", stored,
			"error", parseErr)
		return s.generate(ctx)
	}

	return id, nil
}

// Reset overwrites the stored identifier with a new UUID and returns it.
// The caller is responsible for deriving a new conversation client from
// the returned identifier.
func (s *IdentifierStore) Reset(ctx context.Context) (uuid.UUID, error) {
	id, err := s.generate(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("conversation identifier reset", "conversation_id", id)
	return id, nil
}

// generate creates a new UUID and persists it under the fixed key.
func (s *IdentifierStore) generate(ctx context.Context) (uuid.UUID, error) {
	id := uuid.New()
	if err := s.prefs.Set(ctx, conversationIDKey, id.String()); err != nil {
		return uuid.Nil, fmt.Errorf("persisting conversation id: %w", err)
	}
	return id, nil
}
