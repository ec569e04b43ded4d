package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/marqueeapp/marquee-server/internal/domain"
)

// CreateSession creates a new user session.
func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	key := sessionPrefix + session.ID
	tokenKey := sessionByTokenPrefix + session.RefreshTokenHash
	userIndexKey := sessionByUserPrefix + session.UserID + ":" + session.ID

	return s.RunTransaction(ctx, func(txn *badger.Txn) error {
		exists, err := existsTxn(txn, key)
		if err != nil {
			return fmt.Errorf("check session exists: %w", err)
		}
		if exists {
			return errors.New("session already exists")
		}

		if err := setTxn(txn, key, session); err != nil {
			return err
		}

		// Refresh token index
		if err := txn.Set([]byte(tokenKey), []byte(session.ID)); err != nil {
			return err
		}

		// User index for listing sessions
		return txn.Set([]byte(userIndexKey), []byte{})
	})
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(_ context.Context, id string) (*domain.Session, error) {
	key := buildKey(sessionPrefix, id)
	defer releaseKey(key)

	var session domain.Session
	if err := s.get(key, &session); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.IsExpired() {
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// GetSessionByRefreshToken retrieves a session by its refresh token hash.
// This is used during token refresh flow.
func (s *Store) GetSessionByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error) {
	tokenKey := buildKey(sessionByTokenPrefix, tokenHash)
	defer releaseKey(tokenKey)

	var sessionID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tokenKey)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			sessionID = string(val)
			return nil
		})
	})

	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("lookup session by token: %w", err)
	}

	return s.GetSession(ctx, sessionID)
}

// UpdateSession updates an existing session (used for token rotation and last seen).
// Rotating the refresh token moves the token index in the same transaction.
func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	key := sessionPrefix + session.ID

	return s.RunTransaction(ctx, func(txn *badger.Txn) error {
		var old domain.Session
		if err := getTxn(txn, key, &old); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("get session: %w", err)
		}

		if err := setTxn(txn, key, session); err != nil {
			return err
		}

		if old.RefreshTokenHash != session.RefreshTokenHash {
			oldTokenKey := sessionByTokenPrefix + old.RefreshTokenHash
			if err := txn.Delete([]byte(oldTokenKey)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			newTokenKey := sessionByTokenPrefix + session.RefreshTokenHash
			if err := txn.Set([]byte(newTokenKey), []byte(session.ID)); err != nil {
				return err
			}
		}

		return nil
	})
}

// DeleteSession deletes a session (logout). Deleting a session that is
// already gone is a no-op.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	key := sessionPrefix + sessionID

	return s.RunTransaction(ctx, func(txn *badger.Txn) error {
		// Read the session (even if expired) to clean up its indexes
		var session domain.Session
		if err := getTxn(txn, key, &session); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil // Already gone
			}
			return fmt.Errorf("get session for deletion: %w", err)
		}

		tokenKey := sessionByTokenPrefix + session.RefreshTokenHash
		userIndexKey := sessionByUserPrefix + session.UserID + ":" + sessionID

		for _, k := range []string{key, tokenKey, userIndexKey} {
			if err := txn.Delete([]byte(k)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}

		return nil
	})
}

// ListUserSessions returns all active sessions for a user.
func (s *Store) ListUserSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	prefix := []byte(sessionByUserPrefix + userID + ":")
	var sessions []*domain.Session

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false // We only need keys

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			// Key format: idx:sessions:user:userID:sessionID
			key := string(it.Item().Key())
			parts := strings.Split(key, ":")
			if len(parts) < 5 {
				continue
			}
			sessionID := parts[4]

			session, err := s.GetSession(ctx, sessionID)
			if err != nil {
				if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrSessionNotFound) {
					continue // Skip expired/missing sessions
				}
				return err
			}

			sessions = append(sessions, session)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}

	return sessions, nil
}

// DeleteAllUserSessions removes all sessions for a user.
// Used for logout-all and when credentials change.
func (s *Store) DeleteAllUserSessions(ctx context.Context, userID string) error {
	sessions, err := s.ListUserSessions(ctx, userID)
	if err != nil {
		return fmt.Errorf("list sessions for deletion: %w", err)
	}

	for _, session := range sessions {
		if err := s.DeleteSession(ctx, session.ID); err != nil {
			return fmt.Errorf("delete session %s: %w", session.ID, err)
		}
	}

	return nil
}

// DeleteExpiredSessions removes all expired sessions (cleanup job).
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int, error) {
	prefix := []byte(sessionPrefix)
	var expiredIDs []string

	// First pass: find expired sessions
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()

			err := item.Value(func(val []byte) error {
				var session domain.Session
				if unmarshalErr := json.Unmarshal(val, &session); unmarshalErr != nil {
					// Skip malformed sessions
					//nolint:nilerr // Intentionally returning nil to continue iteration
					return nil
				}

				if session.IsExpired() {
					expiredIDs = append(expiredIDs, session.ID)
				}

				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return 0, fmt.Errorf("find expired sessions: %w", err)
	}

	// Second pass: delete them
	for _, sessionID := range expiredIDs {
		if err := s.DeleteSession(ctx, sessionID); err != nil && s.logger != nil {
			s.logger.Warn("failed to delete expired session", "session_id", sessionID, "error", err)
		}
	}

	return len(expiredIDs), nil
}
