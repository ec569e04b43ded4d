package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/marqueeapp/marquee-server/internal/domain"
	"github.com/marqueeapp/marquee-server/internal/normalize"
)

var (
	// ErrUserNotFound is returned when a user cannot be found by ID or email.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when attempting to create a user with an existing ID.
	ErrUserExists = errors.New("user already exists")
	// ErrEmailExists is returned when attempting to create a user with an email that's already in use.
	ErrEmailExists = errors.New("email already in use")
	// ErrNicknameTaken is returned when a nickname reservation already exists
	// for the folded form of the requested nickname.
	ErrNicknameTaken = errors.New("nickname already taken")
	// ErrSessionNotFound is returned when a session cannot be found by ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when attempting to use an expired session.
	ErrSessionExpired = errors.New("session expired")
)

// CreateUserWithNickname creates a user document together with its
// nickname reservation in one transaction. The reservation's existence
// is the sole source of truth for "nickname taken": the reservation
// check and both writes commit or fail as a unit, so two concurrent
// signups for the same folded nickname can never both succeed.
// user.NicknameKey must already hold the folded form.
func (s *Store) CreateUserWithNickname(ctx context.Context, user *domain.User) error {
	if user.NicknameKey == "" {
		return fmt.Errorf("user %s has no nickname key", user.ID)
	}

	nickKey := nicknamePrefix + user.NicknameKey
	emailKey := userByEmailPrefix + normalize.Email(user.Email)
	userKey := userPrefix + user.ID

	return s.RunTransaction(ctx, func(txn *badger.Txn) error {
		taken, err := existsTxn(txn, nickKey)
		if err != nil {
			return fmt.Errorf("check nickname reservation: %w", err)
		}
		if taken {
			return ErrNicknameTaken
		}

		emailTaken, err := existsTxn(txn, emailKey)
		if err != nil {
			return fmt.Errorf("check email exists: %w", err)
		}
		if emailTaken {
			return ErrEmailExists
		}

		userExists, err := existsTxn(txn, userKey)
		if err != nil {
			return fmt.Errorf("check user exists: %w", err)
		}
		if userExists {
			return ErrUserExists
		}

		reservation := domain.NicknameReservation{
			NicknameKey: user.NicknameKey,
			UserID:      user.ID,
			CreatedAt:   time.Now(),
		}
		if err := setTxn(txn, nickKey, reservation); err != nil {
			return err
		}

		if err := setTxn(txn, userKey, user); err != nil {
			return err
		}

		return txn.Set([]byte(emailKey), []byte(user.ID))
	})
}

// DeleteUserWithNickname removes a user document together with its
// nickname reservation and email index. Used to unwind a half-created
// signup; missing records are ignored.
func (s *Store) DeleteUserWithNickname(ctx context.Context, user *domain.User) error {
	nickKey := nicknamePrefix + user.NicknameKey
	emailKey := userByEmailPrefix + normalize.Email(user.Email)
	userKey := userPrefix + user.ID

	return s.RunTransaction(ctx, func(txn *badger.Txn) error {
		for _, key := range []string{userKey, nickKey, emailKey} {
			if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
}

// NicknameTaken reports whether a reservation exists for the folded nickname.
// Point-in-time answer only; signup relies on the transactional check in
// CreateUserWithNickname, not on this.
func (s *Store) NicknameTaken(_ context.Context, nicknameKey string) (bool, error) {
	key := buildKey(nicknamePrefix, nicknameKey)
	defer releaseKey(key)

	taken, err := s.exists(key)
	if err != nil {
		return false, fmt.Errorf("check nickname: %w", err)
	}
	return taken, nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	key := buildKey(userPrefix, id)
	defer releaseKey(key)

	var user domain.User
	if err := s.get(key, &user); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	// Check soft delete
	if user.IsDeleted() {
		return nil, ErrUserNotFound
	}

	return &user, nil
}

// GetUserByEmail retrieves a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	emailKey := buildKey(userByEmailPrefix, normalize.Email(email))
	defer releaseKey(emailKey)

	// Look up user ID from email index
	var userID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			userID = string(val)
			return nil
		})
	})

	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	// Get the actual user
	return s.GetUser(ctx, userID)
}

// UpdateUser updates an existing user. Email and nickname are immutable
// once created, so no index maintenance is needed here.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	old, err := s.GetUser(ctx, user.ID)
	if err != nil {
		return err
	}
	if old.Email != user.Email || old.NicknameKey != user.NicknameKey {
		return fmt.Errorf("user %s: email and nickname cannot change", user.ID)
	}

	user.Touch()

	return s.set([]byte(userPrefix+user.ID), user)
}

// ListUsers returns all non-deleted users.
func (s *Store) ListUsers(_ context.Context) ([]*domain.User, error) {
	prefix := []byte(userPrefix)
	var users []*domain.User

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()

			err := item.Value(func(val []byte) error {
				var user domain.User
				if unmarshalErr := json.Unmarshal(val, &user); unmarshalErr != nil {
					// Skip malformed users
					return nil //nolint:nilerr // intentionally skip malformed entries
				}

				if user.IsDeleted() {
					return nil
				}

				users = append(users, &user)
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}
