package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned when a session id does not exist in the store,
// either because it expired or because it was never issued.
var ErrNoSession = errors.New("session not found")

const (
	keyPrefix    = "session:"
	userIDField  = "user_id"
	flashField   = "flash"
	createdField = "created_at"
)

// Store keeps session state server-side in Redis. Cookies carry only the
// session id plus an HMAC tag over it, so a forged or tampered id is
// rejected before Redis is ever consulted.
type Store struct {
	client *redis.Client
	signer *Signer
	ttl    time.Duration
}

// NewStore creates a session store
func NewStore(client *redis.Client, signer *Signer, ttl time.Duration) *Store {
	return &Store{client: client, signer: signer, ttl: ttl}
}

func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func key(id string) string { return keyPrefix + id }

// Create issues a fresh anonymous session and returns its id.
func (s *Store) Create(ctx context.Context) (string, error) {
	id, err := generateSessionID()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	if err := s.client.HSet(ctx, key(id), createdField, time.Now().UTC().Format(time.RFC3339)).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	if err := s.client.Expire(ctx, key(id), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("set session ttl: %w", err)
	}
	return id, nil
}

// Renew rotates the session id while keeping the session state, and
// resets the TTL. Called on privilege changes (login) to defeat session
// fixation: an id handed out before authentication never names an
// authenticated session.
func (s *Store) Renew(ctx context.Context, oldID string) (string, error) {
	newID, err := generateSessionID()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	if err := s.client.Rename(ctx, key(oldID), key(newID)).Err(); err != nil {
		return "", fmt.Errorf("rotate session id: %w", err)
	}
	if err := s.client.Expire(ctx, key(newID), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("reset session ttl: %w", err)
	}
	return newID, nil
}

// SetUserID marks the session as authenticated.
func (s *Store) SetUserID(ctx context.Context, id string, userID uuid.UUID) error {
	ok, err := s.client.Exists(ctx, key(id)).Result()
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if ok == 0 {
		return ErrNoSession
	}
	if err := s.client.HSet(ctx, key(id), userIDField, userID.String()).Err(); err != nil {
		return fmt.Errorf("store user id: %w", err)
	}
	return nil
}

// UserID returns the authenticated user of a session, or found=false for
// an anonymous session.
func (s *Store) UserID(ctx context.Context, id string) (uuid.UUID, bool, error) {
	val, err := s.client.HGet(ctx, key(id), userIDField).Result()
	if err == redis.Nil {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("read user id: %w", err)
	}
	userID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("parse stored user id: %w", err)
	}
	return userID, true, nil
}

// SetFlash stores a one-shot message on the session.
func (s *Store) SetFlash(ctx context.Context, id, message string) error {
	if err := s.client.HSet(ctx, key(id), flashField, message).Err(); err != nil {
		return fmt.Errorf("store flash: %w", err)
	}
	return s.client.Expire(ctx, key(id), s.ttl).Err()
}

// PopFlash reads and clears the session's flash message. An empty string
// means no flash was set.
func (s *Store) PopFlash(ctx context.Context, id string) (string, error) {
	msg, err := s.client.HGet(ctx, key(id), flashField).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read flash: %w", err)
	}
	if err := s.client.HDel(ctx, key(id), flashField).Err(); err != nil {
		return "", fmt.Errorf("clear flash: %w", err)
	}
	return msg, nil
}

// Delete destroys a session entirely (logout).
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CookieValue encodes a session id for transport: "<id>.<hex tag>".
func (s *Store) CookieValue(id string) string {
	return id + "." + s.signer.SignHex([]byte(id))
}

// ParseCookieValue extracts and authenticates the session id from a
// cookie value produced by CookieValue.
func (s *Store) ParseCookieValue(value string) (string, error) {
	id, tagHex, found := strings.Cut(value, ".")
	if !found || id == "" {
		return "", ErrInvalidSignature
	}
	if err := s.signer.VerifyHex([]byte(id), tagHex); err != nil {
		return "", err
	}
	return id, nil
}
