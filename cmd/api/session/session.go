package session

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/cache/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/banking-gateway/internal/bankapi"
)

var ErrNotFound = errors.New("session not found")

// Session is the signed-in user's state. It is created on login, handed to
// whatever needs it and dropped on logout.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	Token     string    `json:"token"`
	FirstName string    `json:"firstName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Session) Auth() bankapi.Auth {
	return bankapi.Auth{UserID: s.UserID, Token: s.Token}
}

type Authenticator interface {
	Login(ctx context.Context, req bankapi.LoginRequest) (bankapi.LoginResponse, error)
}

type Store struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewStore(c *cache.Cache, ttl time.Duration) *Store {
	return &Store{cache: c, ttl: ttl}
}

func key(id string) string {
	return "session:" + id
}

func (s *Store) Save(ctx context.Context, sess *Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return errors.Wrap(err, "encode session")
	}

	err = s.cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   key(sess.ID),
		Value: b,
		TTL:   s.ttl,
	})
	if err != nil {
		return errors.Wrap(err, "store session")
	}

	return nil
}

func (s *Store) Load(ctx context.Context, id string) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}

	var b []byte
	if err := s.cache.Get(ctx, key(id), &b); err != nil {
		if err == cache.ErrCacheMiss {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "load session")
	}

	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, errors.Wrap(err, "decode session")
	}

	return &sess, nil
}

func (s *Store) Clear(ctx context.Context, id string) error {
	err := s.cache.Delete(ctx, key(id))
	if err != nil && err != cache.ErrCacheMiss {
		return errors.Wrap(err, "clear session")
	}
	return nil
}

// Login authenticates against the banking API and stores a new session for the user.
func Login(ctx context.Context, auth Authenticator, store *Store, email, password string) (*Session, error) {
	resp, err := auth.Login(ctx, bankapi.LoginRequest{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		return nil, err
	}

	if resp.Token == "" || resp.ID == 0 {
		return nil, errors.New("login response is missing token or user id")
	}

	sess := &Session{
		ID:        uuid.New().String(),
		UserID:    resp.ID,
		Token:     resp.Token,
		FirstName: resp.FirstName,
		Email:     resp.Email,
		CreatedAt: time.Now().UTC(),
	}

	if err := store.Save(ctx, sess); err != nil {
		return nil, err
	}

	log.Infof("user %d signed in", sess.UserID)

	return sess, nil
}
