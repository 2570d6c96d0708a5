package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fleema/fleetcore/internal/domain"
	"github.com/fleema/fleetcore/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenLength is the length of an encoded token key: 20 random bytes as hex.
const TokenLength = 40

// CredentialService issues, rotates, revokes and resolves opaque tokens.
type CredentialService struct {
	tokens domain.TokenStore
	users  domain.UserStore
	ttl    time.Duration
	now     func() time.Time
	metrics *AuthMetrics
	logger  *zap.Logger
}

func NewCredentialService(tokens domain.TokenStore, users domain.UserStore, ttl time.Duration, logger *zap.Logger) *CredentialService {
	return &CredentialService{tokens: tokens, users: users, ttl: ttl, now: time.Now, logger: logger}
}

// withStores returns a copy bound to transaction-scoped stores.
func (s *CredentialService) withStores(tokens domain.TokenStore, users domain.UserStore) *CredentialService {
	c := *s
	c.tokens = tokens
	c.users = users
	return &c
}

func (s *CredentialService) SetClock(now func() time.Time) {
	s.now = now
}

// SetMetrics records resolve outcomes on m.
func (s *CredentialService) SetMetrics(m *AuthMetrics) {
	s.metrics = m
}

// staleBefore is the creation time below which a token has expired.
func (s *CredentialService) staleBefore() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(-s.ttl)
}

// Issue returns the user's live token, creating one if there is none.
func (s *CredentialService) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	key, err := GenerateToken()
	if err != nil {
		return "", err
	}
	tok, err := s.tokens.GetOrCreate(ctx, userID, key, s.staleBefore())
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return tok.Key, nil
}

// Rotate replaces any existing token with a fresh one.
func (s *CredentialService) Rotate(ctx context.Context, userID uuid.UUID) (string, error) {
	key, err := GenerateToken()
	if err != nil {
		return "", err
	}
	tok, err := s.tokens.Replace(ctx, userID, key)
	if err != nil {
		return "", fmt.Errorf("failed to rotate token: %w", err)
	}
	s.logger.Info("token rotated", zap.String("user_id", userID.String()))
	return tok.Key, nil
}

// Revoke deletes the user's token. Revoking a user without a token succeeds.
func (s *CredentialService) Revoke(ctx context.Context, userID uuid.UUID) error {
	if err := s.tokens.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Resolve maps a token key to its active user.
func (s *CredentialService) Resolve(ctx context.Context, key string) (u *domain.User, err error) {
	defer func() { s.metrics.observe("resolve", err) }()
	return s.resolve(ctx, key)
}

func (s *CredentialService) resolve(ctx context.Context, key string) (*domain.User, error) {
	if !wellFormedToken(key) {
		return nil, domain.ErrUnauthenticated
	}

	tok, err := s.tokens.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	if tok.Expired(s.ttl, s.now()) {
		return nil, domain.ErrUnauthenticated
	}

	u, err := s.users.GetByID(ctx, tok.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, domain.ErrUnauthenticated
	}
	return u, nil
}

// PurgeExpired deletes tokens older than the TTL.
func (s *CredentialService) PurgeExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	return s.tokens.DeleteOlderThan(ctx, s.staleBefore())
}

// GenerateToken returns a new random token key.
func GenerateToken() (string, error) {
	b := make([]byte, TokenLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func wellFormedToken(key string) bool {
	if len(key) != TokenLength {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

const defaultTokenSweepInterval = 1 * time.Hour

// TokenExpirer periodically purges expired tokens.
type TokenExpirer struct {
	creds  *CredentialService
	logger *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewTokenExpirer(creds *CredentialService, logger *zap.Logger) *TokenExpirer {
	return &TokenExpirer{
		creds:    creds,
		logger:   logger,
		interval: defaultTokenSweepInterval,
		stopCh:   make(chan struct{}),
	}
}

func (e *TokenExpirer) SetInterval(d time.Duration) {
	e.interval = d
}

// Start runs the sweep on a ticker in a background goroutine.
func (e *TokenExpirer) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		e.logger.Info("token expirer started", zap.Duration("interval", e.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				e.run(ctx)
				cancel()
			case <-e.stopCh:
				e.logger.Info("token expirer stopped")
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it.
func (e *TokenExpirer) Stop() {
	close(e.stopCh)
	e.wg.Wait()
}

func (e *TokenExpirer) run(ctx context.Context) {
	n, err := e.creds.PurgeExpired(ctx)
	if err != nil {
		e.logger.Error("failed to purge expired tokens", zap.Error(err))
		return
	}
	if n > 0 {
		e.logger.Info("purged expired tokens", zap.Int64("count", n))
	}
}
