// Package session handles login, token refresh and logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MatejStrlek/uni-course-management/internal/auth"
	"github.com/MatejStrlek/uni-course-management/internal/crypto"
	"github.com/MatejStrlek/uni-course-management/internal/model"
)

var (
	// ErrAuthentication covers every login failure: unknown username, wrong
	// password, deactivated account. Callers get one error so responses do
	// not reveal which part failed.
	ErrAuthentication = errors.New("invalid username or password")
	// ErrTooManyAttempts reports a throttled username.
	ErrTooManyAttempts = errors.New("too many failed login attempts")
)

type Store interface {
	UserByUsername(ctx context.Context, username string) (model.User, error)
	UserByID(ctx context.Context, id string) (model.User, error)
	ReplaceRefreshToken(ctx context.Context, t model.RefreshToken) error
	RefreshTokenByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, id string) error
	DeleteRefreshTokensByUser(ctx context.Context, userID string) error
}

type Metrics interface {
	RecordLogin(success bool)
	RecordRefresh(success bool)
}

// Session is what a successful login or refresh hands back to the client.
// RefreshToken carries the opaque value; only its hash is stored.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	User         model.User
}

type Manager struct {
	store    Store
	throttle *Throttle
	metrics  Metrics

	secret     string
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(store Store, throttle *Throttle, metrics Metrics, secret, issuer string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		store:      store,
		throttle:   throttle,
		metrics:    metrics,
		secret:     secret,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Login verifies the credentials and opens a session. The new refresh token
// replaces any previous one for the user.
func (m *Manager) Login(ctx context.Context, username, password string) (Session, error) {
	if m.throttle.Blocked(ctx, username) {
		return Session{}, ErrTooManyAttempts
	}

	user, err := m.store.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			m.loginFailed(ctx, username)
			return Session{}, ErrAuthentication
		}
		return Session{}, err
	}
	if !user.Active {
		m.loginFailed(ctx, username)
		return Session{}, ErrAuthentication
	}
	if err := crypto.CheckPassword(user.PasswordHash, password); err != nil {
		m.loginFailed(ctx, username)
		return Session{}, ErrAuthentication
	}

	session, err := m.open(ctx, user)
	if err != nil {
		return Session{}, err
	}
	m.throttle.Reset(ctx, username)
	if m.metrics != nil {
		m.metrics.RecordLogin(true)
	}
	return session, nil
}

func (m *Manager) loginFailed(ctx context.Context, username string) {
	m.throttle.RecordFailure(ctx, username)
	if m.metrics != nil {
		m.metrics.RecordLogin(false)
	}
}

func (m *Manager) open(ctx context.Context, user model.User) (Session, error) {
	accessToken, err := auth.NewAccessToken(m.secret, m.issuer, m.accessTTL, user.Username, user.Role)
	if err != nil {
		return Session{}, fmt.Errorf("mint access token: %w", err)
	}
	refreshValue, err := crypto.NewRefreshToken()
	if err != nil {
		return Session{}, fmt.Errorf("mint refresh token: %w", err)
	}

	now := time.Now().UTC()
	record := model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: crypto.HashToken(refreshValue),
		CreatedAt: now,
		ExpiresAt: now.Add(m.refreshTTL),
	}
	if err := m.store.ReplaceRefreshToken(ctx, record); err != nil {
		return Session{}, err
	}

	return Session{
		AccessToken:  accessToken,
		RefreshToken: refreshValue,
		ExpiresIn:    int64(m.accessTTL.Seconds()),
		User:         user,
	}, nil
}

// Refresh exchanges a live refresh token for a new access token. The refresh
// token itself is not rotated; the same value stays valid until expiry or
// logout. An expired or revoked token is deleted on sight.
func (m *Manager) Refresh(ctx context.Context, refreshValue string) (Session, error) {
	record, err := m.store.RefreshTokenByHash(ctx, crypto.HashToken(refreshValue))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			m.refreshFailed()
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	if record.Revoked || time.Now().UTC().After(record.ExpiresAt) {
		_ = m.store.DeleteRefreshToken(ctx, record.ID)
		m.refreshFailed()
		return Session{}, auth.ErrExpiredToken
	}

	user, err := m.store.UserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			m.refreshFailed()
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}
	if !user.Active {
		_ = m.store.DeleteRefreshTokensByUser(ctx, user.ID)
		m.refreshFailed()
		return Session{}, auth.ErrInvalidToken
	}

	accessToken, err := auth.NewAccessToken(m.secret, m.issuer, m.accessTTL, user.Username, user.Role)
	if err != nil {
		return Session{}, fmt.Errorf("mint access token: %w", err)
	}
	if m.metrics != nil {
		m.metrics.RecordRefresh(true)
	}
	return Session{
		AccessToken:  accessToken,
		RefreshToken: refreshValue,
		ExpiresIn:    int64(m.accessTTL.Seconds()),
		User:         user,
	}, nil
}

func (m *Manager) refreshFailed() {
	if m.metrics != nil {
		m.metrics.RecordRefresh(false)
	}
}

// Logout deletes every refresh token of the user behind the access token.
// It is idempotent: logging out an already logged-out or unknown user is not
// an error.
func (m *Manager) Logout(ctx context.Context, accessToken string) error {
	claims, err := auth.ParseAccessToken(m.secret, m.issuer, accessToken)
	if err != nil {
		return err
	}

	user, err := m.store.UserByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		return err
	}
	return m.store.DeleteRefreshTokensByUser(ctx, user.ID)
}

// Identity resolves an access token to its user.
func (m *Manager) Identity(ctx context.Context, accessToken string) (model.User, error) {
	claims, err := auth.ParseAccessToken(m.secret, m.issuer, accessToken)
	if err != nil {
		return model.User{}, err
	}
	user, err := m.store.UserByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, auth.ErrInvalidToken
		}
		return model.User{}, err
	}
	return user, nil
}
