package auth

import (
	"context"
	"errors"
	"sync"

	"vogue/models"
	"vogue/remote"

	"go.uber.org/zap"
)

// Client is the slice of the upstream API the manager needs.
type Client interface {
	Login(ctx context.Context, creds models.Credentials) (models.LoginResponse, error)
	Logout(ctx context.Context) error
	AuthCheck(ctx context.Context) (models.User, error)
	SetToken(token string)
}

// Result is what login and logout report back to the shell.
type Result struct {
	Success bool         `json:"success"`
	User    *models.User `json:"user,omitempty"`
	Error   string       `json:"error,omitempty"`
}

const (
	msgAuthFailed   = "Ошибка авторизации"
	msgNetworkError = "Ошибка сети"
)

// Manager tracks the signed-in user of one session.
type Manager struct {
	client Client
	log    *zap.Logger

	mu   sync.RWMutex
	user *models.User
}

func NewManager(client Client, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{client: client, log: log}
}

func (m *Manager) Login(ctx context.Context, creds models.Credentials) Result {
	resp, err := m.client.Login(ctx, creds)
	if err != nil {
		m.log.Info("login failed", zap.String("email", creds.Email), zap.Error(err))
		return Result{Error: failure(err)}
	}
	m.client.SetToken(resp.Token)
	u := resp.User
	m.mu.Lock()
	m.user = &u
	m.mu.Unlock()
	m.log.Info("logged in", zap.String("user_id", u.UserID))
	return Result{Success: true, User: &u}
}

// Logout ends the session upstream and forgets the user. The local state is
// only cleared when the upstream call succeeds.
func (m *Manager) Logout(ctx context.Context) Result {
	if err := m.client.Logout(ctx); err != nil {
		m.log.Warn("logout failed", zap.Error(err))
		return Result{Error: msgNetworkError}
	}
	m.client.SetToken("")
	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()
	return Result{Success: true}
}

// Check asks the upstream who the current token belongs to.
func (m *Manager) Check(ctx context.Context) (models.User, bool) {
	u, err := m.client.AuthCheck(ctx)
	if err != nil {
		m.log.Debug("auth check failed", zap.Error(err))
		return models.User{}, false
	}
	m.mu.Lock()
	m.user = &u
	m.mu.Unlock()
	return u, true
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

// User returns a copy of the signed-in user, or nil.
func (m *Manager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// failure maps an upstream answer to an auth error and anything else to a
// network error.
func failure(err error) string {
	var se *remote.StatusError
	if errors.As(err, &se) || errors.Is(err, remote.ErrNotFound) {
		return msgAuthFailed
	}
	return msgNetworkError
}
