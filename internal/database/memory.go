package database

import (
	"context"
	"strings"
	"sync"

	"github.com/DOYOUNG-0314/kissingyou/internal/auth"
	"github.com/DOYOUNG-0314/kissingyou/internal/models"
	"github.com/google/uuid"
)

// MemoryUsers is an in-process user directory used when no database is configured.
// Accounts are lost on restart.
type MemoryUsers struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]models.User
	byEmail map[string]uuid.UUID
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		byID:    make(map[uuid.UUID]models.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (m *MemoryUsers) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Password != "" {
		hash, err := auth.HashPassword(user.Password)
		if err != nil {
			return err
		}
		user.Password = hash
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	email := normalizeEmail(user.Email)
	if email != "" {
		if _, taken := m.byEmail[email]; taken {
			return ErrEmailTaken
		}
		m.byEmail[email] = user.ID
	}
	m.byID[user.ID] = *user
	return nil
}

func (m *MemoryUsers) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *MemoryUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	id, ok := m.byEmail[normalizeEmail(email)]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrUserNotFound
	}
	return m.GetUserByID(ctx, id)
}

func (m *MemoryUsers) AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	u, err := m.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	match, err := auth.ComparePasswordAndHash(password, u.Password)
	if err != nil || !match {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (m *MemoryUsers) ClaimGuest(ctx context.Context, id uuid.UUID, email, password, username string) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if !u.IsEphemeral {
		return nil, ErrNotEphemeral
	}
	key := normalizeEmail(email)
	if _, taken := m.byEmail[key]; taken {
		return nil, ErrEmailTaken
	}
	u.Email = email
	u.Password = hash
	if username != "" {
		u.Username = username
	}
	u.IsEphemeral = false
	m.byID[id] = u
	m.byEmail[key] = id
	return &u, nil
}
