package credstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrEthical07/authcore"
	"github.com/google/uuid"
)

// Memory is an in-process CredentialStore. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	users   map[string]authcore.UserCredential
	byLogin map[string]string
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]authcore.UserCredential),
		byLogin: make(map[string]string),
	}
}

// Put adds a user with a fresh id. A login may only be registered once.
func (m *Memory) Put(login, passwordHash, role string, mustChangePassword bool) (*authcore.UserCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byLogin[login]; exists {
		return nil, fmt.Errorf("credstore: login %q already exists", login)
	}

	user := authcore.UserCredential{
		ID:                 uuid.NewString(),
		Login:              login,
		PasswordHash:       passwordHash,
		MustChangePassword: mustChangePassword,
		Role:               role,
	}
	m.users[user.ID] = user
	m.byLogin[login] = user.ID

	return &user, nil
}

// Delete removes a user. Unknown ids are ignored.
func (m *Memory) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, ok := m.users[id]; ok {
		delete(m.byLogin, user.Login)
		delete(m.users, id)
	}
}

// FindByLogin implements authcore.CredentialStore.
func (m *Memory) FindByLogin(_ context.Context, login string) (*authcore.UserCredential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byLogin[login]
	if !ok {
		return nil, authcore.ErrCredentialNotFound
	}
	user := m.users[id]
	return &user, nil
}

// FindByID implements authcore.CredentialStore.
func (m *Memory) FindByID(_ context.Context, id string) (*authcore.UserCredential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, authcore.ErrCredentialNotFound
	}
	return &user, nil
}

// UpdatePassword implements authcore.CredentialStore.
func (m *Memory) UpdatePassword(_ context.Context, id, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return authcore.ErrCredentialNotFound
	}
	user.PasswordHash = newHash
	user.MustChangePassword = false
	m.users[id] = user

	return nil
}
