// Package identity specifies the identity provider boundary. The engine
// only ever consumes UserIdentity.UID, which roots every document path.
package identity

import (
	"context"
	"errors"
	"sync"
)

type (
	// UserIdentity identifies a signed-in user.
	UserIdentity struct {
		UID   string
		Email string
	}

	// Credentials is what a user presents to sign in.
	Credentials struct {
		Email    string
		Password string
	}

	// Provider is the external identity collaborator.
	Provider interface {
		Authenticate(ctx context.Context, creds Credentials) (UserIdentity, error)
	}
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// MemoryProvider is a static credential table for tests and local use. It
// also tracks the current user and notifies watchers on change, the way a
// hosted provider pushes auth-state changes.
type MemoryProvider struct {
	mu       sync.Mutex
	users    map[string]memoryUser // by email
	current  UserIdentity
	watchers []chan UserIdentity
}

type memoryUser struct {
	uid      string
	password string
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{users: make(map[string]memoryUser)}
}

// Register adds a user to the credential table.
func (p *MemoryProvider) Register(uid, email, password string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[email] = memoryUser{uid: uid, password: password}
}

func (p *MemoryProvider) Authenticate(_ context.Context, creds Credentials) (UserIdentity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[creds.Email]
	if !ok || u.password != creds.Password {
		return UserIdentity{}, ErrInvalidCredentials
	}
	p.current = UserIdentity{UID: u.uid, Email: creds.Email}
	for _, w := range p.watchers {
		select {
		case w <- p.current:
		default:
		}
	}
	return p.current, nil
}

// SignOut clears the current user and notifies watchers with the zero
// identity.
func (p *MemoryProvider) SignOut() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = UserIdentity{}
	for _, w := range p.watchers {
		select {
		case w <- p.current:
		default:
		}
	}
}

// Watch returns a channel receiving current-user changes.
func (p *MemoryProvider) Watch() <-chan UserIdentity {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan UserIdentity, 1)
	p.watchers = append(p.watchers, ch)
	return ch
}
