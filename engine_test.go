package seatlock

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// fakeProvider is an in-memory AuthProvider for engine tests. Tokens are
// opaque counters; no signing is involved.
type fakeProvider struct {
	mu sync.Mutex

	passwords map[string]string
	profiles  map[string]UserProfile

	accessTokens  map[string]string // access token -> user id
	refreshTokens map[string]string // refresh token -> user id

	nextToken    int
	pendingUsers map[string]bool
	down         bool

	refreshCalls int
}

func newFakeProvider() *fakeProvider {
	p := &fakeProvider{
		passwords:     map[string]string{},
		profiles:      map[string]UserProfile{},
		accessTokens:  map[string]string{},
		refreshTokens: map[string]string{},
		pendingUsers:  map[string]bool{},
	}
	p.addUser("user-42", "alice@example.com", "student", "correct-password-123")
	return p
}

func (p *fakeProvider) addUser(id, email, role, password string) {
	p.profiles[id] = UserProfile{ID: id, Email: email, Role: role}
	p.passwords[email] = password
}

func (p *fakeProvider) setDown(down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.down = down
}

func (p *fakeProvider) userByEmail(email string) (UserProfile, bool) {
	for _, profile := range p.profiles {
		if profile.Email == email {
			return profile, true
		}
	}
	return UserProfile{}, false
}

func (p *fakeProvider) issue(userID string) *TokenPair {
	p.nextToken++
	access := fmt.Sprintf("at-%d", p.nextToken)
	refresh := fmt.Sprintf("rt-%d", p.nextToken)
	p.accessTokens[access] = userID
	p.refreshTokens[refresh] = userID
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: 3600}
}

func (p *fakeProvider) Login(_ context.Context, identifier, password string) (ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down {
		return ProviderSession{}, fmt.Errorf("%w: provider dialing failed", ErrTransportFailure)
	}

	want, ok := p.passwords[identifier]
	if !ok || want != password {
		return ProviderSession{}, fmt.Errorf("bad credentials")
	}
	profile, _ := p.userByEmail(identifier)
	return ProviderSession{User: profile, Tokens: p.issue(profile.ID)}, nil
}

func (p *fakeProvider) Register(_ context.Context, identifier, password string) (ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down {
		return ProviderSession{}, fmt.Errorf("%w: provider dialing failed", ErrTransportFailure)
	}
	if _, exists := p.passwords[identifier]; exists {
		return ProviderSession{}, fmt.Errorf("account exists")
	}

	id := fmt.Sprintf("user-%s", identifier)
	p.profiles[id] = UserProfile{ID: id, Email: identifier, Role: "student"}
	p.passwords[identifier] = password

	if p.pendingUsers[identifier] {
		return ProviderSession{User: p.profiles[id]}, nil
	}
	return ProviderSession{User: p.profiles[id], Tokens: p.issue(id)}, nil
}

func (p *fakeProvider) ValidateAccess(_ context.Context, accessToken string) (UserProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down {
		return UserProfile{}, fmt.Errorf("%w: provider dialing failed", ErrTransportFailure)
	}

	userID, ok := p.accessTokens[accessToken]
	if !ok {
		return UserProfile{}, fmt.Errorf("token expired or unknown")
	}
	return p.profiles[userID], nil
}

func (p *fakeProvider) Refresh(_ context.Context, refreshToken string) (ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshCalls++
	if p.down {
		return ProviderSession{}, fmt.Errorf("%w: provider dialing failed", ErrTransportFailure)
	}

	userID, ok := p.refreshTokens[refreshToken]
	if !ok {
		return ProviderSession{}, fmt.Errorf("refresh token revoked")
	}
	delete(p.refreshTokens, refreshToken)
	return ProviderSession{User: p.profiles[userID], Tokens: p.issue(userID)}, nil
}

func (p *fakeProvider) RevokeRefresh(_ context.Context, refreshToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.refreshTokens, refreshToken)
	return nil
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *fakeProvider, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	provider := newFakeProvider()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAuthProvider(provider).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	return engine, provider, mr, func() {
		engine.Close()
		rdb.Close()
		mr.Close()
	}
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Audit.Enabled = false
	return cfg
}
