package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	seatlock "github.com/preplabs/seatlock"
)

// jwtProvider is a self-contained seatlock.AuthProvider for the demo:
// HS256-signed access tokens, opaque rotating refresh tokens, in-memory
// accounts. A production deployment would adapt its real identity
// provider behind the same interface instead.
type jwtProvider struct {
	secret    []byte
	accessTTL time.Duration

	mu            sync.Mutex
	users         map[string]demoUser // by email
	refreshTokens map[string]string   // refresh token -> user id
}

type demoUser struct {
	profile  seatlock.UserProfile
	password string
}

func newJWTProvider(secret string, accessTTL time.Duration) *jwtProvider {
	return &jwtProvider{
		secret:        []byte(secret),
		accessTTL:     accessTTL,
		users:         map[string]demoUser{},
		refreshTokens: map[string]string{},
	}
}

func (p *jwtProvider) seedUser(email, password, role string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[email] = demoUser{
		profile:  seatlock.UserProfile{ID: uuid.NewString(), Email: email, Role: role},
		password: password,
	}
}

func (p *jwtProvider) issueLocked(profile seatlock.UserProfile) (*seatlock.TokenPair, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   profile.ID,
		"email": profile.Email,
		"role":  profile.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(p.accessTTL).Unix(),
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh := uuid.NewString()
	p.refreshTokens[refresh] = profile.ID

	return &seatlock.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(p.accessTTL.Seconds()),
	}, nil
}

func (p *jwtProvider) profileByIDLocked(userID string) (seatlock.UserProfile, bool) {
	for _, user := range p.users {
		if user.profile.ID == userID {
			return user.profile, true
		}
	}
	return seatlock.UserProfile{}, false
}

func (p *jwtProvider) Login(_ context.Context, identifier, password string) (seatlock.ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	user, ok := p.users[identifier]
	if !ok || user.password != password {
		return seatlock.ProviderSession{}, fmt.Errorf("invalid credentials")
	}

	pair, err := p.issueLocked(user.profile)
	if err != nil {
		return seatlock.ProviderSession{}, err
	}
	return seatlock.ProviderSession{User: user.profile, Tokens: pair}, nil
}

func (p *jwtProvider) Register(_ context.Context, identifier, password string) (seatlock.ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.users[identifier]; exists {
		return seatlock.ProviderSession{}, fmt.Errorf("account already exists")
	}

	user := demoUser{
		profile:  seatlock.UserProfile{ID: uuid.NewString(), Email: identifier, Role: "student"},
		password: password,
	}
	p.users[identifier] = user

	pair, err := p.issueLocked(user.profile)
	if err != nil {
		return seatlock.ProviderSession{}, err
	}
	return seatlock.ProviderSession{User: user.profile, Tokens: pair}, nil
}

func (p *jwtProvider) ValidateAccess(_ context.Context, accessToken string) (seatlock.UserProfile, error) {
	token, err := jwt.Parse(accessToken, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return seatlock.UserProfile{}, fmt.Errorf("invalid access token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return seatlock.UserProfile{}, fmt.Errorf("unexpected claims type")
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return seatlock.UserProfile{}, fmt.Errorf("token has no subject")
	}

	return seatlock.UserProfile{ID: sub, Email: email, Role: role}, nil
}

func (p *jwtProvider) Refresh(_ context.Context, refreshToken string) (seatlock.ProviderSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.refreshTokens[refreshToken]
	if !ok {
		return seatlock.ProviderSession{}, fmt.Errorf("refresh token revoked or unknown")
	}
	delete(p.refreshTokens, refreshToken)

	profile, ok := p.profileByIDLocked(userID)
	if !ok {
		return seatlock.ProviderSession{}, fmt.Errorf("account no longer exists")
	}

	pair, err := p.issueLocked(profile)
	if err != nil {
		return seatlock.ProviderSession{}, err
	}
	return seatlock.ProviderSession{User: profile, Tokens: pair}, nil
}

func (p *jwtProvider) RevokeRefresh(_ context.Context, refreshToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.refreshTokens, refreshToken)
	return nil
}
