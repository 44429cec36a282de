package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/username/vertex/backend/src/logger"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// TokenFetcher performs one token exchange against the provider.
type TokenFetcher func(ctx context.Context) (*oauth2.Token, error)

// TokenCache holds the provider bearer token and refreshes it when it is absent or
// its exp claim has passed. Concurrent callers share a single refresh.
type TokenCache struct {
	fetch TokenFetcher
	now   func() time.Time

	mu     sync.Mutex
	bearer string
	expiry time.Time
	valid  bool

	refresh singleflight.Group
}

func NewTokenCache(fetch TokenFetcher) *TokenCache {
	return &TokenCache{fetch: fetch, now: time.Now}
}

func (c *TokenCache) current() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && c.bearer != "" && c.now().Before(c.expiry) {
		return c.bearer, true
	}
	return "", false
}

// Token returns a bearer token that has not yet expired, exchanging credentials
// first when needed.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if bearer, ok := c.current(); ok {
		return bearer, nil
	}

	v, err, _ := c.refresh.Do("token", func() (interface{}, error) {
		if bearer, ok := c.current(); ok {
			return bearer, nil
		}

		logger.FromContext(ctx).Info("Requesting bank provider token")
		tok, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		if tok == nil || tok.AccessToken == "" {
			return nil, fmt.Errorf("token response has no access_token")
		}

		expiry, ok := tokenExpiry(tok)
		if !ok {
			logger.FromContext(ctx).Warn("Bank provider token has no readable exp claim; it will be refreshed on next use")
		}

		c.mu.Lock()
		c.bearer = tok.AccessToken
		c.expiry = expiry
		c.valid = ok
		c.mu.Unlock()
		return tok.AccessToken, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: token exchange failed: %v", ErrGateway, err)
	}
	return v.(string), nil
}

// Invalidate drops the cached token, e.g. after the provider rejected it.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bearer = ""
	c.valid = false
}

// tokenExpiry reads the exp claim of the access token, or of the id_token when the
// access token is not a JWT. Signatures are not verified: the token is the
// provider's and is only inspected to decide when to refresh.
func tokenExpiry(tok *oauth2.Token) (time.Time, bool) {
	if exp, ok := jwtExpiry(tok.AccessToken); ok {
		return exp, true
	}
	if idToken, _ := tok.Extra("id_token").(string); idToken != "" {
		return jwtExpiry(idToken)
	}
	return time.Time{}, false
}

func jwtExpiry(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
