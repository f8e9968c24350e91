package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// AzureConfig returns the OAuth2 configuration for an Entra ID application.
func AzureConfig(tenantID, clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     microsoft.AzureADEndpoint(tenantID),
	}
}

// Passthrough serves tokens that were already acquired elsewhere, typically by the
// browser application that forwards them with each request.
type Passthrough map[Audience]string

func (p Passthrough) Acquire(_ context.Context, aud Audience, _ []string) (*oauth2.Token, error) {
	raw := p[aud]
	if raw == "" {
		return nil, ErrNoCachedToken
	}

	return &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}, nil
}

// RefreshCache keeps one refreshing token source per audience.
type RefreshCache struct {
	mu      sync.Mutex
	sources map[Audience]oauth2.TokenSource
}

func NewRefreshCache() *RefreshCache {
	return &RefreshCache{sources: make(map[Audience]oauth2.TokenSource)}
}

// Store remembers tok for aud; later acquisitions refresh it through cfg.
func (c *RefreshCache) Store(ctx context.Context, aud Audience, cfg *oauth2.Config, tok *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sources[aud] = cfg.TokenSource(context.WithoutCancel(ctx), tok)
}

// Clear drops every cached token source.
func (c *RefreshCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.sources)
}

func (c *RefreshCache) Acquire(_ context.Context, aud Audience, _ []string) (*oauth2.Token, error) {
	c.mu.Lock()
	src, ok := c.sources[aud]
	c.mu.Unlock()

	if !ok {
		return nil, ErrNoCachedToken
	}

	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing %s token: %w", aud, err)
	}

	return tok, nil
}

// DevicePrompt shows the verification URI and user code to the user. Returning
// ErrInteractionCancelled aborts the sign-in.
type DevicePrompt func(resp *oauth2.DeviceAuthResponse) error

// DeviceCode acquires tokens interactively through the device authorization grant.
type DeviceCode struct {
	cfg    oauth2.Config
	prompt DevicePrompt
	cache  *RefreshCache
}

// NewDeviceCode creates the interactive acquirer. Tokens it obtains are stored in cache
// so that subsequent silent acquisitions succeed.
func NewDeviceCode(cfg *oauth2.Config, prompt DevicePrompt, cache *RefreshCache) *DeviceCode {
	return &DeviceCode{
		cfg:    *cfg,
		prompt: prompt,
		cache:  cache,
	}
}

func (d *DeviceCode) Acquire(ctx context.Context, aud Audience, scopes []string) (*oauth2.Token, error) {
	cfg := d.cfg
	cfg.Scopes = scopes

	da, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting device authorization: %w", err)
	}

	if err := d.prompt(da); err != nil {
		return nil, err
	}

	tok, err := cfg.DeviceAccessToken(ctx, da)
	if err != nil {
		if isDeclined(err) {
			return nil, fmt.Errorf("%w: %v", ErrInteractionCancelled, err)
		}

		return nil, fmt.Errorf("waiting for device authorization: %w", err)
	}

	if d.cache != nil {
		d.cache.Store(ctx, aud, &cfg, tok)
	}

	return tok, nil
}

func isDeclined(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return re.ErrorCode == "authorization_declined" || re.ErrorCode == "access_denied"
	}

	return false
}
