// Package auth supplies bearer tokens for the remote list store on behalf of the
// signed-in account.
//
// Two audiences are used: the Graph audience for list and row operations and the
// SharePoint audience for direct downloads from the document library. Tokens are
// acquired silently first and interactively only when the silent attempt fails for
// any reason other than the user cancelling.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Audience identifies the resource a token is issued for.
type Audience string

const (
	AudienceGraph      Audience = "graph"
	AudienceSharePoint Audience = "sharepoint"
)

var (
	// ErrAuthRequired is returned when there is no active account or the
	// account's tokens can no longer be obtained without a new sign-in.
	ErrAuthRequired = errors.New("authentication required")

	// ErrInteractionCancelled is returned when the user dismisses an interactive sign-in.
	ErrInteractionCancelled = errors.New("interactive sign-in cancelled")

	// ErrNoCachedToken is returned by silent acquirers with nothing to offer.
	ErrNoCachedToken = errors.New("no cached token")
)

// Account is the signed-in user.
type Account struct {
	ID        string
	Username  string
	Email     string
	Name      string
	ExpiresAt time.Time
}

// Acquirer obtains a token for an audience.
type Acquirer interface {
	Acquire(ctx context.Context, aud Audience, scopes []string) (*oauth2.Token, error)
}

// Provider hands out tokens for the active account.
type Provider struct {
	mu      sync.RWMutex
	account *Account

	scopes      map[Audience][]string
	silent      Acquirer
	interactive Acquirer
}

// NewProvider creates a provider. interactive may be nil, in which case a failed
// silent acquisition surfaces as ErrAuthRequired.
func NewProvider(scopes map[Audience][]string, silent, interactive Acquirer) *Provider {
	return &Provider{
		scopes:      scopes,
		silent:      silent,
		interactive: interactive,
	}
}

// SignIn makes acc the active account.
func (p *Provider) SignIn(acc Account) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.account = &acc
}

// SignOut clears the active account. Further token requests fail with ErrAuthRequired.
func (p *Provider) SignOut() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.account = nil
}

// ActiveAccount returns the signed-in account, if any.
func (p *Provider) ActiveAccount() (Account, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.account == nil {
		return Account{}, false
	}

	return *p.account, true
}

// Login runs the interactive flow for the Graph audience and signs in the account
// named by the resulting token.
func (p *Provider) Login(ctx context.Context) (Account, error) {
	if p.interactive == nil {
		return Account{}, fmt.Errorf("%w: no interactive sign-in available", ErrAuthRequired)
	}

	tok, err := p.interactive.Acquire(ctx, AudienceGraph, p.scopes[AudienceGraph])
	if err != nil {
		return Account{}, fmt.Errorf("interactive sign-in: %w", err)
	}

	acc, err := AccountFromToken(tok.AccessToken)
	if err != nil {
		return Account{}, err
	}

	p.SignIn(acc)

	return acc, nil
}

// Token returns a bearer token for aud.
func (p *Provider) Token(ctx context.Context, aud Audience) (string, error) {
	if _, ok := p.ActiveAccount(); !ok {
		return "", ErrAuthRequired
	}

	scopes := p.scopes[aud]

	tok, err := p.silent.Acquire(ctx, aud, scopes)
	if err == nil && tok.Valid() {
		return tok.AccessToken, nil
	}

	if err == nil {
		err = errors.New("cached token expired")
	}

	if errors.Is(err, ErrInteractionCancelled) {
		return "", err
	}

	if p.interactive == nil {
		return "", fmt.Errorf("%w: %v", ErrAuthRequired, err)
	}

	tok, err = p.interactive.Acquire(ctx, aud, scopes)
	if err != nil {
		if errors.Is(err, ErrInteractionCancelled) {
			return "", err
		}

		return "", fmt.Errorf("%w: %v", ErrAuthRequired, err)
	}

	return tok.AccessToken, nil
}
