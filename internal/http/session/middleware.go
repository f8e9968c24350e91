package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrJamesThe3rd/gastos/internal/auth"
	"github.com/MrJamesThe3rd/gastos/internal/http/respond"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint"
	"github.com/MrJamesThe3rd/gastos/internal/workspace"
)

// HeaderSharePointToken carries the token for direct document library downloads.
// The Authorization header carries the Graph token.
const HeaderSharePointToken = "X-SharePoint-Token"

type ctxKey int

const (
	workspaceKey ctxKey = iota
	accountKey
	sessionKey
)

// Builder creates the workspace of one request from the caller's tokens and the
// cache of their account.
type Builder func(tokens *auth.Provider, cache *sharepoint.Cache) *workspace.Workspace

func WithWorkspace(ctx context.Context, w *workspace.Workspace) context.Context {
	return context.WithValue(ctx, workspaceKey, w)
}

// Workspace returns the workspace of the request, or nil outside the middleware.
func Workspace(ctx context.Context) *workspace.Workspace {
	w, _ := ctx.Value(workspaceKey).(*workspace.Workspace)
	return w
}

func WithAccount(ctx context.Context, acc auth.Account) context.Context {
	return context.WithValue(ctx, accountKey, acc)
}

func Account(ctx context.Context) (auth.Account, bool) {
	acc, ok := ctx.Value(accountKey).(auth.Account)
	return acc, ok
}

// Middleware authenticates the request from its bearer token and attaches the
// caller's account and workspace to the context. Tokens are forwarded to the
// remote store as they are and never stored. With strict set, the list schemas
// are checked on the first request of every session and the session is refused
// when they do not match.
func Middleware(reg *Registry, build Builder, strict bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				respond.Error(w, sharepoint.WithMessage(sharepoint.ErrAuthRequired, "missing bearer token"))
				return
			}

			acc, err := auth.AccountFromToken(raw)
			if err != nil {
				respond.Error(w, sharepoint.Wrap(sharepoint.ErrAuthRequired, err))
				return
			}

			tokens := auth.Passthrough{auth.AudienceGraph: raw}
			if sp := r.Header.Get(HeaderSharePointToken); sp != "" {
				tokens[auth.AudienceSharePoint] = sp
			}

			provider := auth.NewProvider(nil, tokens, nil)
			provider.SignIn(acc)

			key := Key(acc.ID, raw)
			cache, fresh := reg.Cache(key)
			ws := build(provider, cache)

			if strict && fresh {
				if err := ws.ValidateSchemas(r.Context()); err != nil {
					reg.Discard(key)
					respond.Error(w, err)

					return
				}
			}

			ctx := WithAccount(r.Context(), acc)
			ctx = WithWorkspace(ctx, ws)
			ctx = context.WithValue(ctx, sessionKey, key)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SignOut discards the cached site and list metadata of the caller's token.
func SignOut(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if key, ok := r.Context().Value(sessionKey).(string); ok {
			reg.Discard(key)
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
