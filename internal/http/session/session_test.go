package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/gastos/internal/auth"
	"github.com/MrJamesThe3rd/gastos/internal/http/session"
	"github.com/MrJamesThe3rd/gastos/internal/sharepoint"
	"github.com/MrJamesThe3rd/gastos/internal/workspace"
)

func token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)

	return raw
}

func TestRegistry(t *testing.T) {
	reg := session.NewRegistry(0, nil)

	a, fresh := reg.Cache("acc-1")
	assert.True(t, fresh)

	again, fresh := reg.Cache("acc-1")
	assert.Same(t, a, again)
	assert.False(t, fresh)

	other, _ := reg.Cache("acc-2")
	assert.NotSame(t, a, other)
	assert.Equal(t, 2, reg.Len())

	assert.True(t, reg.Discard("acc-1"))
	assert.False(t, reg.Discard("acc-1"))

	renewed, fresh := reg.Cache("acc-1")
	assert.NotSame(t, a, renewed)
	assert.True(t, fresh)
}

func TestRegistry_EvictsIdleSessions(t *testing.T) {
	reg := session.NewRegistry(50*time.Millisecond, nil)

	first, _ := reg.Cache("acc-1")
	reg.Cache("acc-2")

	time.Sleep(80 * time.Millisecond)

	// touching one account sweeps the other
	again, fresh := reg.Cache("acc-1")
	assert.NotSame(t, first, again)
	assert.True(t, fresh)
	assert.Equal(t, 1, reg.Len())
}

func TestMiddleware(t *testing.T) {
	type testCase struct {
		name       string
		header     http.Header
		spToken    string
		wantStatus int
		wantEmail  string
		wantSP     bool
	}

	valid := token(t, jwt.MapClaims{
		"oid":   "user-1",
		"email": "ana@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	expired := token(t, jwt.MapClaims{
		"oid": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	tests := []testCase{
		{
			name:       "missing token",
			header:     http.Header{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not a jwt",
			header:     http.Header{"Authorization": {"Bearer nope"}},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired",
			header:     http.Header{"Authorization": {"Bearer " + expired}},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "graph token only",
			header:     http.Header{"Authorization": {"Bearer " + valid}},
			wantStatus: http.StatusOK,
			wantEmail:  "ana@example.com",
		},
		{
			name:       "both tokens",
			header:     http.Header{"Authorization": {"Bearer " + valid}},
			spToken:    "sp-token",
			wantStatus: http.StatusOK,
			wantEmail:  "ana@example.com",
			wantSP:     true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reg := session.NewRegistry(time.Hour, nil)

			var provider *auth.Provider

			build := func(tokens *auth.Provider, _ *sharepoint.Cache) *workspace.Workspace {
				provider = tokens
				return &workspace.Workspace{}
			}

			h := session.Middleware(reg, build, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				acc, ok := session.Account(r.Context())
				require.True(t, ok)
				require.NotNil(t, session.Workspace(r.Context()))

				_, _ = w.Write([]byte(acc.Email))
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header = tc.header
			if tc.spToken != "" {
				req.Header.Set(session.HeaderSharePointToken, tc.spToken)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, tc.wantStatus, rec.Code)

			if tc.wantStatus != http.StatusOK {
				var body map[string]any
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, string(sharepoint.CodeAuthRequired), body["code"])
				assert.Zero(t, reg.Len())

				return
			}

			assert.Equal(t, tc.wantEmail, rec.Body.String())
			assert.Equal(t, 1, reg.Len())

			graphTok, err := provider.Token(context.Background(), auth.AudienceGraph)
			require.NoError(t, err)
			assert.Equal(t, valid, graphTok)

			_, err = provider.Token(context.Background(), auth.AudienceSharePoint)
			if tc.wantSP {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, auth.ErrAuthRequired)
			}
		})
	}
}

func TestSignOut(t *testing.T) {
	owner := token(t, jwt.MapClaims{"oid": "user-1", "exp": time.Now().Add(time.Hour).Unix()})
	// same oid, signed by someone else
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"oid": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("other-key"))
	require.NoError(t, err)

	reg := session.NewRegistry(time.Hour, nil)

	var caches []*sharepoint.Cache

	build := func(_ *auth.Provider, cache *sharepoint.Cache) *workspace.Workspace {
		caches = append(caches, cache)
		return &workspace.Workspace{}
	}

	h := session.Middleware(reg, build, false)(session.SignOut(reg))
	touch := session.Middleware(reg, build, false)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	call := func(h http.Handler, method, raw string) int {
		req := httptest.NewRequest(method, "/session", nil)
		req.Header.Set("Authorization", "Bearer "+raw)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		return rec.Code
	}

	require.Equal(t, http.StatusOK, call(touch, http.MethodGet, owner))
	require.Equal(t, 1, reg.Len())

	assert.Equal(t, http.StatusNoContent, call(h, http.MethodDelete, forged))
	assert.Equal(t, 1, reg.Len())

	require.Equal(t, http.StatusOK, call(touch, http.MethodGet, owner))
	require.Len(t, caches, 3)
	assert.NotSame(t, caches[0], caches[1])
	assert.Same(t, caches[0], caches[2])

	assert.Equal(t, http.StatusNoContent, call(h, http.MethodDelete, owner))
	assert.Zero(t, reg.Len())
}
