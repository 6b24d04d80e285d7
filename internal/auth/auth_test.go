package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/energyplatform/internal/storage"
)

func newService(t *testing.T) (*Service, storage.Storage) {
	t.Helper()
	st := storage.NewMemory()
	svc, err := NewService(st)
	require.NoError(t, err)
	return svc, st
}

func TestRegisterAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	u, err := svc.Register(ctx, "laura", "s3cret", RoleClerk)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", u.PasswordHash)

	_, err = svc.Register(ctx, "laura", "other", RoleClerk)
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = svc.Register(ctx, "pedro", "x", "owner")
	assert.ErrorIs(t, err, ErrUnknownRole)

	got, err := svc.Authenticate(ctx, "laura", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "laura", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRolePermissions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	admin, err := svc.Register(ctx, "admin", "pw", RoleAdmin)
	require.NoError(t, err)
	clerk, err := svc.Register(ctx, "clerk", "pw", RoleClerk)
	require.NoError(t, err)
	viewer, err := svc.Register(ctx, "viewer", "pw", RoleViewer)
	require.NoError(t, err)

	cases := []struct {
		user    string
		obj     string
		act     string
		allowed bool
	}{
		{admin.ID, ObjSettings, ActWrite, true},
		{admin.ID, ObjInvoices, ActWrite, true},
		{clerk.ID, ObjInvoices, ActWrite, true},
		{clerk.ID, ObjSettings, ActRead, false},
		{viewer.ID, ObjInvoices, ActRead, true},
		{viewer.ID, ObjInvoices, ActWrite, false},
		{"stranger", ObjInvoices, ActRead, false},
	}
	for _, c := range cases {
		ok, err := svc.Enforce(c.user, c.obj, c.act)
		require.NoError(t, err)
		assert.Equal(t, c.allowed, ok, "%s %s %s", c.user, c.obj, c.act)
	}
}

func TestRoleAssignmentsPersist(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)
	u, err := svc.Register(ctx, "clerk", "pw", RoleClerk)
	require.NoError(t, err)

	rules, err := st.LoadCasbinRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "g", rules[0].PType)

	// a fresh service over the same storage sees the assignment
	again, err := NewService(st)
	require.NoError(t, err)
	ok, err := again.Enforce(u.ID, ObjInvoices, ActWrite)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	u, err := svc.Register(ctx, "clerk", "pw", RoleClerk)
	require.NoError(t, err)

	tok, raw, err := svc.CreateToken(ctx, u.ID, "login", u.Role, nil)
	require.NoError(t, err)
	assert.NotEqual(t, raw, tok.TokenHash)

	got, err := svc.ValidateToken(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, tok.ID, got.ID)

	_, err = svc.ValidateToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	past := time.Now().Add(-time.Hour)
	_, expired, err := svc.CreateToken(ctx, u.ID, "old", u.Role, &past)
	require.NoError(t, err)
	_, err = svc.ValidateToken(ctx, expired)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenExpiryFollowsClock(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 5, 15, 4, 0, 0, time.UTC))
	svc, err := NewService(storage.NewMemory(), WithClock(clock))
	require.NoError(t, err)

	u, err := svc.Register(ctx, "clerk", "pw", RoleClerk)
	require.NoError(t, err)
	assert.True(t, clock.Now().Equal(u.CreatedAt))

	expires, err := ParseExpiration("30d", clock.Now(), time.UTC)
	require.NoError(t, err)
	tok, raw, err := svc.CreateToken(ctx, u.ID, "login", u.Role, expires)
	require.NoError(t, err)
	assert.True(t, clock.Now().Equal(tok.CreatedAt))

	_, err = svc.ValidateToken(ctx, raw)
	require.NoError(t, err)

	clock.Advance(29 * 24 * time.Hour)
	_, err = svc.ValidateToken(ctx, raw)
	require.NoError(t, err)

	clock.Advance(2 * 24 * time.Hour)
	_, err = svc.ValidateToken(ctx, raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRequire(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	viewer, err := svc.Register(ctx, "viewer", "pw", RoleViewer)
	require.NoError(t, err)
	_, raw, err := svc.CreateToken(ctx, viewer.ID, "login", viewer.Role, nil)
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	cases := []struct {
		name   string
		header string
		act    string
		want   int
	}{
		{"no token", "", ActRead, http.StatusUnauthorized},
		{"bad scheme", "Basic abc", ActRead, http.StatusUnauthorized},
		{"bad token", "Bearer nope", ActRead, http.StatusUnauthorized},
		{"allowed", "Bearer " + raw, ActRead, http.StatusNoContent},
		{"forbidden", "Bearer " + raw, ActWrite, http.StatusForbidden},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			rec := httptest.NewRecorder()
			svc.Require(ObjInvoices, c.act, ok).ServeHTTP(rec, req)
			assert.Equal(t, c.want, rec.Code)
		})
	}
}

func TestParseExpiration(t *testing.T) {
	now := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	bogota := time.FixedZone("COT", -5*3600)

	got, err := ParseExpiration("never", now, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseExpiration("7d", now, nil)
	require.NoError(t, err)
	assert.Equal(t, now.Add(7*24*time.Hour), *got)

	got, err = ParseExpiration("2w", now, nil)
	require.NoError(t, err)
	assert.Equal(t, now.Add(14*24*time.Hour), *got)

	got, err = ParseExpiration("90m", now, nil)
	require.NoError(t, err)
	assert.Equal(t, now.Add(90*time.Minute), *got)

	got, err = ParseExpiration("25/12/2026 14:30", now, bogota)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 12, 25, 19, 30, 0, 0, time.UTC), got.UTC())

	for _, bad := range []string{"01/01/2001", "soon", "0d", "-5m"} {
		_, err = ParseExpiration(bad, now, nil)
		assert.Error(t, err, bad)
	}
}
