package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Storage {
	t.Helper()
	ctx := context.Background()

	sq, err := Open(ctx, Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	return map[string]Storage{
		"memory": NewMemory(),
		"sqlite": sq,
	}
}

func invoiceAt(id string, at time.Time) InvoiceRecord {
	return InvoiceRecord{
		ID:           id,
		CustomerName: "Ana María",
		Address:      "Calle 45 #12-30, Bucaramanga",
		Sector:       "residential",
		Consumption:  "450",
		UnitPrice:    "485",
		Subtotal:     "218250",
		Surcharge:    "10912.5",
		Total:        "229162.5",
		Filename:     "invoice_Ana_María.pdf",
		Content:      []byte("%PDF-1.3 test"),
		CreatedAt:    at,
	}
}

func TestInvoices_RoundTrip(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, st.SaveInvoice(ctx, invoiceAt("inv-1", base)))

			got, err := st.GetInvoice(ctx, "inv-1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "229162.5", got.Total)
			assert.Equal(t, "10912.5", got.Surcharge)
			assert.Equal(t, []byte("%PDF-1.3 test"), got.Content)
			assert.True(t, base.Equal(got.CreatedAt))

			missing, err := st.GetInvoice(ctx, "nope")
			require.NoError(t, err)
			assert.Nil(t, missing)
		})
	}
}

func TestInvoices_ListAndRetention(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i, id := range []string{"a", "b", "c"} {
				require.NoError(t, st.SaveInvoice(ctx, invoiceAt(id, base.Add(time.Duration(i)*time.Hour))))
			}

			list, err := st.ListInvoices(ctx, 2, 0)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "c", list[0].ID)
			assert.Equal(t, "b", list[1].ID)
			assert.Empty(t, list[0].Content)

			rest, err := st.ListInvoices(ctx, 10, 2)
			require.NoError(t, err)
			require.Len(t, rest, 1)
			assert.Equal(t, "a", rest[0].ID)

			n, err := st.DeleteInvoicesBefore(ctx, base.Add(90*time.Minute))
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)

			left, err := st.ListInvoices(ctx, 0, 0)
			require.NoError(t, err)
			require.Len(t, left, 1)
			assert.Equal(t, "c", left[0].ID)
		})
	}
}

func TestUsersAndTokens(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, st.CreateUser(ctx, User{ID: "u1", Username: "clerk", Role: "clerk"}))
			u, err := st.GetUserByUsername(ctx, "clerk")
			require.NoError(t, err)
			require.NotNil(t, u)
			assert.Equal(t, "u1", u.ID)

			require.NoError(t, st.CreateToken(ctx, Token{ID: "t1", UserID: "u1", TokenHash: "h1", Role: "clerk"}))
			tok, err := st.GetTokenByHash(ctx, "h1")
			require.NoError(t, err)
			require.NotNil(t, tok)
			assert.Nil(t, tok.LastUsedAt)

			require.NoError(t, st.UpdateTokenLastUsed(ctx, "t1"))
			tok, err = st.GetTokenByHash(ctx, "h1")
			require.NoError(t, err)
			assert.NotNil(t, tok.LastUsedAt)

			require.NoError(t, st.DeleteToken(ctx, "t1"))
			tok, err = st.GetTokenByHash(ctx, "h1")
			require.NoError(t, err)
			assert.Nil(t, tok)
		})
	}
}

func TestCasbinRules(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, st.AddCasbinRule(ctx, CasbinRule{PType: "g", V0: "u1", V1: "clerk"}))
			require.NoError(t, st.AddCasbinRule(ctx, CasbinRule{PType: "g", V0: "u2", V1: "viewer"}))

			rules, err := st.LoadCasbinRules(ctx)
			require.NoError(t, err)
			assert.Len(t, rules, 2)

			require.NoError(t, st.RemoveCasbinRule(ctx, CasbinRule{PType: "g", V0: "u1", V1: "clerk"}))
			rules, err = st.LoadCasbinRules(ctx)
			require.NoError(t, err)
			require.Len(t, rules, 1)
			assert.Equal(t, "u2", rules[0].V0)
		})
	}
}

func TestSettingsEmailAndJobs(t *testing.T) {
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			v, err := st.GetSetting(ctx, "retention_days")
			require.NoError(t, err)
			assert.Empty(t, v)
			require.NoError(t, st.SetSetting(ctx, "retention_days", "30"))
			require.NoError(t, st.SetSetting(ctx, "retention_days", "60"))
			v, err = st.GetSetting(ctx, "retention_days")
			require.NoError(t, err)
			assert.Equal(t, "60", v)

			cfg, err := st.GetEmailConfig(ctx)
			require.NoError(t, err)
			assert.Nil(t, cfg)
			require.NoError(t, st.SaveEmailConfig(ctx, EmailConfig{Provider: "smtp", Host: "mail.local", Port: 25}))
			cfg, err = st.GetEmailConfig(ctx)
			require.NoError(t, err)
			require.NotNil(t, cfg)
			assert.Equal(t, "default", cfg.ID)
			assert.Equal(t, "mail.local", cfg.Host)

			ok, err := st.AcquireAdvisoryLock(ctx, 42)
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, st.UpdateScheduledJob(ctx, "invoice_retention", started, 1500*time.Millisecond, false, "boom"))
			job, err := st.GetScheduledJob(ctx, "invoice_retention")
			require.NoError(t, err)
			require.NotNil(t, job)
			assert.Equal(t, int64(1500), job.LastDurationMs)
			assert.Equal(t, 0, job.LastSuccess)
			assert.Equal(t, "boom", job.LastError)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mongo"})
	assert.Error(t, err)
}
