package notification

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bher20/energyplatform/internal/invoice"
	"github.com/bher20/energyplatform/internal/storage"
)

func testDoc() *invoice.Document {
	return &invoice.Document{
		Filename:    "invoice_Ana_María.pdf",
		ContentType: invoice.ContentType,
		Content:     bytes.Repeat([]byte("%PDF-1.3 "), 20),
	}
}

func TestBuildMIME_HasPDFAttachment(t *testing.T) {
	msg := InvoiceMessage("ana@example.org", "Ana María", "229.162,50", testDoc())
	raw, err := buildMIME("Energy Platform <noreply@example.org>", msg)
	require.NoError(t, err)

	m, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "ana@example.org", m.Header.Get("To"))

	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(m.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Factura de energía", subject)

	mediaType, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(m.Body, params["boundary"])
	body, err := mr.NextPart()
	require.NoError(t, err)
	html, _ := io.ReadAll(body)
	assert.Contains(t, string(html), "$229.162,50")

	att, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", att.Header.Get("Content-Type"))
	assert.Equal(t, "invoice_Ana_María.pdf", att.FileName())
	enc, _ := io.ReadAll(att)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(enc), "\r\n", ""))
	require.NoError(t, err)
	assert.Equal(t, testDoc().Content, decoded)

	_, err = mr.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSend_NotConfigured(t *testing.T) {
	svc := NewService(storage.NewMemory())
	err := svc.Send(context.Background(), Message{To: "x@example.org"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSend_Resend(t *testing.T) {
	var got resendPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer re_key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	st := storage.NewMemory()
	svc := NewService(st, WithEndpoints(srv.URL, ""), WithHTTPClient(srv.Client()))
	require.NoError(t, svc.SaveConfig(ctx, storage.EmailConfig{
		Provider: "resend", APIKey: "re_key", FromAddress: "noreply@example.org", FromName: "Energy", Enabled: true,
	}))

	require.NoError(t, svc.Send(ctx, InvoiceMessage("ana@example.org", "Ana", "1,00", testDoc())))
	assert.Equal(t, []string{"ana@example.org"}, got.To)
	assert.Equal(t, "Energy <noreply@example.org>", got.From)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "invoice_Ana_María.pdf", got.Attachments[0].Filename)
}

func TestSend_ResendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	svc := NewService(storage.NewMemory(), WithEndpoints(srv.URL, ""))
	err := svc.SendWith(context.Background(), storage.EmailConfig{Provider: "resend"}, Message{To: "a@b.c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSend_Sendgrid(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer SG.key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	svc := NewService(storage.NewMemory(), WithEndpoints("", srv.URL))
	err := svc.SendWith(context.Background(), storage.EmailConfig{
		Provider: "sendgrid", APIKey: "SG.key", FromAddress: "noreply@example.org",
	}, InvoiceMessage("ana@example.org", "Ana", "1,00", testDoc()))
	require.NoError(t, err)

	atts, ok := got["attachments"].([]interface{})
	require.True(t, ok)
	require.Len(t, atts, 1)
	assert.Equal(t, "invoice_Ana_María.pdf", atts[0].(map[string]interface{})["filename"])
}

func TestSaveConfig_RejectsUnknownProvider(t *testing.T) {
	err := NewService(storage.NewMemory()).SaveConfig(context.Background(), storage.EmailConfig{Provider: "pigeon"})
	assert.Error(t, err)
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Hola Ana, total 1", stripTags("<p>Hola Ana, <b>total</b> 1</p>"))
}
