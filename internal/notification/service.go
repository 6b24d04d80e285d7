// Package notification delivers rendered invoices by email.
package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/bher20/energyplatform/internal/invoice"
	"github.com/bher20/energyplatform/internal/storage"
)

// ErrNotConfigured is returned when no enabled email configuration exists.
var ErrNotConfigured = errors.New("email not configured or disabled")

const (
	defaultResendURL = "https://api.resend.com/emails"
	defaultSubject   = "Factura de energía"
)

// Attachment is a file sent along with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a single outgoing email.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type Service struct {
	storage      storage.Storage
	httpClient   *http.Client
	resendURL    string
	sendgridHost string
}

type Option func(*Service)

// WithEndpoints overrides the Resend URL and the SendGrid host.
func WithEndpoints(resendURL, sendgridHost string) Option {
	return func(s *Service) {
		s.resendURL = resendURL
		s.sendgridHost = sendgridHost
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

func NewService(st storage.Storage, opts ...Option) *Service {
	s := &Service{storage: st, httpClient: http.DefaultClient, resendURL: defaultResendURL}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) GetConfig(ctx context.Context) (*storage.EmailConfig, error) {
	return s.storage.GetEmailConfig(ctx)
}

func (s *Service) SaveConfig(ctx context.Context, cfg storage.EmailConfig) error {
	switch cfg.Provider {
	case "smtp", "gmail", "sendgrid", "resend":
	default:
		return fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
	return s.storage.SaveEmailConfig(ctx, cfg)
}

// InvoiceMessage builds the email carrying a rendered invoice.
func InvoiceMessage(to, customerName, total string, doc *invoice.Document) Message {
	body := fmt.Sprintf("<p>Hola %s,</p><p>Adjuntamos su factura de energía. Total a pagar: <strong>$%s</strong>.</p>",
		customerName, total)
	return Message{
		To:      to,
		Subject: defaultSubject,
		HTML:    body,
		Attachments: []Attachment{{
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
			Content:     doc.Content,
		}},
	}
}

// Send delivers msg with the stored configuration.
func (s *Service) Send(ctx context.Context, msg Message) error {
	cfg, err := s.storage.GetEmailConfig(ctx)
	if err != nil {
		return err
	}
	if cfg == nil || !cfg.Enabled {
		return ErrNotConfigured
	}
	return s.SendWith(ctx, *cfg, msg)
}

// SendWith delivers msg with an explicit configuration, e.g. to test
// settings before saving them.
func (s *Service) SendWith(ctx context.Context, cfg storage.EmailConfig, msg Message) error {
	switch cfg.Provider {
	case "smtp", "gmail":
		return s.sendSMTP(&cfg, msg)
	case "sendgrid":
		return s.sendSendgrid(ctx, &cfg, msg)
	case "resend":
		return s.sendResend(ctx, &cfg, msg)
	default:
		return fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// buildMIME renders msg as a multipart/mixed message with the HTML body
// first and one base64 part per attachment.
func buildMIME(from string, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	body, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {`text/html; charset="UTF-8"`},
	})
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(body, msg.HTML); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {a.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename})},
		})
		if err != nil {
			return nil, err
		}
		if _, err := io.WriteString(part, wrap76(base64.StdEncoding.EncodeToString(a.Content))); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func wrap76(s string) string {
	var b strings.Builder
	for len(s) > 76 {
		b.WriteString(s[:76])
		b.WriteString("\r\n")
		s = s[76:]
	}
	b.WriteString(s)
	return b.String()
}

func fromHeader(cfg *storage.EmailConfig) string {
	if cfg.FromName == "" {
		return cfg.FromAddress
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", cfg.FromName), cfg.FromAddress)
}

func (s *Service) sendSMTP(cfg *storage.EmailConfig, msg Message) error {
	raw, err := buildMIME(fromHeader(cfg), msg)
	if err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var c *smtp.Client
	switch cfg.Encryption {
	case "ssl":
		// implicit TLS
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
		if err != nil {
			return err
		}
		c, err = smtp.NewClient(conn, cfg.Host)
		if err != nil {
			conn.Close()
			return err
		}
	case "tls":
		c, err = smtp.Dial(addr)
		if err != nil {
			return err
		}
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				c.Close()
				return err
			}
		}
	default:
		var auth smtp.Auth
		if cfg.Username != "" {
			auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		}
		return smtp.SendMail(addr, auth, cfg.FromAddress, []string{msg.To}, raw)
	}
	defer c.Quit()

	if cfg.Username != "" && cfg.Password != "" {
		if err := c.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(cfg.FromAddress); err != nil {
		return err
	}
	if err := c.Rcpt(msg.To); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	return w.Close()
}

func (s *Service) sendSendgrid(ctx context.Context, cfg *storage.EmailConfig, msg Message) error {
	from := mail.NewEmail(cfg.FromName, cfg.FromAddress)
	message := mail.NewSingleEmail(from, msg.Subject, mail.NewEmail("", msg.To), stripTags(msg.HTML), msg.HTML)
	for _, a := range msg.Attachments {
		message.AddAttachment(mail.NewAttachment().
			SetContent(base64.StdEncoding.EncodeToString(a.Content)).
			SetType(a.ContentType).
			SetFilename(a.Filename).
			SetDisposition("attachment"))
	}

	req := sendgrid.GetRequest(cfg.APIKey, "/v3/mail/send", s.sendgridHost)
	req.Method = "POST"
	req.Body = mail.GetRequestBody(message)
	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: %d %s", resp.StatusCode, resp.Body)
	}
	return nil
}

type resendAttachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type resendPayload struct {
	From        string             `json:"from"`
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
}

func (s *Service) sendResend(ctx context.Context, cfg *storage.EmailConfig, msg Message) error {
	payload := resendPayload{
		From:    fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress),
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	}
	for _, a := range msg.Attachments {
		payload.Attachments = append(payload.Attachments, resendAttachment{
			Filename: a.Filename,
			Content:  base64.StdEncoding.EncodeToString(a.Content),
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.resendURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resend error: %d %s", resp.StatusCode, string(b))
	}
	return nil
}

func stripTags(html string) string {
	var b strings.Builder
	in := false
	for _, r := range html {
		switch {
		case r == '<':
			in = true
		case r == '>':
			in = false
		case !in:
			b.WriteRune(r)
		}
	}
	return b.String()
}
