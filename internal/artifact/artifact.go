// Package artifact stores rendered invoice documents outside the database.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("artifact: not found")

// Store persists document bytes under a key and returns a location string
// describing where they ended up.
type Store interface {
	Put(ctx context.Context, key string, content []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// Config selects and configures a Store.
type Config struct {
	Kind string // none, file, s3
	Dir  string

	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// Open builds the configured store. Kind "none" (or empty) returns a nil
// Store, meaning documents live only in the invoice record.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Kind {
	case "", "none":
		return nil, nil
	case "file":
		st, err := NewFileStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "s3":
		st, err := NewS3Store(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("unsupported artifact store %q", cfg.Kind)
}

// Key builds the object key for an invoice document. Only the invoice ID
// goes into the key; the download name lives in the invoice record.
func Key(invoiceID string) string {
	return "invoices/" + invoiceID + ".pdf"
}

// validKey accepts relative, already-clean slash paths with no ".." segment.
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) || path.Clean(key) != key {
		return fmt.Errorf("artifact: invalid key %q", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return fmt.Errorf("artifact: invalid key %q", key)
		}
	}
	return nil
}
