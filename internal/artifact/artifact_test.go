package artifact

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_PutGet(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	st, err := NewFileStore(root)
	require.NoError(t, err)

	key := Key("inv-1")
	loc, err := st.Put(ctx, key, []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loc, "file://"))
	assert.FileExists(t, filepath.Join(root, "invoices", "inv-1.pdf"))

	got, err := st.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), got)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Join(root, "invoices"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = st.Get(ctx, Key("inv-2"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_RejectsEscapingKeys(t *testing.T) {
	root := t.TempDir()
	st, err := NewFileStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{
		"../evil.pdf",
		"/etc/passwd",
		"invoices/a/../../victim/invoice_x.pdf",
		"invoices/../victim.pdf",
		`invoices\..\victim.pdf`,
		"invoices//x.pdf",
	} {
		_, err := st.Put(ctx, key, []byte("%PDF"), "application/pdf")
		assert.Error(t, err, key)
		_, err = st.Get(ctx, key)
		assert.Error(t, err, key)
	}
	assert.NoFileExists(t, filepath.Join(root, "victim", "invoice_x.pdf"))

	// dots inside a segment are fine
	_, err = st.Put(ctx, "invoices/J..Smith.pdf", []byte("%PDF"), "application/pdf")
	assert.NoError(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "invoices/3f1c.pdf", Key("3f1c"))
	assert.NoError(t, validKey(Key("3f1c")))
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]map[string]string
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[k] = b
	f.meta[k] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func TestS3Store_PutGet(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{}, meta: map[string]map[string]string{}}
	st := NewS3StoreWithClient(fake, "invoices")

	key := Key("inv-1")
	loc, err := st.Put(ctx, key, []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "s3://invoices/invoices/inv-1.pdf", loc)
	assert.Len(t, fake.meta["invoices/"+key]["checksum-sha256"], 64)

	got, err := st.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), got)

	_, err = st.Get(ctx, Key("missing"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen(t *testing.T) {
	st, err := Open(context.Background(), Config{Kind: "none"})
	require.NoError(t, err)
	assert.Nil(t, st)

	st, err = Open(context.Background(), Config{Kind: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, st)

	_, err = Open(context.Background(), Config{Kind: "s3"})
	assert.Error(t, err)

	_, err = Open(context.Background(), Config{Kind: "ftp"})
	assert.Error(t, err)
}
