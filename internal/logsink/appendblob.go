// Package logsink ships slog records to an Azure append blob as JSON lines.
package logsink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/appendblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

type Config struct {
	AccountName string
	AccountKey  string
	Container   string
	// BlobName defaults to today's date folder plus the hostname.
	BlobName   string
	FlushEvery time.Duration
}

// appender is the one storage call the handler needs.
type appender interface {
	Append(ctx context.Context, block []byte) error
}

type blobAppender struct {
	ab *appendblob.Client
}

func newBlobAppender(ctx context.Context, cfg Config) (*blobAppender, error) {
	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid storage credential: %w", err)
	}
	// BlobName may include slashes; only the container is escaped.
	blobURL := "https://" + cfg.AccountName + ".blob.core.windows.net/" +
		url.PathEscape(cfg.Container) + "/" + cfg.BlobName

	ab, err := appendblob.NewClientWithSharedKeyCredential(blobURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create append blob client: %w", err)
	}
	if _, err := ab.Create(ctx, nil); err != nil && !bloberror.HasCode(err, bloberror.BlobAlreadyExists) {
		return nil, fmt.Errorf("failed to create log blob %s: %w", cfg.BlobName, err)
	}
	return &blobAppender{ab: ab}, nil
}

func (b *blobAppender) Append(ctx context.Context, block []byte) error {
	_, err := b.ab.AppendBlock(ctx, readSeekNopCloser{bytes.NewReader(block)}, nil)
	return err
}

type readSeekNopCloser struct{ io.ReadSeeker }

func (r readSeekNopCloser) Close() error { return nil }

// New connects to the configured container and starts the flush loop. Close flushes what
// is left.
func New(ctx context.Context, cfg Config) (*Handler, error) {
	if cfg.AccountName == "" || cfg.AccountKey == "" || cfg.Container == "" {
		return nil, errors.New("AccountName, AccountKey and Container are required")
	}
	if cfg.BlobName == "" {
		host, _ := os.Hostname()
		cfg.BlobName = BlobNameFor(time.Now(), host)
	}
	a, err := newBlobAppender(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newHandler(a, cfg.FlushEvery), nil
}
