package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/trainboot/trainboot/internal/retry"
)

// Fetcher downloads the installer artifact. Downloads are the only network
// operation in this stage and get bounded retry with backoff; HTTP client
// errors (4xx) are not retried.
type Fetcher struct {
	client   *http.Client
	attempts int
	delay    time.Duration
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithAttempts sets the total download attempts.
func WithAttempts(n int) FetcherOption {
	return func(f *Fetcher) {
		f.attempts = n
	}
}

// WithRetryDelay sets the initial backoff delay.
func WithRetryDelay(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.delay = d
	}
}

// NewFetcher creates a Fetcher with defaults: 3 attempts, 2s initial
// backoff.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: 5 * time.Minute},
		attempts: 3,
		delay:    2 * time.Second,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch downloads url to dest, retrying transient failures up to the
// configured bound.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) error {
	return retry.Do(ctx, func() error {
		return f.fetchOnce(ctx, url, dest)
	}, retry.WithAttempts(f.attempts), retry.WithInitialDelay(f.delay))
}

func (f *Fetcher) fetchOnce(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("build request: %w", err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return retry.Permanent(fmt.Errorf("download %s: HTTP %d", url, resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: HTTP %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return retry.Permanent(fmt.Errorf("create temp file: %w", err))
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dest, err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return retry.Permanent(fmt.Errorf("move download into place: %w", err))
	}

	return nil
}

// VerifyChecksum compares the SHA-256 digest of path against want (hex).
// An empty want disables verification.
func VerifyChecksum(path, want string) error {
	if want == "" {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return fmt.Errorf("hash %s: %w", path, err)
	}

	got := hex.EncodeToString(hash.Sum(nil))
	if got != want {
		return fmt.Errorf("checksum mismatch for %s: got %s, want %s", path, got, want)
	}
	return nil
}
