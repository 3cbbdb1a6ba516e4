// Package download streams a remote asset to a local file with progress
// reporting and cancellation.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/ratelimit"

	"github.com/valksor/go-julesetup/internal/log"
)

const (
	DefaultChunkSize = 32 * 1024
	DefaultUserAgent = "julesetup"

	// indeterminateStep is how many bytes pass between progress events when
	// the total size is unknown.
	indeterminateStep = 256 * 1024
)

// Downloader starts transfers. It holds no per-transfer state and may start
// several tasks, although the installer only ever runs one at a time.
type Downloader struct {
	client    *http.Client
	chunkSize int
	rate      int64
	userAgent string
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithChunkSize sets the read buffer size in bytes.
func WithChunkSize(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// WithRateLimit caps throughput in bytes per second. Zero disables the cap.
func WithRateLimit(bytesPerSecond int64) Option {
	return func(d *Downloader) {
		if bytesPerSecond >= 0 {
			d.rate = bytesPerSecond
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(d *Downloader) {
		if ua != "" {
			d.userAgent = ua
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) {
		if c != nil {
			d.client = c
		}
	}
}

// WithConnectTimeout bounds connection setup, the TLS handshake and the wait
// for response headers. The body transfer itself is not limited, so slow or
// rate limited links can take as long as they need. Zero disables the bound.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		if timeout > 0 {
			d.client = &http.Client{Transport: connectTransport(timeout)}
		}
	}
}

func connectTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	t.TLSHandshakeTimeout = timeout
	t.ResponseHeaderTimeout = timeout
	return t
}

// New creates a downloader.
func New(opts ...Option) *Downloader {
	d := &Downloader{
		client:    &http.Client{},
		chunkSize: DefaultChunkSize,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start begins fetching src into dst on a new goroutine and returns the task
// immediately. Cancelling ctx has the same effect as Task.Cancel.
func (d *Downloader) Start(ctx context.Context, src, dst string) *Task {
	ctx, cancel := context.WithCancel(ctx)
	task := newTask(src, dst, cancel)

	go func() {
		defer close(task.done)
		defer close(task.events)
		defer cancel()

		d.run(ctx, task)
	}()

	return task
}

// Fetch runs a transfer to completion and returns the final error, discarding
// progress.
func (d *Downloader) Fetch(ctx context.Context, src, dst string) error {
	task := d.Start(ctx, src, dst)
	for range task.Events() {
	}
	return task.Err()
}

func (d *Downloader) run(ctx context.Context, task *Task) {
	task.setState(StateInProgress)
	log.Debug("download started", "url", task.SourceURL, "path", task.DestinationPath)

	err := d.transfer(ctx, task)

	switch {
	case err == nil:
		task.finish(StateCompleted, nil)
		log.Debug("download completed", "path", task.DestinationPath)
		task.events <- Event{Kind: EventCompleted, Path: task.DestinationPath}

	case errors.Is(ctx.Err(), context.Canceled):
		err = ErrCancelled
		task.finish(StateCancelled, err)
		log.Debug("download cancelled", "url", task.SourceURL)
		task.events <- Event{Kind: EventCancelled, Err: err}

	default:
		if !errors.Is(err, ErrNetwork) && !errors.Is(err, ErrWrite) {
			err = fmt.Errorf("%w: %w", ErrNetwork, err)
		}
		task.finish(StateFailed, err)
		log.Warn("download failed", "url", task.SourceURL, log.Err(err))
		task.events <- Event{Kind: EventFailed, Err: err}
	}
}

func (d *Downloader) transfer(ctx context.Context, task *Task) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.SourceURL, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", ErrNetwork, err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status: %d", ErrNetwork, resp.StatusCode)
	}

	total := resp.ContentLength
	task.setTotal(total)

	if err := os.MkdirAll(filepath.Dir(task.DestinationPath), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	file, err := os.Create(task.DestinationPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer func() { _ = file.Close() }()

	var body io.Reader = resp.Body
	if d.rate > 0 {
		capacity := max(d.rate, int64(d.chunkSize))
		body = ratelimit.Reader(resp.Body, ratelimit.NewBucketWithRate(float64(d.rate), capacity))
	}

	buf := make([]byte, d.chunkSize)
	lastPercent := -1
	var nextMark int64

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				return fmt.Errorf("%w: %w", ErrWrite, err)
			}
			done := task.addTransferred(int64(n))

			if total > 0 {
				percent := percentOf(done, total)
				if percent > lastPercent {
					lastPercent = percent
					if !send(ctx, task, Event{Kind: EventProgress, Percent: percent, BytesTransferred: done, BytesTotal: total}) {
						return ctx.Err()
					}
				}
			} else if done >= nextMark {
				nextMark = done + indeterminateStep
				if !send(ctx, task, Event{Kind: EventProgress, Indeterminate: true, BytesTransferred: done, BytesTotal: -1}) {
					return ctx.Err()
				}
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("%w: %w", ErrNetwork, readErr)
		}
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// percentOf returns floor(done/total*100) clamped to 100. total must be positive.
func percentOf(done, total int64) int {
	if done >= total {
		return 100
	}
	return int(done * 100 / total)
}

func send(ctx context.Context, task *Task, e Event) bool {
	select {
	case task.events <- e:
		return true
	case <-ctx.Done():
		return false
	}
}
