package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Sink publishes one encoded run report.
type Sink interface {
	Publish(ctx context.Context, raw []byte) error
}

// SinkCloser is a Sink holding a resource that must be released on shutdown.
type SinkCloser interface {
	Sink
	Close() error
}

// PublishAll fans the report out to every sink and joins the failures, a
// broken sink never hides the report from the others.
func PublishAll(ctx context.Context, sinks []Sink, raw []byte) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Publish(ctx, raw); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CloseAll releases every sink that holds a resource.
func CloseAll(ctx context.Context, sinks []Sink) {
	for _, s := range sinks {
		if closer, ok := s.(SinkCloser); ok {
			if err := closer.Close(); err != nil {
				slog.ErrorContext(ctx, "closing report sink failed", "error", err)
			}
		}
	}
}

// WriteSink publishes reports to an io.Writer, stdout by default.
type WriteSink struct {
	w io.Writer
}

func NewWriteSink(w io.Writer) WriteSink {
	return WriteSink{w: w}
}

func (s WriteSink) Publish(_ context.Context, raw []byte) error {
	if s.w == nil {
		s.w = os.Stdout
	}
	_, err := s.w.Write(raw)
	return err
}

// DirSink publishes reports as timestamped files inside a directory.
type DirSink struct {
	root *os.Root
}

func NewDirSink(path string) (*DirSink, error) {
	root, err := os.OpenRoot(path)
	if err != nil {
		return nil, err
	}
	return &DirSink{root: root}, nil
}

func (s *DirSink) Publish(ctx context.Context, raw []byte) error {
	if s.root == nil {
		return errors.New("report directory already closed")
	}

	path := "conveyor-" + time.Now().Format("2006-01-02-15-04-05") + ".json"

	f, err := s.root.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	_, err = f.Write(raw)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	err = f.Close()
	if err != nil {
		return fmt.Errorf("closing report: %w", err)
	}
	slog.InfoContext(ctx, "report saved", "path", path)
	return nil
}

func (s *DirSink) Close() error {
	if s.root == nil {
		return errors.New("report directory already closed")
	}
	err := s.root.Close()
	s.root = nil
	return err
}

const webhookPath = "api/v1/runs"

// HTTPSink POSTs reports to a webhook endpoint.
type HTTPSink struct {
	requestURL *url.URL
	client     *http.Client
}

// NewHTTPSink validates serverURL, which must carry a scheme and a host and
// no path, e.g. `https://reports.example.com`.
func NewHTTPSink(serverURL string) (*HTTPSink, error) {
	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	parsedURL.Path = strings.TrimRight(parsedURL.Path, "/")

	if parsedURL.Scheme == "" || parsedURL.Host == "" || parsedURL.Path != "" {
		return nil, errors.New("please define the webhook url with a scheme and without path, e.g. `https://some-url.com`")
	}
	parsedURL.Path = webhookPath

	return &HTTPSink{
		requestURL: parsedURL,
		client:     &http.Client{},
	}, nil
}

func (s *HTTPSink) Publish(ctx context.Context, raw []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.requestURL.String(), bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		slog.DebugContext(ctx, "report uploaded", "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("webhook replied %d, reading body failed: %w", resp.StatusCode, err)
	}
	return fmt.Errorf("webhook replied %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
