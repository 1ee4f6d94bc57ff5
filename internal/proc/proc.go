// Package proc provides the per-item processing strategies a batch run is
// built around. The coordinator treats the strategy as an injected function
// and never looks inside it; a strategy's error is data in the outcome list,
// not a batch failure.
package proc

import (
	"context"
	"fmt"
	"time"

	"github.com/conveyorhq/conveyor/internal/model"
)

// Func processes a single item. It must be safe for concurrent use, the
// worker pool calls it from several goroutines at once.
type Func func(ctx context.Context, item model.Item) error

// FromConfig builds the processing function selected by the batch config.
// Unknown names report model.ErrUnknownProcessor.
func FromConfig(cfg model.Batch) (Func, error) {
	switch cfg.Processor {
	case "", model.ProcessorChecksum:
		return Checksum, nil
	case model.ProcessorGzip:
		level := -1 // gzip.DefaultCompression
		if cfg.Gzip != nil && cfg.Gzip.Level != nil {
			level = *cfg.Gzip.Level
		}
		return NewGzip(level), nil
	case model.ProcessorDemo:
		delay := time.Second
		if cfg.Demo != nil && cfg.Demo.Delay != nil {
			d, err := time.ParseDuration(*cfg.Demo.Delay)
			if err != nil {
				return nil, fmt.Errorf("parsing batch.demo.delay: %w", err)
			}
			delay = d
		}
		return NewDemo(delay), nil
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Processor, model.ErrUnknownProcessor)
	}
}
