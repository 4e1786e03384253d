package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wayfarer/pkg/metrics"
)

var (
	ErrUnavailable = errors.New("text generation unavailable")
	ErrMalformed   = errors.New("malformed generation output")
	ErrEmpty       = errors.New("empty generation output")
)

// Request is one prompt to a model. Purpose labels metrics and logs.
type Request struct {
	Purpose     string
	System      string
	Prompt      string
	JSON        bool
	Temperature float32
}

// Generator is the text-generation capability. Implementations must be safe
// for concurrent use.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// Disabled is used when no provider is configured; every caller falls back
// to its deterministic path.
type Disabled struct{}

func (Disabled) Generate(context.Context, Request) (string, error) { return "", ErrUnavailable }
func (Disabled) Name() string                                      { return "none" }

type instrumented struct {
	next    Generator
	timeout time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics
}

// Instrument wraps g with a per-call timeout, structured logs and metrics.
func Instrument(g Generator, timeout time.Duration, log *zap.Logger, m *metrics.Metrics) Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &instrumented{next: g, timeout: timeout, log: log, metrics: m}
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Generate(ctx context.Context, req Request) (string, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}
	start := time.Now()
	out, err := i.next.Generate(ctx, req)
	took := time.Since(start)

	outcome := "ok"
	switch {
	case errors.Is(err, ErrUnavailable):
		outcome = "disabled"
	case err != nil:
		outcome = "error"
		i.log.Warn("generation failed",
			zap.String("provider", i.next.Name()),
			zap.String("purpose", req.Purpose),
			zap.Duration("took", took),
			zap.Error(err))
	default:
		i.log.Debug("generation",
			zap.String("provider", i.next.Name()),
			zap.String("purpose", req.Purpose),
			zap.Duration("took", took),
			zap.Int("chars", len(out)))
	}
	i.metrics.GenerationCall(req.Purpose, outcome, took)
	if err != nil {
		return "", fmt.Errorf("%s: %w", req.Purpose, err)
	}
	return out, nil
}
