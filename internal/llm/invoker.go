package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/doc-extractor/internal/common"
)

const (
	DefaultMaxAttempts    = 3
	DefaultBaseDelay      = time.Second
	DefaultAttemptTimeout = 60 * time.Second
)

// ExhaustedRetriesError is returned once every attempt has failed. It unwraps
// to the last underlying error.
type ExhaustedRetriesError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.Err)
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Err
}

// Invoker calls a Generator with bounded, sequential retries and a fixed
// delay between attempts. Every error is treated as retryable.
type Invoker struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration // zero disables the per-attempt deadline
	Logger         *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewInvoker returns an Invoker with the default policy.
func NewInvoker(logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{
		MaxAttempts:    DefaultMaxAttempts,
		BaseDelay:      DefaultBaseDelay,
		AttemptTimeout: DefaultAttemptTimeout,
		Logger:         logger,
	}
}

// InvokerFromConfig applies the retry settings from cfg.
func InvokerFromConfig(cfg common.LLMConfig, logger *slog.Logger) *Invoker {
	inv := NewInvoker(logger)
	inv.MaxAttempts = cfg.MaxAttempts
	inv.BaseDelay = cfg.RetryDelay
	inv.AttemptTimeout = cfg.AttemptTimeout
	return inv
}

// Invoke runs client.GenerateContent until it succeeds or MaxAttempts is
// reached. Cancelling ctx stops the loop, including during the delay.
func (inv *Invoker) Invoke(ctx context.Context, client Generator, params Params) (*Response, error) {
	logger := common.LoggerFromContext(ctx, inv.Logger)
	maxAttempts := inv.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := inv.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("invoke cancelled before attempt %d: %w", attempt, err)
		}

		start := time.Now()
		resp, err := inv.attempt(ctx, client, params)
		if err == nil {
			logger.Info("llm.invoke.ok",
				"model", params.Model,
				"attempt", attempt,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			LogUsage(logger, resp)
			return resp, nil
		}

		lastErr = err
		logger.Warn("llm.invoke.attempt_failed",
			"model", params.Model,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err.Error(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)

		if attempt == maxAttempts {
			break
		}
		if err := sleep(ctx, inv.BaseDelay); err != nil {
			return nil, fmt.Errorf("invoke cancelled after attempt %d: %w", attempt, err)
		}
	}

	logger.Error("llm.invoke.exhausted",
		"model", params.Model,
		"attempts", maxAttempts,
		"error", lastErr.Error(),
	)
	return nil, &ExhaustedRetriesError{Attempts: maxAttempts, Err: lastErr}
}

func (inv *Invoker) attempt(ctx context.Context, client Generator, params Params) (*Response, error) {
	if inv.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.AttemptTimeout)
		defer cancel()
	}
	resp, err := client.GenerateContent(ctx, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return nil, fmt.Errorf("attempt timed out after %s: %w", inv.AttemptTimeout, err)
		}
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("empty response from model")
	}
	return resp, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
