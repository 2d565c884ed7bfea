package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/barathraj048/Ai-counsler/internal/metrics"
)

// #region transport

// Transport performs one raw round trip to the judgment service: a task-tagged
// request in, a single text blob out.
type Transport interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// #endregion transport

// #region config

// ClientConfig bounds every invocation.
type ClientConfig struct {
	Timeout     time.Duration // response-time budget per invocation, retries included
	MaxAttempts int           // total attempts inside the budget
	RateLimit   float64       // requests per second across the client, 0 = unlimited
	Burst       int
}

// DefaultClientConfig returns the budget used by the server.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:     20 * time.Second,
		MaxAttempts: 2,
		RateLimit:   0,
		Burst:       1,
	}
}

// #endregion config

// #region client-struct

// Client wraps a Transport with a time budget, bounded retries and an optional
// rate limiter. A Client with a nil transport is valid: every invocation
// fails with a transport failure, which drives callers onto their fallbacks.
type Client struct {
	transport Transport
	config    ClientConfig
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewClient creates a client around t.
func NewClient(t Transport, config ClientConfig, logger *zap.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultClientConfig().Timeout
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		transport: t,
		config:    config,
		logger:    logger.Named("oracle"),
	}
	if config.RateLimit > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}
	return c
}

// Available reports whether a transport is configured.
func (c *Client) Available() bool {
	return c != nil && c.transport != nil
}

// #endregion client-struct

// #region invoke

// Invoke sends req and validates the reply with decode. It never returns an
// error or panics: transport trouble, a blown budget and schema violations all
// come back as an explicit Failure.
func Invoke[T any](ctx context.Context, c *Client, req Request, decode func(string) (T, error)) Result[T] {
	if !c.Available() {
		return Failed[T](&Failure{Reason: FailTransport, Task: req.TaskKind, Err: ErrNoTransport})
	}

	start := time.Now()
	budgetCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var last *Failure
	for attempt := 1; attempt <= c.config.MaxAttempts; attempt++ {
		raw, err := c.complete(budgetCtx, req)
		if err != nil {
			last = &Failure{Reason: FailTransport, Task: req.TaskKind, Err: err}
		} else {
			v, derr := decode(raw)
			if derr == nil {
				metrics.ObserveOracle(string(req.TaskKind), "ok", time.Since(start))
				return Ok(v)
			}
			last = &Failure{Reason: FailSchema, Task: req.TaskKind, Err: derr}
		}

		c.logger.Debug("oracle attempt failed",
			zap.String("task", string(req.TaskKind)),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.config.MaxAttempts),
			zap.String("reason", string(last.Reason)),
			zap.Error(last.Err))

		// Budget spent or caller gone: no point in another attempt.
		if budgetCtx.Err() != nil {
			break
		}
	}

	c.logger.Warn("oracle invocation failed",
		zap.String("task", string(req.TaskKind)),
		zap.String("reason", string(last.Reason)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(last.Err))
	metrics.ObserveOracle(string(req.TaskKind), string(last.Reason), time.Since(start))
	return Failed[T](last)
}

// complete performs one rate-limited transport call. A panicking transport is
// reported as a transport error.
func (c *Client) complete(ctx context.Context, req Request) (raw string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panic: %v", r)
		}
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	raw, err = c.transport.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if ctx.Err() != nil {
		// Reply arrived after the budget ran out; treat it as a timeout.
		return "", fmt.Errorf("late reply: %w", ctx.Err())
	}
	return raw, nil
}

// #endregion invoke

// #region helpers

// IsTimeout reports whether a failure was caused by the response-time budget.
func IsTimeout(f *Failure) bool {
	return f != nil && f.Reason == FailTransport && errors.Is(f.Err, context.DeadlineExceeded)
}

// #endregion helpers
