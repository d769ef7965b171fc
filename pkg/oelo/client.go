package oelo

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperrors "github.com/oelohome/oelod/internal/errors"
)

// RetryPolicy bounds the client's retry behaviour. Unreachable and Timeout
// outcomes are retried up to MaxAttempts with doubling delay; ProtocolError is
// assumed to be a persistent firmware mismatch and is surfaced immediately.
type RetryPolicy struct {
	MaxAttempts    uint          // total attempts, including the first
	InitialBackoff time.Duration // delay before the first retry
	MaxBackoff     time.Duration // cap on the doubling delay
}

// DefaultRetryPolicy returns the policy used when the configuration doesn't
// override it.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// Client exposes semantic operations against one controller, wrapping every
// Transport call with the retry policy. After retries are exhausted the
// caller sees a single DeviceUnavailable outcome, never a hang and never a
// per-attempt error.
type Client struct {
	transport *Transport
	policy    RetryPolicy
	logger    *slog.Logger
}

// NewClient creates a controller client over the given transport.
func NewClient(transport *Transport, policy RetryPolicy, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.MaxAttempts == 0 {
		policy = DefaultRetryPolicy()
	}
	return &Client{
		transport: transport,
		policy:    policy,
		logger:    logger,
	}
}

// Addr returns the address of the controller this client talks to.
func (c *Client) Addr() string { return c.transport.Addr() }

// GetState reads the controller's current live light state.
func (c *Client) GetState(ctx context.Context) (*LightState, error) {
	var zones []ZoneState
	err := c.retry(ctx, "getController", func() error {
		z, err := c.transport.GetController(ctx)
		if err != nil {
			return err
		}
		zones = z
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &LightState{Zones: zones}, nil
}

// SetPattern pushes a full light state onto the controller, zone by zone.
// The operation is idempotent at the device: a retried duplicate leaves the
// controller in the same visible state, so at-least-once delivery is safe.
func (c *Client) SetPattern(ctx context.Context, state LightState) error {
	if len(state.Zones) == 0 {
		return apperrors.InvalidInputf("light state has no zones")
	}
	return c.retry(ctx, "setPattern", func() error {
		for _, zone := range state.Zones {
			if err := c.transport.SetPattern(ctx, zone); err != nil {
				return err
			}
		}
		return nil
	})
}

// Ping reports whether the controller currently answers /getController.
func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.transport.GetController(ctx)
	return err == nil
}

// retry runs fn under the client's retry policy. Transient transport errors
// (Unreachable, Timeout) are retried with exponential backoff; anything else
// is permanent. Only the final outcome crosses this boundary.
func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.policy.InitialBackoff
	bo.MaxInterval = c.policy.MaxBackoff
	bo.RandomizationFactor = 0

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if !apperrors.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		c.logger.Debug("oelo: transient failure",
			"op", op,
			"addr", c.transport.Addr(),
			"attempt", attempt,
			"error", err,
		)
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.policy.MaxAttempts-1)), ctx))

	if err == nil {
		return nil
	}
	if apperrors.IsRetryable(err) || ctx.Err() != nil {
		return apperrors.LogErrorAndReturn(c.logger,
			apperrors.DeviceUnavailablef("%s failed after %d attempts: %w", op, attempt, err),
			"oelo: retries exhausted",
			"op", op, "addr", c.transport.Addr(), "attempts", attempt,
		)
	}
	// ProtocolError and other permanent outcomes pass through unchanged so the
	// caller can distinguish them from exhausted retries.
	return err
}
