// Package retry retries reads that failed with errors.ErrNodeUnavailable. The loader never
// retries on its own; callers opt in by wrapping calls with Do or Value, or by wrapping their
// node.Client with NewClient.
package retry

import (
	stdctx "context"
	"time"

	"github.com/go-json-experiment/json/jsontext"
	"github.com/gostdlib/base/context"

	"github.com/bearlytools/chainstate/errors"
	"github.com/bearlytools/chainstate/node"
	"github.com/bearlytools/chainstate/value"
)

// Policy configures retry behavior.
type Policy struct {
	// MaxAttempts is the maximum number of retries after the first call.
	// 0 means no retry (single attempt), 1 means retry once (2 total attempts).
	MaxAttempts int

	// InitialBackoff is the initial wait time before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum wait time between retries.
	MaxBackoff time.Duration

	// Multiplier is the factor by which the backoff increases after each retry.
	Multiplier float64

	// Retryable is an optional function to determine if an error is retryable.
	// If nil, IsRetryable is used.
	Retryable func(err error) bool
}

// DefaultPolicy returns a sensible default retry policy.
// 3 retries, 100ms initial backoff, 5s max backoff, 2x multiplier.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
	}
}

// IsRetryable reports if err is a transport failure worth another attempt. Cancellation and
// deadlines are not retried, the caller has given up.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, stdctx.Canceled) || errors.Is(err, stdctx.DeadlineExceeded) {
		return false
	}
	return errors.IsRetryable(err)
}

// Do calls fn until it succeeds, fails with an error the policy does not retry, or the
// attempts run out. The last error is returned.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	_, err := Value(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Value is Do for calls that return a value.
func Value[T any](ctx context.Context, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	retryable := policy.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	var zero T
	var lastErr error
	backoff := policy.InitialBackoff

	for attempt := 0; attempt <= max(policy.MaxAttempts, 0); attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if !retryable(err) {
			return zero, err
		}
		lastErr = err

		// Don't wait after the last attempt.
		if attempt < policy.MaxAttempts {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}

			backoff = time.Duration(float64(backoff) * policy.Multiplier)
			if backoff > policy.MaxBackoff {
				backoff = policy.MaxBackoff
			}
		}
	}
	return zero, lastErr
}

// Client is a node.Client that retries reads of another node.Client.
type Client struct {
	next   node.Client
	policy Policy
}

var _ node.Client = (*Client)(nil)

// NewClient wraps next so each read is retried according to policy.
func NewClient(next node.Client, policy Policy) *Client {
	return &Client{next: next, policy: policy}
}

// Resource implements node.Client.Resource.
func (c *Client) Resource(ctx context.Context, addr value.Address, resourceType string) (jsontext.Value, error) {
	return Value(ctx, c.policy, func(ctx context.Context) (jsontext.Value, error) {
		return c.next.Resource(ctx, addr, resourceType)
	})
}

// TableItem implements node.Client.TableItem.
func (c *Client) TableItem(ctx context.Context, handle value.Address, keyType, valueType string, key jsontext.Value) (jsontext.Value, error) {
	return Value(ctx, c.policy, func(ctx context.Context) (jsontext.Value, error) {
		return c.next.TableItem(ctx, handle, keyType, valueType, key)
	})
}
