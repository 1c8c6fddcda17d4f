package gateway

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_NextRetryDelay(t *testing.T) {
	policy := NewRetryPolicy(DefaultRetryConfig())

	assert.Equal(t, 2*time.Second, policy.NextRetryDelay(0))
	assert.Equal(t, 2*time.Second, policy.NextRetryDelay(1))
	assert.Equal(t, 4*time.Second, policy.NextRetryDelay(2))
	assert.Equal(t, 8*time.Second, policy.NextRetryDelay(3))
	// Capped at the maximum delay.
	assert.Equal(t, 10*time.Second, policy.NextRetryDelay(4))
	assert.Equal(t, 10*time.Second, policy.NextRetryDelay(10))
}

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	policy := NewRetryPolicy(DefaultRetryConfig())
	transportErr := errors.New("connection refused")

	assert.False(t, policy.ShouldRetry(1, nil), "no error, no retry")
	assert.True(t, policy.ShouldRetry(1, transportErr))
	assert.True(t, policy.ShouldRetry(2, transportErr))
	assert.False(t, policy.ShouldRetry(3, transportErr), "three attempts total")

	// Deterministic API rejections are never retried, wrapped or not.
	apiErr := &APIError{StatusCode: 500, Body: "boom"}
	assert.False(t, policy.ShouldRetry(1, apiErr))
	assert.False(t, policy.ShouldRetry(1, errors.Join(errors.New("query failed"), apiErr)))
}

func TestNewRetryPolicy_AppliesDefaults(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{})
	assert.Equal(t, DefaultRetryConfig(), policy.config)
}
