// internal/common/camunda/client_test.go
package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-recommender/internal/common/config"
	"car-recommender/internal/common/errors"
)

func testClient() *Client {
	return &Client{config: &ClientConfig{
		GatewayAddress: "localhost:26500",
		RetryConfig:    &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}}
}

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, isRetryableZeebeError(stderrors.New("rpc error: code = Unavailable desc = connection refused")))
	assert.True(t, isRetryableZeebeError(stderrors.New("context deadline exceeded")))
	assert.False(t, isRetryableZeebeError(stderrors.New("rpc error: code = NotFound")))
}

func TestBackoff(t *testing.T) {
	rc := &RetryConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, backoff(rc, 0))
	assert.Equal(t, 4*time.Second, backoff(rc, 2))
	assert.Equal(t, 5*time.Second, backoff(rc, 5))
}

func TestMapZeebeError(t *testing.T) {
	c := testClient()

	tests := []struct {
		msg  string
		code errors.ErrorCode
	}{
		{"connection refused", errors.ErrCodeRecommendationTransportFailed},
		{"deadline exceeded", errors.ErrCodeRecommendationTimeout},
		{"permission denied", errors.ErrCodeInternal},
	}
	for _, tt := range tests {
		err := c.mapZeebeError(stderrors.New(tt.msg), "topology", 1)
		assert.Equal(t, tt.code, errors.Normalize(err).Code, tt.msg)
	}
}

func TestExecuteWithRetry(t *testing.T) {
	c := testClient()

	calls := 0
	got, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, stderrors.New("unavailable")
		}
		return "ok", nil
	}, "topology")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)

	calls = 0
	_, err = c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		return nil, stderrors.New("invalid argument")
	}, "topology")
	require.Error(t, err)
	assert.Equal(t, 1, calls, "non transient errors are not retried")
}

func TestConfigFrom(t *testing.T) {
	cc := ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", RequestTimeout: 2500})
	assert.Equal(t, "zeebe:26500", cc.GatewayAddress)
	assert.Equal(t, 2500*time.Millisecond, cc.ConnectionTimeout)
	assert.True(t, cc.UsePlaintextConnection)

	assert.Equal(t, 10*time.Second, ConfigFrom(config.CamundaConfig{}).ConnectionTimeout)
}
