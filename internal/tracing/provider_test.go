package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderDisabledReturnsNoopTracer(t *testing.T) {
	provider, err := NewProvider(TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.False(t, provider.IsEnabled())

	tracer := provider.GetTracer("test")
	assert.NotNil(t, tracer)
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProviderEnabledRequiresEndpoint(t *testing.T) {
	_, err := NewProvider(TracingConfig{
		Enabled:     true,
		ServiceName: "test",
		Endpoint:    "",
	})
	assert.Error(t, err)
}

func TestNewProviderEnabledWithEndpoint(t *testing.T) {
	provider, err := NewProvider(TracingConfig{
		Enabled:        true,
		ServiceName:    "test",
		ServiceVersion: "1.0.0",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		ExporterType:   "grpc",
	})
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.True(t, provider.IsEnabled())
	require.NoError(t, provider.Shutdown(context.Background()))
}
