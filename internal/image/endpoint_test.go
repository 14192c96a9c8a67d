package image

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpoint_URLs(t *testing.T) {
	tests := []struct {
		name     string
		routes   []string
		primary  string
		fallback string
	}{
		{
			name:     "defaults",
			primary:  "https://router.huggingface.co/hf-inference/models/acme/diffusion",
			fallback: "https://router.huggingface.co/hf-inference/acme/diffusion",
		},
		{
			name:    "single named route",
			routes:  []string{RouteV1},
			primary: "https://router.huggingface.co/hf-inference/v1/models/acme/diffusion",
		},
		{
			name:     "templates",
			routes:   []string{"/custom/{model}/generate", "https://mirror.example/{model}", RouteBare},
			primary:  "https://router.huggingface.co/custom/acme/diffusion/generate",
			fallback: "https://mirror.example/acme/diffusion",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Endpoint{Model: testModel, Routes: tt.routes}.withDefaults()
			primary, fallback, err := e.URLs()
			require.NoError(t, err)
			assert.Equal(t, tt.primary, primary)
			assert.Equal(t, tt.fallback, fallback)
		})
	}
}

func TestEndpoint_URLsRejectsTemplateWithoutModel(t *testing.T) {
	e := Endpoint{Model: testModel, Routes: []string{"hf-inference/static"}}.withDefaults()
	_, _, err := e.URLs()
	assert.True(t, IsKind(err, KindConfiguration))
}

func TestEndpoint_Defaults(t *testing.T) {
	e := Endpoint{}.withDefaults()
	assert.Equal(t, DefaultHost, e.Host)
	assert.Equal(t, DefaultModel, e.Model)
	assert.Equal(t, DefaultRoutes, e.Routes)
	assert.Equal(t, DefaultMaxAttempts, e.MaxAttempts)
	assert.Equal(t, DefaultTimeout, e.Timeout)
	assert.Equal(t, DefaultBackoff, e.Backoff)
	assert.Equal(t, DefaultMaxBackoff, e.MaxBackoff)
}

func TestFailure_Error(t *testing.T) {
	err := &Failure{Kind: KindRemote, Status: 500, Body: "boom", Attempts: 1}
	assert.Equal(t, "remote_error: status 500: boom", err.Error())
	assert.Equal(t, KindRemote, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(assert.AnError))
}
