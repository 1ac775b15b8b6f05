package cli

import (
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
)

func TestCreateFiberConfig(t *testing.T) {
	appName := "Test App"
	config := createFiberConfig(appName, 0)

	// AppName should always be set correctly
	assert.Equal(t, appName, config.AppName, "AppName should match input")
	assert.Equal(t, fiber.HeaderXForwardedFor, config.ProxyHeader)
	assert.Zero(t, config.BodyLimit, "default body limit is left to fiber")
}

func TestCreateFiberConfigBodyLimit(t *testing.T) {
	tests := []struct {
		name     string
		maxBytes int64
		expected int
	}{
		{
			name:     "small uploads keep the default",
			maxBytes: 1 << 20,
			expected: 0,
		},
		{
			name:     "large uploads raise the limit",
			maxBytes: 10 << 20,
			expected: 11 << 20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createFiberConfig("gmpcms", tt.maxBytes)
			assert.Equal(t, tt.expected, config.BodyLimit)
		})
	}
}
