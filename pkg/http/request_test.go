package http

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote addr with port", "203.0.113.7:54321", "", "203.0.113.7"},
		{"remote addr without port", "203.0.113.7", "", "203.0.113.7"},
		{"remote addr wins over header", "203.0.113.7:54321", "198.51.100.1", "203.0.113.7"},
		{"forwarded fallback", "", "198.51.100.1", "198.51.100.1"},
		{"forwarded list takes first valid", "", "garbage, 198.51.100.1", "198.51.100.1"},
		{"nothing usable", "", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/auth/login", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			assert.Equal(t, tt.want, ExtractClientIP(r))
		})
	}
}
