package websocket

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "no config allows all", origin: "https://evil.example", want: true},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://evil.example", want: true},
		{name: "exact match", allowed: []string{"https://hunt.example/"}, origin: "https://hunt.example", want: true},
		{name: "case insensitive", allowed: []string{"https://Hunt.example"}, origin: "https://hunt.example", want: true},
		{name: "other origin", allowed: []string{"https://hunt.example"}, origin: "https://evil.example", want: false},
		{name: "no origin header", allowed: []string{"https://hunt.example"}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, originChecker(tt.allowed)(req))
		})
	}
}
