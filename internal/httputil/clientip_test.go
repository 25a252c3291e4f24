package httputil

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{name: "first forwarded hop", headers: map[string]string{"X-Forwarded-For": " 198.51.100.7 , 203.0.113.9"}, want: "198.51.100.7"},
		{name: "forwarded ipv6", headers: map[string]string{"X-Forwarded-For": "2001:db8::1, 203.0.113.9"}, want: "2001:db8::1"},
		{name: "forwarded wins over real ip", headers: map[string]string{"X-Forwarded-For": "198.51.100.77", "X-Real-IP": "203.0.113.200"}, want: "198.51.100.77"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "203.0.113.12"}, want: "203.0.113.12"},
		{name: "empty forwarded falls through", headers: map[string]string{"X-Forwarded-For": " , 1.2.3.4"}, remoteAddr: "192.0.2.1:80", want: "192.0.2.1"},
		{name: "remote addr ipv4", remoteAddr: "192.0.2.55:54321", want: "192.0.2.55"},
		{name: "remote addr ipv6", remoteAddr: "[2001:db8::5]:8443", want: "2001:db8::5"},
		{name: "malformed remote addr", remoteAddr: "not_an_ip_port", want: "not_an_ip_port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.remoteAddr != "" {
				r.RemoteAddr = tt.remoteAddr
			}
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}
