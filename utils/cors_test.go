package utils

import "testing"

func TestIsAllowedOrigin(t *testing.T) {
	allowed := []string{
		"http://localhost:5173",
		"http://192.168.31.8:8080",
		"http://10.1.2.3",
		"http://172.20.0.5:3000",
		"http://169.254.9.9",
		"http://htpc.local",
		"http://tvbox:8080",
		"http://[::1]:8080",
	}
	for _, origin := range allowed {
		if !IsAllowedOrigin(origin) {
			t.Errorf("IsAllowedOrigin(%q) = false, want true", origin)
		}
	}

	blocked := []string{
		"https://youtv.example.com",
		"http://203.0.113.7",
		"http://172.32.0.1",
		"http://localhost.evil.com",
		"",
		"::not-an-origin",
	}
	for _, origin := range blocked {
		if IsAllowedOrigin(origin) {
			t.Errorf("IsAllowedOrigin(%q) = true, want false", origin)
		}
	}
}

func TestResolveAllowedOrigin(t *testing.T) {
	tests := []struct {
		name   string
		policy string
		origin string
		want   string
	}{
		{"wildcard policy", "*", "https://anything.example", "*"},
		{"empty policy defaults to wildcard", "", "", "*"},
		{"local policy reflects LAN origin", "local", "http://192.168.1.20:8080", "http://192.168.1.20:8080"},
		{"local policy drops public origin", "local", "https://evil.com", ""},
		{"list policy reflects listed origin", "https://a.example, https://b.example", "https://b.example", "https://b.example"},
		{"list policy drops unlisted origin", "https://a.example", "https://c.example", ""},
		{"list policy drops empty origin", "https://a.example", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveAllowedOrigin(tt.policy, tt.origin); got != tt.want {
				t.Errorf("ResolveAllowedOrigin(%q, %q) = %q, want %q", tt.policy, tt.origin, got, tt.want)
			}
		})
	}
}
