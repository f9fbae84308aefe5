package cmd

import "testing"

func TestDefaultRedirectURI(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want string
	}{
		{"port only", ":8000", "http://localhost:8000/api/auth/callback"},
		{"host and port", "0.0.0.0:9000", "http://0.0.0.0:9000/api/auth/callback"},
		{"empty addr", "", "http://localhost:8000/api/auth/callback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := defaultRedirectURI(tt.addr); got != tt.want {
				t.Errorf("defaultRedirectURI(%q) = %q, want %q", tt.addr, got, tt.want)
			}
		})
	}
}

func TestServeCmdFlags(t *testing.T) {
	cmd := newServeCmd()

	for _, flag := range []string{
		"debug", "http-addr", "client-url", "session-timeout", "max-emails",
		"google-client-id", "google-client-secret", "google-redirect-uri",
		"groq-api-key", "groq-base-url", "groq-model",
		"metrics-enabled", "metrics-addr",
	} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("serve command is missing the --%s flag", flag)
		}
	}
}
