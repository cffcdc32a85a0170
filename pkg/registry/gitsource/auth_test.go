package gitsource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"sta-hq/verdict/pkg/config"
)

func TestNewAuthProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.GitAuthConfig
		wantType string
		wantErr  bool
	}{
		{"none", config.GitAuthConfig{Type: "none"}, "none", false},
		{"empty defaults to none", config.GitAuthConfig{}, "none", false},
		{"token", config.GitAuthConfig{Type: "token", Token: "ghp_x"}, "token", false},
		{"token missing", config.GitAuthConfig{Type: "token"}, "", true},
		{"ssh", config.GitAuthConfig{Type: "ssh", SSHKeyPath: "/keys/id"}, "ssh", false},
		{"ssh missing key", config.GitAuthConfig{Type: "ssh"}, "", true},
		{"unknown", config.GitAuthConfig{Type: "kerberos"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewAuthProvider(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAuthProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Type() != tt.wantType {
				t.Errorf("Type() = %q, want %q", p.Type(), tt.wantType)
			}
		})
	}
}

func TestTokenAuth_AuthMethod(t *testing.T) {
	method, err := TokenAuth{token: "secret"}.AuthMethod()
	if err != nil {
		t.Fatalf("AuthMethod() error = %v", err)
	}
	basic, ok := method.(*http.BasicAuth)
	if !ok || basic.Password != "secret" {
		t.Errorf("AuthMethod() = %#v", method)
	}

	if _, err := (TokenAuth{}).AuthMethod(); err == nil {
		t.Error("AuthMethod() with empty token should fail")
	}
}

func TestSSHAuth_RejectsOpenPermissions(t *testing.T) {
	key := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(key, []byte("not a key"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := (SSHAuth{keyPath: key}).AuthMethod(); err == nil {
		t.Error("AuthMethod() should reject a world-readable key")
	}

	if err := os.Chmod(key, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := (SSHAuth{keyPath: key}).AuthMethod(); err == nil {
		t.Error("AuthMethod() should reject an unparseable key")
	}
}

func TestNoAuth_AuthMethod(t *testing.T) {
	method, err := NoAuth{}.AuthMethod()
	if err != nil || method != nil {
		t.Errorf("AuthMethod() = %v, %v; want nil, nil", method, err)
	}
}
