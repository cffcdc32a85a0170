package gitsource

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"sta-hq/verdict/pkg/config"
)

// AuthProvider supplies Git transport credentials.
type AuthProvider interface {
	// AuthMethod returns the transport authentication, or nil for none.
	AuthMethod() (transport.AuthMethod, error)

	// Type returns the auth type for logging.
	Type() string
}

// TokenAuth authenticates HTTPS remotes with a personal access token.
type TokenAuth struct {
	token string
}

// AuthMethod returns HTTP basic auth carrying the token as password.
func (a TokenAuth) AuthMethod() (transport.AuthMethod, error) {
	if a.token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}
	return &http.BasicAuth{Username: "git", Password: a.token}, nil
}

// Type returns "token".
func (TokenAuth) Type() string { return "token" }

// SSHAuth authenticates SSH remotes with a private key file.
type SSHAuth struct {
	keyPath    string
	passphrase string
}

// AuthMethod loads the key. Keys readable by group or others are refused.
func (a SSHAuth) AuthMethod() (transport.AuthMethod, error) {
	if a.keyPath == "" {
		return nil, fmt.Errorf("ssh key path cannot be empty")
	}
	info, err := os.Stat(a.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access SSH key file: %w", err)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", perm)
	}

	auth, err := ssh.NewPublicKeysFromFile("git", a.keyPath, a.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}
	return auth, nil
}

// Type returns "ssh".
func (SSHAuth) Type() string { return "ssh" }

// NoAuth is used for public repositories and local paths.
type NoAuth struct{}

// AuthMethod returns nil.
func (NoAuth) AuthMethod() (transport.AuthMethod, error) { return nil, nil }

// Type returns "none".
func (NoAuth) Type() string { return "none" }

// NewAuthProvider returns the provider selected by cfg.Type.
func NewAuthProvider(cfg config.GitAuthConfig) (AuthProvider, error) {
	switch cfg.Type {
	case "token":
		if cfg.Token == "" {
			return nil, fmt.Errorf("token auth requires non-empty token")
		}
		return TokenAuth{token: cfg.Token}, nil
	case "ssh":
		if cfg.SSHKeyPath == "" {
			return nil, fmt.Errorf("ssh auth requires ssh_key_path")
		}
		return SSHAuth{keyPath: cfg.SSHKeyPath, passphrase: cfg.SSHKeyPassphrase}, nil
	case "none", "":
		return NoAuth{}, nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", cfg.Type)
	}
}
