package gitsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"sta-hq/verdict/pkg/config"
)

// Source is a registry source backed by a Git repository. It is safe for
// concurrent use; fetches are serialised.
type Source struct {
	cfg       config.GitConfig
	localPath string
	auth      AuthProvider
	logger    *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
	head string
}

// New creates a Git source from cfg. Nothing is cloned until Fetch.
func New(cfg *config.GitConfig, logger *slog.Logger) (*Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}
	auth, err := NewAuthProvider(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	localPath := cfg.Clone.LocalPath
	if localPath == "" {
		localPath = filepath.Join(os.TempDir(), "verdict-rules")
	}

	return &Source{
		cfg:       *cfg,
		localPath: localPath,
		auth:      auth,
		logger:    logger.With("component", "registry.git", "repository", cfg.Repository, "branch", cfg.Branch),
	}, nil
}

// Fetch clones the repository on the first call and pulls on later calls.
// It returns the rule pack path inside the working tree.
func (s *Source) Fetch(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		if err := s.clone(ctx); err != nil {
			return "", err
		}
	} else if err := s.pull(ctx); err != nil {
		return "", err
	}

	ref, err := s.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	if sha := ref.Hash().String(); sha != s.head {
		s.logger.Info("rule pack repository updated", "from", s.head, "to", sha)
		s.head = sha
	}

	return filepath.Join(s.localPath, s.cfg.Path), nil
}

// Head returns the commit SHA of the last successful fetch.
func (s *Source) Head() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head
}

// String describes the source for logs and errors.
func (s *Source) String() string {
	return fmt.Sprintf("git:%s@%s/%s", s.cfg.Repository, s.cfg.Branch, s.cfg.Path)
}

func (s *Source) clone(ctx context.Context) error {
	if s.cfg.Clone.CleanOnStart {
		if err := os.RemoveAll(s.localPath); err != nil {
			return fmt.Errorf("failed to clean existing clone: %w", err)
		}
	}

	if _, err := os.Stat(filepath.Join(s.localPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(s.localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing clone: %w", err)
		}
		s.repo = repo
		return s.pull(ctx)
	}

	if err := os.MkdirAll(s.localPath, 0755); err != nil {
		return fmt.Errorf("failed to create clone directory: %w", err)
	}

	auth, err := s.auth.AuthMethod()
	if err != nil {
		return fmt.Errorf("failed to get auth: %w", err)
	}

	cloneCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	repo, err := gogit.PlainCloneContext(cloneCtx, s.localPath, false, &gogit.CloneOptions{
		URL:           s.cfg.Repository,
		Auth:          auth,
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
		Depth:         s.cfg.Clone.Depth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone repository: %w", err)
	}

	s.logger.Info("rule pack repository cloned", "path", s.localPath, "auth", s.auth.Type())
	s.repo = repo
	return nil
}

func (s *Source) pull(ctx context.Context) error {
	worktree, err := s.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	auth, err := s.auth.AuthMethod()
	if err != nil {
		return fmt.Errorf("failed to get auth: %w", err)
	}

	pullCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull: %w", err)
	}
	return nil
}

func (s *Source) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}
