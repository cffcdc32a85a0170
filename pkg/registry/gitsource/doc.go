// Package gitsource loads rule packs from a Git repository.
//
// A Source clones the configured repository on first use and pulls the
// tracked branch on every later Fetch, then hands the registry Reloader the
// path of the rule pack inside the working tree:
//
//	src, err := gitsource.New(&cfg.Registry.Git, logger)
//	reloader := registry.NewReloader(store, src, loader, opts)
//
// Authentication supports HTTPS tokens, SSH keys and anonymous access.
package gitsource
