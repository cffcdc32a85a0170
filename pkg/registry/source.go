package registry

import "context"

// Source locates the rule pack to load. Fetch may do work first, such as
// pulling a Git repository, and returns the path handed to the Loader.
type Source interface {
	Fetch(ctx context.Context) (string, error)
	String() string
}

// FileSource is a rule pack file or directory on the local filesystem.
type FileSource string

// Fetch returns the path unchanged.
func (s FileSource) Fetch(context.Context) (string, error) {
	return string(s), nil
}

// String returns the path.
func (s FileSource) String() string {
	return string(s)
}
