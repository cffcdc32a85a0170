package registry

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/Masterminds/semver/v3"

	"sta-hq/verdict/pkg/escalation"
)

// LoaderConfig contains configuration for loading rule packs from disk.
type LoaderConfig struct {
	// MaxFileSize is the largest accepted document, in bytes.
	MaxFileSize int64

	// AllowedExtensions lists the document extensions picked up in a directory.
	AllowedExtensions []string

	// SkipHidden skips files and directories whose name starts with ".".
	SkipHidden bool

	// FollowSymlinks loads documents reached through symbolic links.
	FollowSymlinks bool
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		MaxFileSize:       1024 * 1024,
		AllowedExtensions: []string{".yaml", ".yml", ".json"},
		SkipHidden:        true,
		FollowSymlinks:    false,
	}
}

// Loader loads rule packs from a file or a directory tree.
type Loader struct {
	config *LoaderConfig
	logger *slog.Logger
}

// NewLoader creates a loader. A nil config uses DefaultLoaderConfig and a
// nil logger uses slog.Default().
func NewLoader(config *LoaderConfig, logger *slog.Logger) *Loader {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{config: config, logger: logger.With("component", "registry.loader")}
}

type sourceDocument struct {
	path string
	doc  *Document
}

// Load loads the rule pack at path. A directory is loaded recursively and
// its documents are merged in lexical path order. Any error aborts the
// load and is returned as *LoadError.
func (l *Loader) Load(ctx context.Context, path string) (*Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, statError(path, err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = l.collectFiles(path)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, &LoadError{Path: path, Message: "no rule pack documents found in directory"}
		}
	}

	docs := make([]sourceDocument, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, &LoadError{Path: path, Message: "load cancelled", Cause: err}
		}
		doc, err := l.loadFile(file)
		if err != nil {
			return nil, err
		}
		docs = append(docs, sourceDocument{path: file, doc: doc})
	}

	snap, err := assemble(path, docs)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("rule pack loaded",
		"path", path,
		"documents", len(docs),
		"pack_id", snap.Pack().ID,
		"pack_version", snap.Pack().Version,
		"rules", snap.Len(),
		"version", snap.Version(),
	)
	return snap, nil
}

// FromDocuments assembles a snapshot from already parsed documents using
// the same merge rules as Load.
func FromDocuments(docs ...*Document) (*Snapshot, error) {
	sources := make([]sourceDocument, len(docs))
	for i, doc := range docs {
		sources[i] = sourceDocument{path: fmt.Sprintf("document[%d]", i), doc: doc}
	}
	return assemble("", sources)
}

// loadFile reads and parses one document after size and encoding checks.
func (l *Loader) loadFile(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, statError(path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{Path: path, Message: "not a regular file"}
	}
	if info.Size() > l.config.MaxFileSize {
		return nil, &LoadError{
			Path:    path,
			Message: fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), l.config.MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read file", Cause: err}
	}
	if !utf8.Valid(data) {
		return nil, &LoadError{Path: path, Message: "file contains invalid UTF-8 encoding"}
	}

	doc, err := ParseDocument(data)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "invalid rule pack document", Cause: err}
	}
	return doc, nil
}

// assemble merges documents into one snapshot. At most one document may
// declare pack metadata, envelope identifiers or thresholds; signals and
// rules accumulate in document order.
func assemble(source string, docs []sourceDocument) (*Snapshot, error) {
	b := NewBuilder()
	b.SetSource(source)

	var packFrom, envelopeFrom, thresholdsFrom string
	for _, sd := range docs {
		doc := sd.doc

		if doc.Pack != nil {
			if packFrom != "" {
				return nil, &LoadError{Path: sd.path, Message: fmt.Sprintf("pack metadata already declared in %s", packFrom)}
			}
			packFrom = sd.path
			if _, err := semver.NewVersion(doc.Pack.Version); err != nil {
				return nil, &LoadError{Path: sd.path, Message: fmt.Sprintf("invalid pack version %q", doc.Pack.Version), Cause: err}
			}
			b.SetPack(*doc.Pack)
		}

		if doc.Envelope != nil {
			if envelopeFrom != "" {
				return nil, &LoadError{Path: sd.path, Message: fmt.Sprintf("envelope section already declared in %s", envelopeFrom)}
			}
			envelopeFrom = sd.path
			b.SetStableIdentifiers(doc.Envelope.StableIdentifiers)
		}

		if doc.HasThresholds() {
			if thresholdsFrom != "" {
				return nil, &LoadError{Path: sd.path, Message: fmt.Sprintf("thresholds already declared in %s", thresholdsFrom)}
			}
			thresholdsFrom = sd.path
			table, err := escalation.NewTable(doc.Thresholds)
			if err != nil {
				return nil, &LoadError{Path: sd.path, Message: "invalid thresholds", Cause: err}
			}
			b.SetThresholds(table)
		}

		for _, def := range doc.Signals {
			if err := b.RegisterSignal(def); err != nil {
				return nil, &LoadError{Path: sd.path, Message: "invalid signal definition", Cause: err}
			}
		}

		for i := range doc.Rules {
			rule, err := doc.Rules[i].Rule()
			if err == nil {
				err = b.Register(rule)
			}
			if err != nil {
				return nil, &LoadError{Path: sd.path, Message: fmt.Sprintf("rules[%d]", i), Cause: err}
			}
		}
	}

	if packFrom == "" {
		return nil, &LoadError{Path: source, Message: "no document declares pack metadata"}
	}

	return b.Build(), nil
}

// collectFiles lists the rule pack documents under dir in lexical order.
func (l *Loader) collectFiles(dir string) ([]string, error) {
	var files []string
	visited := make(map[string]bool)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip hidden files/directories if configured
		if l.config.SkipHidden && strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if !l.config.FollowSymlinks {
				return nil
			}
			realPath, err := filepath.EvalSymlinks(path)
			if err != nil {
				return &LoadError{Path: path, Message: "failed to resolve symlink", Cause: err}
			}
			if visited[realPath] {
				return &LoadError{Path: path, Message: "symlink loop detected"}
			}
			visited[realPath] = true
			if !l.hasValidExtension(realPath) {
				return nil
			}
			files = append(files, path)
			return nil
		}

		if l.hasValidExtension(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			return nil, le
		}
		return nil, &LoadError{Path: dir, Message: "failed to walk directory", Cause: err}
	}

	slices.Sort(files)
	return files, nil
}

// hasValidExtension checks if the file has an accepted document extension.
func (l *Loader) hasValidExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range l.config.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func statError(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return &LoadError{Path: path, Message: "path not found", Cause: err}
	case os.IsPermission(err):
		return &LoadError{Path: path, Message: "permission denied", Cause: err}
	default:
		return &LoadError{Path: path, Message: "failed to access path", Cause: err}
	}
}
