// Package frontend defines the language front-end contract: a front end
// reads source files and lowers them into language-neutral element trees
// the analysis engine consumes. Front ends register themselves by file
// extension; the engine never touches raw source.
package frontend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/c360studio/contractspec/element"
)

// ParseResult is the output of lowering one source file: a module element
// whose children are the file's classes, methods, and functions, plus a
// content hash for change detection.
type ParseResult struct {
	// Path is the file path relative to the source root.
	Path string

	// Hash is the SHA-256 of the file content.
	Hash string

	// Module is the root element for the file. Never nil on success.
	Module *element.Element
}

// FileParser lowers source files of one language into element trees.
type FileParser interface {
	// ParseFile lowers a single file.
	ParseFile(ctx context.Context, path string) (*ParseResult, error)

	// ParseDirectory lowers every matching file under dir, skipping
	// paths the language conventionally excludes (virtual envs, caches).
	ParseDirectory(ctx context.Context, dir string) ([]*ParseResult, error)
}

// ComputeHash computes a SHA-256 hash of file content.
func ComputeHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ParserFactory creates a FileParser rooted at a source directory.
type ParserFactory func(root string) FileParser

// Registry maps languages and file extensions to parser factories.
// Thread-safe for concurrent access.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]ParserFactory
	extMap  map[string]string // extension → parser name
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[string]ParserFactory),
		extMap:  make(map[string]string),
	}
}

// Register adds a parser factory under a language name for the given
// extensions (leading dot included). First registration wins on an
// extension conflict.
func (r *Registry) Register(name string, extensions []string, factory ParserFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.parsers[name] = factory
	for _, ext := range extensions {
		if _, exists := r.extMap[ext]; !exists {
			r.extMap[ext] = name
		}
	}
}

// ParserName returns the parser name registered for a file extension.
func (r *Registry) ParserName(ext string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.extMap[ext]
	return name, ok
}

// Create instantiates a parser by language name.
func (r *Registry) Create(name, root string) (FileParser, error) {
	r.mu.RLock()
	factory, ok := r.parsers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("parser not registered: %s", name)
	}
	return factory(root), nil
}

// CreateForExtension instantiates a parser for a file extension.
func (r *Registry) CreateForExtension(ext, root string) (FileParser, error) {
	name, ok := r.ParserName(ext)
	if !ok {
		return nil, fmt.Errorf("no parser registered for extension: %s", ext)
	}
	return r.Create(name, root)
}

// Extensions returns all registered file extensions.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.extMap))
	for ext := range r.extMap {
		exts = append(exts, ext)
	}
	return exts
}

// Languages returns all registered parser names.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	return names
}

// DefaultRegistry is the global registry. Language front ends register
// themselves via init().
var DefaultRegistry = NewRegistry()
