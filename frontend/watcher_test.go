package frontend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/contractspec/element"
)

// hashParser lowers any file into a single module element keyed by content.
type hashParser struct {
	root string
}

func (p *hashParser) ParseFile(_ context.Context, path string) (*ParseResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(p.root, path)
	if err != nil {
		rel = path
	}
	name := rel[:len(rel)-len(filepath.Ext(rel))]
	return &ParseResult{
		Path: rel,
		Hash: ComputeHash(content),
		Module: &element.Element{
			Kind:          element.KindModule,
			Name:          name,
			QualifiedPath: name,
		},
	}, nil
}

func (p *hashParser) ParseDirectory(ctx context.Context, dir string) ([]*ParseResult, error) {
	var results []*ParseResult
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || filepath.Ext(path) != ".py" {
			return err
		}
		result, err := p.ParseFile(ctx, path)
		if err != nil {
			return err
		}
		results = append(results, result)
		return nil
	})
	return results, err
}

func watchRegistry() *Registry {
	reg := NewRegistry()
	reg.Register("python", []string{".py"}, func(root string) FileParser {
		return &hashParser{root: root}
	})
	return reg
}

func TestWatcher_HashCache(t *testing.T) {
	w, err := NewWatcher(WatcherConfig{Root: t.TempDir(), Registry: watchRegistry()})
	require.NoError(t, err)
	defer w.watcher.Close()

	_, ok := w.Hash("a.py")
	assert.False(t, ok)

	w.SetHash("a.py", "abc")
	hash, ok := w.Hash("a.py")
	require.True(t, ok)
	assert.Equal(t, "abc", hash)
}

func TestWatcher_IndexDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("x = 1\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.py"), []byte("y = 2\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "c.txt"), []byte("skip"), 0644))

	w, err := NewWatcher(WatcherConfig{Root: root, Registry: watchRegistry()})
	require.NoError(t, err)
	defer w.watcher.Close()

	results, err := w.IndexDirectory(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, r := range results {
		hash, ok := w.Hash(r.Path)
		require.True(t, ok)
		assert.Equal(t, r.Hash, hash)
	}
}

func TestWatcher_EmitsDebouncedEvents(t *testing.T) {
	root := t.TempDir()

	w, err := NewWatcher(WatcherConfig{
		Root:          root,
		Registry:      watchRegistry(),
		DebounceDelay: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	path := filepath.Join(root, "a.py")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0644))

	event := waitForEvent(t, w)
	assert.Equal(t, "a.py", event.Path)
	assert.Equal(t, OpCreate, event.Operation)
	require.NotNil(t, event.Result)
	assert.Equal(t, "a", event.Result.Module.QualifiedPath)

	// Rewriting identical content changes no hash and emits nothing; a real
	// change does.
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("x = 2\n"), 0644))

	event = waitForEvent(t, w)
	assert.Equal(t, "a.py", event.Path)
	assert.Equal(t, OpModify, event.Operation)

	require.NoError(t, os.Remove(path))
	event = waitForEvent(t, w)
	assert.Equal(t, OpDelete, event.Operation)
	assert.Nil(t, event.Result)
	_, ok := w.Hash("a.py")
	assert.False(t, ok)
}

func TestWatcher_StopClosesEvents(t *testing.T) {
	root := t.TempDir()

	w, err := NewWatcher(WatcherConfig{
		Root:          root,
		Registry:      watchRegistry(),
		DebounceDelay: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	// Queue changes right up to Stop; shutdown must not race the
	// processing goroutine's sends.
	for i := 0; i < 10; i++ {
		name := filepath.Join(root, "f"+string(rune('a'+i))+".py")
		require.NoError(t, os.WriteFile(name, []byte("x = 1\n"), 0644))
	}
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	// The events channel drains and closes once processing stops.
	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-w.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("events channel did not close after Stop")
		}
	}
}

func waitForEvent(t *testing.T, w *Watcher) WatchEvent {
	t.Helper()
	select {
	case event := <-w.Events():
		return event
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watch event")
		return WatchEvent{}
	}
}
