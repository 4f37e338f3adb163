package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrInvalid))
	assert.Nil(t, w)
}

func TestNewWatcher_RejectsBadPattern(t *testing.T) {
	_, err := NewWatcher(time.Millisecond, []string{"[abc"}, nil, func([]string) {})
	require.Error(t, err)
}

func TestShouldExcludeFile(t *testing.T) {
	w, err := NewWatcher(time.Millisecond, []string{"__pycache__"}, []string{"*_pb2.py"}, func([]string) {})
	require.NoError(t, err)
	defer w.Close()

	cases := map[string]bool{
		"pkg/models.py":        false,
		"pkg/README.md":        true,
		"pkg/test_models.py":   true,
		"pkg/models_test.py":   true,
		"pkg/service_pb2.py":   true,
		"pkg/Models.PY":        false,
		"pkg/conftest.py":      false,
		"pkg/__init__.py":      false,
		"pkg/sub/contest_x.py": false,
	}
	for path, want := range cases {
		assert.Equal(t, want, w.shouldExcludeFile(filepath.FromSlash(path)), path)
	}
	assert.True(t, w.shouldExcludeDir(filepath.FromSlash("pkg/__pycache__")))

	w.IncludeTests(true)
	assert.False(t, w.shouldExcludeFile("test_models.py"))
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "__pycache__"), 0o755))

	changedFiles := make(chan []string, 4)
	w, err := NewWatcher(100*time.Millisecond, []string{"__pycache__"}, []string{"*.exclude.py"}, func(paths []string) {
		changedFiles <- paths
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{tmpDir}))

	testFile := filepath.Join(tmpDir, "models.py")
	require.NoError(t, os.WriteFile(testFile, []byte("class A:\n    pass\n"), 0o644))

	select {
	case paths := <-changedFiles:
		assert.Contains(t, paths, testFile)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for file change event")
	}

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "gen.exclude.py"), []byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "__pycache__", "models.py"), []byte("x = 1\n"), 0o644))

	select {
	case paths := <-changedFiles:
		t.Fatalf("excluded files triggered a change: %v", paths)
	case <-time.After(500 * time.Millisecond):
	}

	// New directories are watched once created.
	subdir := filepath.Join(tmpDir, "pkg")
	require.NoError(t, os.MkdirAll(subdir, 0o755))
	time.Sleep(100 * time.Millisecond)
	nested := filepath.Join(subdir, "shop.py")
	require.NoError(t, os.WriteFile(nested, []byte("class Cart:\n    pass\n"), 0o644))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changedFiles:
			for _, p := range paths {
				if p == nested {
					return
				}
			}
		case <-deadline:
			t.Fatal("timed out waiting for nested file change event")
		}
	}
}

func TestWatcher_UnchangedContentIsIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "models.py")
	content := []byte("class A:\n    pass\n")
	require.NoError(t, os.WriteFile(target, content, 0o644))

	changedFiles := make(chan []string, 4)
	w, err := NewWatcher(50*time.Millisecond, nil, nil, func(paths []string) {
		changedFiles <- paths
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{tmpDir}))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(target, content, 0o644))
	select {
	case paths := <-changedFiles:
		t.Fatalf("rewriting identical content triggered a change: %v", paths)
	case <-time.After(400 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(target, []byte("class B:\n    pass\n"), 0o644))
	select {
	case paths := <-changedFiles:
		assert.Equal(t, []string{target}, paths)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for content change")
	}
}
