package server

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tendermatch/internal/parser"
)

type vocabRecorder struct {
	mu     sync.Mutex
	loaded [][]string
	err    error
}

func (r *vocabRecorder) onReload(v *parser.Vocabulary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.loaded = append(r.loaded, v.Terms())
	return nil
}

func (r *vocabRecorder) last() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.loaded) == 0 {
		return nil
	}
	return r.loaded[len(r.loaded)-1]
}

func writeVocab(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestVocabularyWatcherReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.txt")
	writeVocab(t, path, "# skills\nCOBOL\nFortran\n")

	rec := &vocabRecorder{}
	vw := NewVocabularyWatcher(path, 0, rec.onReload, nil)
	assert.Equal(t, time.Second, vw.debounceDelay)

	vw.reload()
	assert.Equal(t, []string{"cobol", "fortran"}, rec.last())

	status := vw.Status()
	assert.Equal(t, 1, status["reload_count"])
	assert.Equal(t, 0, status["failure_count"])
}

func TestVocabularyWatcherKeepsPreviousOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.txt")
	writeVocab(t, path, "cobol\n")

	rec := &vocabRecorder{}
	vw := NewVocabularyWatcher(path, time.Millisecond, rec.onReload, nil)
	vw.reload()

	writeVocab(t, path, "# nothing here\n\n")
	vw.reload()

	rec.err = errors.New("build failed")
	writeVocab(t, path, "ada\n")
	vw.reload()

	assert.Equal(t, []string{"cobol"}, rec.last())
	status := vw.Status()
	assert.Equal(t, 1, status["reload_count"])
	assert.Equal(t, 2, status["failure_count"])
	assert.Equal(t, "build failed", status["last_error"])
}

func TestVocabularyWatcherShouldProcessEvent(t *testing.T) {
	vw := NewVocabularyWatcher("/etc/tendermatch/vocabulary.txt", 0, nil, nil)

	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "/etc/tendermatch/vocabulary.txt", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/etc/tendermatch/./vocabulary.txt", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/etc/tendermatch/vocabulary.txt", Op: fsnotify.Rename}, true},
		{fsnotify.Event{Name: "/etc/tendermatch/vocabulary.txt", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/etc/tendermatch/other.txt", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		if got := vw.shouldProcessEvent(tt.event); got != tt.want {
			t.Errorf("shouldProcessEvent(%v) = %v, want %v", tt.event, got, tt.want)
		}
	}
}

func TestVocabularyWatcherDetectsFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.txt")
	writeVocab(t, path, "cobol\n")

	rec := &vocabRecorder{}
	vw := NewVocabularyWatcher(path, 20*time.Millisecond, rec.onReload, nil)
	require.NoError(t, vw.Start())
	t.Cleanup(func() { _ = vw.Stop() })
	assert.True(t, vw.IsRunning())
	assert.Error(t, vw.Start())

	writeVocab(t, path, "ada\nlisp\n")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	require.Eventually(t, func() bool {
		return len(rec.last()) == 2
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"ada", "lisp"}, rec.last())

	require.NoError(t, vw.Stop())
	assert.False(t, vw.IsRunning())
}
