package server

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	appErrors "tendermatch/internal/errors"
	"tendermatch/internal/parser"
)

// VocabularyWatcher watches the skill vocabulary file and hands every
// successfully parsed new version to its callback.
type VocabularyWatcher struct {
	mu sync.RWMutex

	path        string
	lastModTime time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	onReload func(*parser.Vocabulary) error
	logger   *appErrors.Logger

	running    bool
	reloads    int
	failures   int
	lastError  string
	lastReload time.Time
}

// NewVocabularyWatcher creates a watcher for path. A zero debounceDelay uses one second.
func NewVocabularyWatcher(path string, debounceDelay time.Duration, onReload func(*parser.Vocabulary) error, logger *appErrors.Logger) *VocabularyWatcher {
	if debounceDelay <= 0 {
		debounceDelay = time.Second
	}
	if logger == nil {
		logger = appErrors.Discard()
	}

	return &VocabularyWatcher{
		path:          path,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		onReload:      onReload,
		logger:        logger,
	}
}

// Start begins watching the vocabulary file
func (vw *VocabularyWatcher) Start() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()

	if vw.running {
		return fmt.Errorf("vocabulary watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	if stat, err := os.Stat(vw.path); err == nil {
		vw.lastModTime = stat.ModTime()
	} else if !os.IsNotExist(err) {
		_ = watcher.Close()
		return fmt.Errorf("failed to stat vocabulary file %s: %w", vw.path, err)
	}

	// Editors and config management replace files by rename, which drops a
	// watch on the file itself, so the directory is watched as well.
	dir := filepath.Dir(vw.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	if err := watcher.Add(vw.path); err != nil && !os.IsNotExist(err) {
		vw.logger.Warn("Failed to watch vocabulary file directly", "file", vw.path, "error", err)
	}

	vw.fsWatcher = watcher
	vw.running = true
	go vw.watchLoop()

	vw.logger.Info("Vocabulary file watcher started",
		"file", vw.path,
		"debounce_delay", vw.debounceDelay)
	return nil
}

// Stop stops the watcher
func (vw *VocabularyWatcher) Stop() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()

	if !vw.running {
		return nil
	}

	close(vw.stopChan)
	if vw.debounceTimer != nil {
		vw.debounceTimer.Stop()
	}
	vw.running = false

	if err := vw.fsWatcher.Close(); err != nil {
		vw.logger.LogError(err, "Failed to close file system watcher")
		return err
	}

	vw.logger.Info("Vocabulary file watcher stopped")
	return nil
}

func (vw *VocabularyWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-vw.fsWatcher.Events:
			if !ok {
				return
			}
			if vw.shouldProcessEvent(event) {
				vw.scheduleReload()
			}

		case err, ok := <-vw.fsWatcher.Errors:
			if !ok {
				return
			}
			vw.logger.LogError(err, "File watcher error")

		case <-vw.reloadChan:
			if vw.hasFileChanged() {
				vw.reload()
			}

		case <-vw.stopChan:
			return
		}
	}
}

func (vw *VocabularyWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(vw.path) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// hasFileChanged compares the file's modification time with the last one seen
func (vw *VocabularyWatcher) hasFileChanged() bool {
	stat, err := os.Stat(vw.path)
	if err != nil {
		return false
	}

	vw.mu.Lock()
	defer vw.mu.Unlock()
	if stat.ModTime().Equal(vw.lastModTime) {
		return false
	}
	vw.lastModTime = stat.ModTime()
	return true
}

// reload parses the file and passes it on. A file that fails to parse or
// build leaves the current vocabulary in place.
func (vw *VocabularyWatcher) reload() {
	vocab, err := parser.LoadVocabulary(vw.path)
	if err == nil {
		err = vw.onReload(vocab)
	}

	vw.mu.Lock()
	defer vw.mu.Unlock()
	vw.lastReload = time.Now()
	if err != nil {
		vw.failures++
		vw.lastError = err.Error()
		vw.logger.LogError(err, "Vocabulary reload failed, keeping previous vocabulary", "file", vw.path)
		return
	}
	vw.reloads++
	vw.lastError = ""
	vw.logger.Info("Vocabulary reloaded", "file", vw.path, "terms", len(vocab.Terms()))
}

func (vw *VocabularyWatcher) scheduleReload() {
	vw.mu.Lock()
	defer vw.mu.Unlock()

	if vw.debounceTimer != nil {
		vw.debounceTimer.Stop()
	}

	vw.debounceTimer = time.AfterFunc(vw.debounceDelay, func() {
		select {
		case vw.reloadChan <- struct{}{}:
		default:
		}
	})
}

// IsRunning returns whether the watcher is currently running
func (vw *VocabularyWatcher) IsRunning() bool {
	vw.mu.RLock()
	defer vw.mu.RUnlock()
	return vw.running
}

// Status returns the watcher state for health reporting
func (vw *VocabularyWatcher) Status() map[string]any {
	vw.mu.RLock()
	defer vw.mu.RUnlock()

	status := map[string]any{
		"running":          vw.running,
		"file":             vw.path,
		"reload_count":     vw.reloads,
		"failure_count":    vw.failures,
		"last_error":       vw.lastError,
		"last_reload_time": vw.lastReload,
	}
	return status
}
