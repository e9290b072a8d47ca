package server

import (
	"fmt"
	"sync"
	"time"

	"tendermatch/internal/config"
	appErrors "tendermatch/internal/errors"
)

// SecretReader reads versioned KV v2 secrets; *config.VaultClient implements it.
type SecretReader interface {
	ReadSecret(path string) (*config.VaultSecret, error)
}

// APIKeysCallback receives the API keys read after a secret version change
type APIKeysCallback func(keys []string)

// VaultWatcher polls a KV v2 secret holding the server's API keys and
// applies them whenever the secret version increases.
type VaultWatcher struct {
	mu sync.RWMutex

	client       SecretReader
	secretPath   string
	pollInterval time.Duration
	onKeys       APIKeysCallback
	logger       *appErrors.Logger

	stopChan    chan struct{}
	running     bool
	lastVersion int64
	lastError   string
	rotations   int
}

// NewVaultWatcher creates a new VaultWatcher
func NewVaultWatcher(client SecretReader, secretPath string, pollInterval time.Duration, onKeys APIKeysCallback, logger *appErrors.Logger) *VaultWatcher {
	if logger == nil {
		logger = appErrors.Discard()
	}
	return &VaultWatcher{
		client:       client,
		secretPath:   secretPath,
		pollInterval: pollInterval,
		onKeys:       onKeys,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start begins polling Vault for secret changes
func (vw *VaultWatcher) Start() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if vw.running {
		return fmt.Errorf("vault watcher is already running")
	}
	if vw.pollInterval <= 0 {
		return fmt.Errorf("vault watcher needs a positive poll interval")
	}
	vw.running = true
	go vw.pollLoop()
	vw.logger.Info("Vault API key watcher started", "secret_path", vw.secretPath, "poll_interval", vw.pollInterval)
	return nil
}

// Stop stops the Vault watcher
func (vw *VaultWatcher) Stop() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if !vw.running {
		return nil
	}
	close(vw.stopChan)
	vw.running = false
	vw.logger.Info("Vault API key watcher stopped")
	return nil
}

func (vw *VaultWatcher) pollLoop() {
	ticker := time.NewTicker(vw.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			vw.poll()
		case <-vw.stopChan:
			return
		}
	}
}

// poll applies new keys when the secret version changed. Errors keep the current keys.
func (vw *VaultWatcher) poll() {
	secret, err := vw.checkForUpdates()
	if err == nil && secret != nil {
		var keys []string
		keys, err = vw.apiKeys(secret)
		if err == nil {
			vw.onKeys(keys)
			vw.mu.Lock()
			vw.rotations++
			vw.mu.Unlock()
			vw.logger.Info("API keys rotated from Vault", "count", len(keys), "version", secret.Version)
		}
	}

	vw.mu.Lock()
	defer vw.mu.Unlock()
	if err != nil {
		vw.lastError = err.Error()
		vw.logger.LogError(err, "Failed to refresh API keys from Vault", "secret_path", vw.secretPath)
		return
	}
	vw.lastError = ""
}

// checkForUpdates reads the secret and returns it when its version is newer
// than the last one seen, or nil when nothing changed.
func (vw *VaultWatcher) checkForUpdates() (*config.VaultSecret, error) {
	secret, err := vw.client.ReadSecret(vw.secretPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}
	if secret == nil {
		return nil, fmt.Errorf("secret %s not found", vw.secretPath)
	}

	vw.mu.Lock()
	defer vw.mu.Unlock()
	if secret.Version > vw.lastVersion {
		vw.lastVersion = secret.Version
		return secret, nil
	}
	return nil, nil
}

// apiKeys pulls the key list out of the secret. An empty list is an error,
// since applying it would turn authentication off.
func (vw *VaultWatcher) apiKeys(secret *config.VaultSecret) ([]string, error) {
	keys, err := secret.ListField(config.APIKeysField)
	if err != nil {
		return nil, fmt.Errorf("failed to read API keys from vault: %w", err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("secret %s has no API keys", vw.secretPath)
	}
	return keys, nil
}

// Status returns the current status of the VaultWatcher for health reporting
func (vw *VaultWatcher) Status() map[string]any {
	vw.mu.RLock()
	defer vw.mu.RUnlock()
	return map[string]any{
		"running":        vw.running,
		"poll_interval":  vw.pollInterval.String(),
		"secret_path":    vw.secretPath,
		"last_version":   vw.lastVersion,
		"rotation_count": vw.rotations,
		"last_error":     vw.lastError,
	}
}
