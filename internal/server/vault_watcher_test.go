package server

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"tendermatch/internal/config"
)

// MockVaultClient serves secrets from memory
type MockVaultClient struct {
	mu      sync.Mutex
	secrets map[string]*config.VaultSecret
	err     error
}

func (m *MockVaultClient) set(path string, secret *config.VaultSecret) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[path] = secret
}

func (m *MockVaultClient) ReadSecret(path string) (*config.VaultSecret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if secret, exists := m.secrets[path]; exists {
		return secret, nil
	}
	return nil, nil
}

const testKeysPath = "secret/data/tendermatch/api-keys"

func keysSecret(version int64, keys ...string) *config.VaultSecret {
	return &config.VaultSecret{
		Path:    testKeysPath,
		Data:    map[string]any{config.APIKeysField: keys},
		Version: version,
	}
}

type keyRecorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *keyRecorder) onKeys(keys []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, keys)
}

func (r *keyRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestVaultWatcherCheckForUpdates(t *testing.T) {
	mockClient := &MockVaultClient{secrets: map[string]*config.VaultSecret{
		testKeysPath: keysSecret(1, "key-one"),
	}}
	vw := NewVaultWatcher(mockClient, testKeysPath, time.Minute, nil, nil)

	secret, err := vw.checkForUpdates()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret == nil {
		t.Error("Expected first read to be reported as a change")
	}

	secret, err = vw.checkForUpdates()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != nil {
		t.Error("Expected no change for the same version")
	}

	mockClient.set(testKeysPath, keysSecret(2, "key-two"))
	secret, _ = vw.checkForUpdates()
	if secret == nil || secret.Version != 2 {
		t.Errorf("Expected version 2 after the version increased, got %v", secret)
	}
	if vw.lastVersion != 2 {
		t.Errorf("Expected last version 2, got %d", vw.lastVersion)
	}
}

func TestVaultWatcherCheckForUpdatesMissingSecret(t *testing.T) {
	vw := NewVaultWatcher(&MockVaultClient{secrets: map[string]*config.VaultSecret{}}, testKeysPath, time.Minute, nil, nil)

	if _, err := vw.checkForUpdates(); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestVaultWatcherAPIKeys(t *testing.T) {
	tests := []struct {
		name    string
		data    map[string]any
		want    int
		wantErr bool
	}{
		{"filters empty keys", map[string]any{config.APIKeysField: []string{"key-one", "", "key-two"}}, 2, false},
		{"comma separated string", map[string]any{config.APIKeysField: "key-one, key-two,key-three"}, 3, false},
		{"all empty", map[string]any{config.APIKeysField: []string{"", ""}}, 0, true},
		{"field missing", map[string]any{"token": "x"}, 0, true},
	}

	vw := NewVaultWatcher(&MockVaultClient{}, testKeysPath, time.Minute, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys, err := vw.apiKeys(&config.VaultSecret{Path: testKeysPath, Data: tt.data, Version: 1})
			if (err != nil) != tt.wantErr {
				t.Fatalf("apiKeys() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(keys) != tt.want {
				t.Errorf("Expected %d keys, got %d", tt.want, len(keys))
			}
		})
	}
}

func TestVaultWatcherPollRotatesKeys(t *testing.T) {
	mockClient := &MockVaultClient{secrets: map[string]*config.VaultSecret{
		testKeysPath: keysSecret(1, "key-one", "key-two"),
	}}
	rec := &keyRecorder{}
	vw := NewVaultWatcher(mockClient, testKeysPath, time.Minute, rec.onKeys, nil)

	vw.poll()
	if rec.count() != 1 {
		t.Fatalf("Expected one key update, got %d", rec.count())
	}
	if got := rec.calls[0]; len(got) != 2 || got[0] != "key-one" {
		t.Errorf("Unexpected keys %v", got)
	}

	vw.poll()
	if rec.count() != 1 {
		t.Errorf("Expected no update for an unchanged version, got %d", rec.count())
	}

	mockClient.set(testKeysPath, keysSecret(2))
	vw.poll()
	if rec.count() != 1 {
		t.Errorf("Expected empty key list to be rejected")
	}
	status := vw.Status()
	if status["last_error"] == "" {
		t.Error("Expected last_error to be recorded")
	}
	if status["rotation_count"] != 1 {
		t.Errorf("Expected rotation_count 1, got %v", status["rotation_count"])
	}

	mockClient.mu.Lock()
	mockClient.err = errors.New("vault sealed")
	mockClient.mu.Unlock()
	vw.poll()
	if !strings.Contains(vw.Status()["last_error"].(string), "vault sealed") {
		t.Errorf("Expected vault error to be recorded, got %v", vw.Status()["last_error"])
	}
}

func TestVaultWatcherStartStop(t *testing.T) {
	mockClient := &MockVaultClient{secrets: map[string]*config.VaultSecret{}}

	vw := NewVaultWatcher(mockClient, testKeysPath, 0, nil, nil)
	if err := vw.Start(); err == nil {
		t.Error("Expected error for zero poll interval")
	}

	vw = NewVaultWatcher(mockClient, testKeysPath, time.Hour, nil, nil)
	if err := vw.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := vw.Start(); err == nil {
		t.Error("Expected error when starting twice")
	}
	if err := vw.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := vw.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	if vw.Status()["running"] != false {
		t.Error("Expected watcher to be stopped")
	}
}
