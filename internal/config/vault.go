package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/vault/api"

	"tendermatch/internal/errors"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets names the KV v2 paths tendermatch reads.
type VaultSecrets struct {
	// APIKeys holds a comma separated "keys" field. The server also polls it to rotate keys live.
	APIKeys   string `mapstructure:"apiKeys"`
	GeminiKey string `mapstructure:"geminiKey"` // "api_key" field shared by the extractor and the justifier
}

// Field names inside the secrets above.
const (
	GeminiKeyField = "api_key"
	APIKeysField   = "keys"
)

// VaultClient reads KV v2 secrets.
type VaultClient struct {
	client *api.Client
}

// NewVaultClient connects to Vault. It returns nil when Vault is disabled.
func NewVaultClient(cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if logger == nil {
		logger = errors.Discard()
	}
	if !cfg.Enabled {
		return nil, nil
	}

	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := resolveVaultToken(cfg)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		logger.LogError(err, "Vault is unreachable", "address", cfg.Address)
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	logger.Info("Connected to Vault", "address", apiCfg.Address, "version", health.Version, "sealed", health.Sealed)

	return &VaultClient{client: client}, nil
}

// resolveVaultToken prefers the inline token over the token file.
func resolveVaultToken(cfg VaultConfig) (string, error) {
	token := cfg.Token
	if token == "" && cfg.TokenFile != "" {
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// VaultSecret is the data and version of one KV v2 secret.
type VaultSecret struct {
	Path    string
	Data    map[string]any
	Version int64
}

// StringField returns a string field.
func (s *VaultSecret) StringField(key string) (string, error) {
	value, ok := s.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %s", key, s.Path)
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("key %q in secret %s is %T, not a string", key, s.Path, value)
	}
	return str, nil
}

// ListField returns a field holding either a comma separated string or an array of
// strings. Blank entries are dropped.
func (s *VaultSecret) ListField(key string) ([]string, error) {
	value, ok := s.Data[key]
	if !ok {
		return nil, fmt.Errorf("key %q not found in secret %s", key, s.Path)
	}

	var parts []string
	switch v := value.(type) {
	case string:
		parts = strings.Split(v, ",")
	case []string:
		parts = v
	case []any:
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("key %q in secret %s holds a %T item", key, s.Path, item)
			}
			parts = append(parts, str)
		}
	default:
		return nil, fmt.Errorf("key %q in secret %s is %T, not a list", key, s.Path, value)
	}

	items := []string{}
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items, nil
}

// ReadSecret reads a KV v2 secret, e.g. "secret/data/tendermatch/api-keys".
func (vc *VaultClient) ReadSecret(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}
	raw, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if raw == nil || raw.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return decodeKV(path, raw.Data)
}

// decodeKV unpacks the "data" and "metadata.version" parts of a KV v2 response.
func decodeKV(path string, body map[string]any) (*VaultSecret, error) {
	data, ok := body["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := body["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}

	var version int64
	var err error
	switch v := metadata["version"].(type) {
	case json.Number:
		version, err = v.Int64()
	case string:
		version, err = strconv.ParseInt(v, 10, 64)
	case float64:
		version = int64(v)
	case int64:
		version = v
	case int:
		version = int64(v)
	default:
		return nil, fmt.Errorf("secret metadata at %s has no usable version (%T)", path, v)
	}
	if err != nil {
		return nil, fmt.Errorf("could not parse secret version at %s: %w", path, err)
	}

	return &VaultSecret{Path: path, Data: data, Version: version}, nil
}

// secretReader is the part of VaultClient that ApplyVaultSecrets needs.
type secretReader interface {
	ReadSecret(path string) (*VaultSecret, error)
}

// vaultBinding copies one secret field into the config.
type vaultBinding struct {
	name  string
	path  string
	apply func(cfg *Config, secret *VaultSecret) (bool, error)
}

func vaultBindings(cfg *Config) []vaultBinding {
	return []vaultBinding{
		{
			name: "server API keys",
			path: cfg.Vault.Secrets.APIKeys,
			apply: func(cfg *Config, secret *VaultSecret) (bool, error) {
				keys, err := secret.ListField(APIKeysField)
				if err != nil || len(keys) == 0 {
					return false, err
				}
				cfg.Server.APIKeys = keys
				return true, nil
			},
		},
		{
			name: "Gemini API key",
			path: cfg.Vault.Secrets.GeminiKey,
			apply: func(cfg *Config, secret *VaultSecret) (bool, error) {
				key, err := secret.StringField(GeminiKeyField)
				if err != nil || key == "" {
					return false, err
				}
				applyGeminiKey(cfg, key)
				return true, nil
			},
		},
	}
}

// ApplyVaultSecrets loads the configured secrets from Vault into cfg.
// It does nothing when Vault is disabled.
func ApplyVaultSecrets(cfg *Config, logger *errors.Logger) error {
	if !cfg.Vault.Enabled {
		return nil
	}
	if logger == nil {
		logger = errors.Discard()
	}

	client, err := NewVaultClient(cfg.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	return applySecrets(client, cfg, logger)
}

func applySecrets(reader secretReader, cfg *Config, logger *errors.Logger) error {
	for _, b := range vaultBindings(cfg) {
		if b.path == "" {
			continue
		}
		secret, err := reader.ReadSecret(b.path)
		if err != nil {
			return fmt.Errorf("failed to load %s from vault: %w", b.name, err)
		}
		applied, err := b.apply(cfg, secret)
		if err != nil {
			return fmt.Errorf("failed to load %s from vault: %w", b.name, err)
		}
		if !applied {
			logger.Warn("Vault secret is empty", "secret", b.name, "path", b.path)
			continue
		}
		logger.Info("Loaded secret from Vault", "secret", b.name, "path", b.path, "version", secret.Version)
	}
	return nil
}

// applyGeminiKey sets the shared key and fills any collaborator without its own key.
func applyGeminiKey(cfg *Config, key string) {
	cfg.AI.APIKey = key
	if cfg.AI.Extract.APIKey == "" {
		cfg.AI.Extract.APIKey = key
	}
	if cfg.AI.Justify.APIKey == "" {
		cfg.AI.Justify.APIKey = key
	}
}
