package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// promptFile pairs a configured prompt file path with the field it fills
type promptFile struct {
	path      *string
	target    *string
	scope     string // "global", "extract" or "justify"
	kind      string // "system" or "user"
	operation string
}

func (c *Config) promptFiles() []promptFile {
	files := func(scope string, p *PromptConfig) []promptFile {
		return []promptFile{
			{&p.SystemPrompts.ExtractTenderFile, &p.SystemPrompts.ExtractTender, scope, "system", "extractTender"},
			{&p.SystemPrompts.JustifyCandidateFile, &p.SystemPrompts.JustifyCandidate, scope, "system", "justifyCandidate"},
			{&p.UserPrompts.ExtractTenderFile, &p.UserPrompts.ExtractTender, scope, "user", "extractTender"},
			{&p.UserPrompts.JustifyCandidateFile, &p.UserPrompts.JustifyCandidate, scope, "user", "justifyCandidate"},
		}
	}

	var all []promptFile
	all = append(all, files("global", &c.AI.CustomPrompts)...)
	all = append(all, files("extract", &c.AI.Extract.CustomPrompts)...)
	all = append(all, files("justify", &c.AI.Justify.CustomPrompts)...)
	return all
}

// loadPromptsFromFiles reads every configured prompt file into its inline field.
// File paths are kept so the source stays visible.
func (c *Config) loadPromptsFromFiles() error {
	if err := c.validatePromptFiles(); err != nil {
		return err
	}

	loaded := 0
	for _, pf := range c.promptFiles() {
		if *pf.path == "" {
			continue
		}
		content, err := loadPromptFromFile(*pf.path, pf.kind, pf.operation)
		if err != nil {
			return fmt.Errorf("failed to load %s %s prompts: %w", pf.scope, pf.kind, err)
		}
		*pf.target = content
		loaded++
	}

	if loaded == 0 {
		log.Println("[CONFIG] No custom prompt files configured - using inline or built-in prompts")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded from files: %d", loaded)
	}
	return nil
}

// loadPromptFromFile reads a prompt file and rejects empty content
func loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Loaded %s %s prompt from file: %s (%d characters)",
		promptType, operation, absPath, len(trimmed))

	return trimmed, nil
}

// validatePromptFiles reports every missing prompt file at once
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	for _, pf := range c.promptFiles() {
		if *pf.path == "" {
			continue
		}
		absPath, err := filepath.Abs(*pf.path)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s %s prompt: %s", pf.scope, pf.kind, pf.operation, *pf.path))
			continue
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s %s prompt file not found: %s", pf.scope, pf.kind, pf.operation, absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}
