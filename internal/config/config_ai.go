package config

// applyOperationDefaults fills unset operation fields from the global AI section
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		timeout := c.AI.Timeout
		opCfg.Timeout = &timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		retries := c.AI.MaxRetries
		opCfg.MaxRetries = &retries
	}
	if opCfg.Temperature == nil {
		temperature := c.AI.Temperature
		opCfg.Temperature = &temperature
	}
	if opCfg.UseSystemPrompts == nil {
		use := c.AI.UseSystemPrompts
		opCfg.UseSystemPrompts = &use
	}
}

// GetExtractConfig returns the AI configuration for tender extraction with fallback to global config
func (c *Config) GetExtractConfig() OperationAIConfig {
	config := c.AI.Extract
	c.applyOperationDefaults(&config)

	if config.CustomPrompts.SystemPrompts.ExtractTender == "" {
		config.CustomPrompts.SystemPrompts.ExtractTender = c.AI.CustomPrompts.SystemPrompts.ExtractTender
	}
	if config.CustomPrompts.UserPrompts.ExtractTender == "" {
		config.CustomPrompts.UserPrompts.ExtractTender = c.AI.CustomPrompts.UserPrompts.ExtractTender
	}

	return config
}

// GetJustifyConfig returns the AI configuration for candidate justification with fallback to global config
func (c *Config) GetJustifyConfig() OperationAIConfig {
	config := c.AI.Justify
	c.applyOperationDefaults(&config)

	if config.CustomPrompts.SystemPrompts.JustifyCandidate == "" {
		config.CustomPrompts.SystemPrompts.JustifyCandidate = c.AI.CustomPrompts.SystemPrompts.JustifyCandidate
	}
	if config.CustomPrompts.UserPrompts.JustifyCandidate == "" {
		config.CustomPrompts.UserPrompts.JustifyCandidate = c.AI.CustomPrompts.UserPrompts.JustifyCandidate
	}

	return config
}
