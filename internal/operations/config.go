package operations

import (
	"strings"
	"time"
)

// Config represents the operation execution configuration
type Config struct {
	// Execution mode (sequential or parallel)
	ExecutionMode ExecutionMode `json:"execution_mode"`

	// Step-specific timeouts
	StepTimeouts map[string]time.Duration `json:"step_timeouts"`

	// Retry configuration for steps
	RetryConfig RetryConfig `json:"retry_config"`

	// Maximum concurrent steps in parallel mode, 0 means unlimited
	MaxConcurrency int `json:"max_concurrency"`
}

// NewConfig returns the default operation configuration
func NewConfig() *Config {
	return &Config{
		ExecutionMode:  ExecutionModeParallel,
		StepTimeouts:   map[string]time.Duration{},
		RetryConfig:    NewRetryConfig(),
		MaxConcurrency: 4,
	}
}

// GetStepTimeout returns the timeout for a specific step. Clean steps share
// DefaultCleanTimeout unless configured individually.
func (c *Config) GetStepTimeout(stepID string) time.Duration {
	if timeout, ok := c.StepTimeouts[stepID]; ok {
		return timeout
	}
	if strings.HasPrefix(stepID, CleanStepPrefix) {
		return DefaultCleanTimeout
	}
	return DefaultStepTimeout
}

// SetStepTimeout sets the timeout for a specific step
func (c *Config) SetStepTimeout(stepID string, timeout time.Duration) {
	if c.StepTimeouts == nil {
		c.StepTimeouts = make(map[string]time.Duration)
	}
	c.StepTimeouts[stepID] = timeout
}
