package operations

import (
	"time"
)

// Pipeline step identifiers
const (
	StepIDPrepare   = "prepare"
	StepIDMerge     = "merge"
	StepIDRegion    = "region"
	CleanStepPrefix = "clean_"
)

// Pipeline step names
const (
	StepNamePrepare = "Prepare Workspace"
	StepNameMerge   = "Merge Tables"
	StepNameRegion  = "Bin States To Region"
)

// Table and output keys stored in the operation state
const (
	TableMerged = "merged"
	TableGeo    = "geo"

	OutputMergedCSV = "merged_csv"
	OutputGeoCSV    = "geo_csv"
	OutputGeoXLSX   = "geo_xlsx"
)

// Step metadata keys
const (
	MetadataRows    = "rows"
	MetadataColumns = "columns"
	MetadataOutput  = "output"
)

// Default timeouts
const (
	DefaultStepTimeout  = 30 * time.Minute
	DefaultCleanTimeout = 10 * time.Minute
)

// CleanStepID returns the step id for a dataset
func CleanStepID(dataset string) string {
	return CleanStepPrefix + dataset
}

// ExecutionMode defines how ready steps are executed
type ExecutionMode string

const (
	ExecutionModeSequential ExecutionMode = "sequential"
	ExecutionModeParallel   ExecutionMode = "parallel"
)

// RetryConfig defines retry behavior for steps
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns a retry policy that makes a single attempt
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  1,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// OperationRequest asks the manager to run the pipeline
type OperationRequest struct {
	ID string `json:"id,omitempty"`
	// Steps restricts the run to these step IDs. Dependencies outside the
	// run are treated as satisfied. Empty runs every registered step.
	Steps []string `json:"steps,omitempty"`
}

// OperationResponse summarizes a finished run
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatus       `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Outputs  map[string]string     `json:"outputs,omitempty"`
	Rows     int                   `json:"rows"`
	Columns  int                   `json:"columns"`
	Error    string                `json:"error,omitempty"`
}
