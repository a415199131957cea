package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ingestkit/engine/config"
	"github.com/ingestkit/engine/queue"
	"github.com/ingestkit/engine/store"
	"github.com/ingestkit/engine/task"
)

// Config holds initialization parameters for every subsystem an Engine
// composes, in the teacher's kernel.Config section-per-subsystem style.
type Config struct {
	WorkflowPath      string                  `json:"workflow_path"`
	ProcessingRoot    string                  `json:"processing_root"` // where package directories are materialized
	Batch             task.BatchConfig        `json:"batch"`
	Queue             queue.Config            `json:"queue"`
	DefaultProcessing config.ProcessingConfig `json:"default_processing_config"`
	Badger            store.BadgerConfig      `json:"badger"`
	UseMemoryStore    bool                    `json:"use_memory_store,omitempty"` // tests/dev only
}

// DefaultConfig returns a Config with sensible defaults for every
// subsystem, mirroring kernel.DefaultConfig.
func DefaultConfig() Config {
	return Config{
		Batch:             task.DefaultBatchConfig(),
		Queue:             queue.DefaultConfig(),
		DefaultProcessing: config.DefaultProcessingConfig(),
		Badger:            store.BadgerConfig{Path: "./data/ingestkit.db"},
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.WorkflowPath != "" {
		c.WorkflowPath = source.WorkflowPath
	}
	if source.ProcessingRoot != "" {
		c.ProcessingRoot = source.ProcessingRoot
	}
	if source.Batch.MaxBatchSize != 0 {
		c.Batch.MaxBatchSize = source.Batch.MaxBatchSize
	}
	if source.Batch.WorkerCap != 0 {
		c.Batch.WorkerCap = source.Batch.WorkerCap
	}
	if source.Batch.DefaultTimeout != 0 {
		c.Batch.DefaultTimeout = source.Batch.DefaultTimeout
	}
	if source.Queue.MaxConcurrentPackages != 0 {
		c.Queue.MaxConcurrentPackages = source.Queue.MaxConcurrentPackages
	}
	if source.Queue.MaxQueuedPackages != 0 {
		c.Queue.MaxQueuedPackages = source.Queue.MaxQueuedPackages
	}
	if source.Queue.ShutdownDeadline != 0 {
		c.Queue.ShutdownDeadline = source.Queue.ShutdownDeadline
	}
	if source.DefaultProcessing != (config.ProcessingConfig{}) {
		c.DefaultProcessing = source.DefaultProcessing
	}
	if source.Badger.Path != "" {
		c.Badger.Path = source.Badger.Path
	}
	if source.Badger.ResetOnStartup {
		c.Badger.ResetOnStartup = true
	}
	if source.UseMemoryStore {
		c.UseMemoryStore = true
	}
}

// LoadConfig reads a JSON config file, merges it over DefaultConfig, and
// returns the result, mirroring kernel.LoadConfig.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("engine: read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("engine: parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// shutdownDeadlineOrDefault guards against a zero-value Config.Queue.ShutdownDeadline
// slipping through a hand-built Config (as opposed to one produced by DefaultConfig).
func shutdownDeadlineOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return queue.DefaultConfig().ShutdownDeadline
	}
	return d
}
