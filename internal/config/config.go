package config

import (
	"runtime"
	"time"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache" validate:"required"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// LLMConfig contains all generation service settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name" validate:"required"`
}

// SchedulerConfig contains worker pool and queue settings. WorkerCount of 0
// means derive from the host; see ResolveWorkerCount.
type SchedulerConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gte=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"required,gt=0"`
}

// CacheConfig contains hybrid cache settings.
type CacheConfig struct {
	MemoryCapacity int           `mapstructure:"memory_capacity" validate:"required,gt=0"`
	TTL            time.Duration `mapstructure:"ttl" validate:"required"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval" validate:"required"`
}

// PipelineConfig contains content pipeline settings.
type PipelineConfig struct {
	// DurableLessonAssets runs per-lesson flashcard and quiz generation as
	// queued jobs instead of fire-and-forget goroutines.
	DurableLessonAssets bool `mapstructure:"durable_lesson_assets"`
}

// ResolveWorkerCount returns the configured worker count, deriving one from
// the host's CPU count when it is unset.
func (c SchedulerConfig) ResolveWorkerCount() int {
	if c.WorkerCount > 0 {
		return c.WorkerCount
	}
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	return n
}
