// Package logger provides the structured logging wrapper shared by every
// package in this module.
package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is a wrapper around logrus.Logger.
type Logger struct {
	*logrus.Logger
}

// Config contains logging configuration.
type Config struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePrefix string `mapstructure:"file_prefix"`
}

// ContextKey is the type for context keys carrying logging metadata.
type ContextKey string

const (
	// ClusterIDKey is the context key for the owning cluster id.
	ClusterIDKey ContextKey = "cluster_id"
	// AgentIDKey is the context key for the owning agent id.
	AgentIDKey ContextKey = "agent_id"
	// TaskIDKey is the context key for the foreground task id.
	TaskIDKey ContextKey = "task_id"
)

// New creates a new logger instance from config.
func New(cfg Config) *Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	switch strings.ToLower(cfg.Output) {
	case "file":
		if cfg.FilePrefix == "" {
			cfg.FilePrefix = "jsagent"
		}
		logDir := "logs"
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			logger.Errorf("failed to create logs directory: %v", err)
		} else {
			logPath := filepath.Join(logDir, cfg.FilePrefix+".log")
			file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				logger.Errorf("failed to open log file: %v", err)
			} else {
				logger.SetOutput(io.MultiWriter(os.Stdout, file))
			}
		}
	default:
		logger.SetOutput(os.Stdout)
	}

	return &Logger{Logger: logger}
}

// NewDefault creates a logger with sane defaults (info level, text format).
// The component argument is not recorded on the logger.
func NewDefault(component string) *Logger {
	l := New(Config{Level: "info", Format: "text"})
	return &Logger{Logger: l.Logger}
}

// NewFromEnv builds a logger using LOG_LEVEL / LOG_FORMAT, defaulting to
// info/json so daemon deployments get machine-parseable output by default.
func NewFromEnv() *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "json"
	}
	return New(Config{Level: level, Format: format})
}

// WithField returns a new log entry with a field.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithField(key, value)
}

// WithFields returns a new log entry with multiple fields.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.Logger.WithFields(fields)
}

// WithContext lifts cluster/agent/task ids stashed in ctx into log fields.
// Any id absent from ctx is simply omitted.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(l.Logger)
	if v, ok := ctx.Value(ClusterIDKey).(string); ok && v != "" {
		entry = entry.WithField("cluster_id", v)
	}
	if v, ok := ctx.Value(AgentIDKey).(string); ok && v != "" {
		entry = entry.WithField("agent_id", v)
	}
	if v, ok := ctx.Value(TaskIDKey).(string); ok && v != "" {
		entry = entry.WithField("task_id", v)
	}
	return entry
}

// WithAgent stashes an agent id in ctx for later retrieval by WithContext.
func WithAgent(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, AgentIDKey, agentID)
}

// WithCluster stashes a cluster id in ctx for later retrieval by WithContext.
func WithCluster(ctx context.Context, clusterID string) context.Context {
	return context.WithValue(ctx, ClusterIDKey, clusterID)
}
