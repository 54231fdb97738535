package setup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GetLoggers sets up the logging infrastructure by creating timestamped log
// directories and initializing separate loggers for the main application and
// database logging. With an empty logDir both loggers write to stderr.
func GetLoggers(logDir, level string, maxLogsToKeep int) (*zap.Logger, *zap.Logger, error) {
	if logDir == "" {
		logger, err := initLogger("stderr", level)
		if err != nil {
			return nil, nil, err
		}

		return logger, logger, nil
	}

	if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
		return nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	// Clean up old log sessions before creating new ones
	if err := rotateLogSessions(logDir, maxLogsToKeep); err != nil {
		return nil, nil, fmt.Errorf("failed to rotate log sessions: %w", err)
	}

	sessionDir := filepath.Join(logDir, time.Now().Format("2006-01-02_15-04-05"))
	if err := os.MkdirAll(sessionDir, os.ModePerm); err != nil {
		return nil, nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	mainLogger, err := initLogger(filepath.Join(sessionDir, "main.log"), level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize main logger: %w", err)
	}

	dbLogger, err := initLogger(filepath.Join(sessionDir, "database.log"), level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database logger: %w", err)
	}

	return mainLogger, dbLogger, nil
}

// initLogger creates a zap logger instance with development settings.
func initLogger(outputPath, level string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{outputPath}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}

// rotateLogSessions maintains the log directory by removing oldest sessions
// when the total number exceeds maxLogsToKeep. Uses file modification time
// to determine age.
func rotateLogSessions(logDir string, maxLogsToKeep int) error {
	sessions, err := filepath.Glob(filepath.Join(logDir, "*"))
	if err != nil {
		return err
	}

	if len(sessions) <= maxLogsToKeep {
		return nil
	}

	sort.Slice(sessions, func(i, j int) bool {
		iInfo, _ := os.Stat(sessions[i])
		jInfo, _ := os.Stat(sessions[j])
		return iInfo.ModTime().Before(jInfo.ModTime())
	})

	for i := range len(sessions) - maxLogsToKeep {
		if err := os.RemoveAll(sessions[i]); err != nil {
			return err
		}
	}

	return nil
}
