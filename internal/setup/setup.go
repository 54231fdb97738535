// Package setup bootstraps shared application dependencies.
package setup

import (
	"context"

	"github.com/chatguard/chatguard/internal/database"
	"github.com/chatguard/chatguard/internal/setup/config"
	"go.uber.org/zap"
)

// App bundles the core dependencies shared by all commands.
type App struct {
	Config   *config.Config  // Application configuration
	Logger   *zap.Logger     // Main application logger
	DBLogger *zap.Logger     // Database-specific logger
	DB       database.Client // Database connection pool, nil when unconfigured
}

// InitializeApp bootstraps all application dependencies in order. When
// PostgreSQL is not configured the app starts without a database and callers
// must treat enforcement as disabled.
func InitializeApp(ctx context.Context) (*App, error) {
	cfg, configDir, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging comes up first so setup issues are captured
	logger, dbLogger, err := GetLoggers(cfg.Debug.LogDir, cfg.Debug.LogLevel, cfg.Debug.MaxLogsToKeep)
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded configuration", zap.String("configDir", configDir))

	var db database.Client

	if cfg.PostgreSQL.Configured() {
		db, err = database.NewConnection(ctx, &cfg.PostgreSQL, dbLogger, true)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Warn("PostgreSQL is not configured, starting with enforcement disabled")
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		DBLogger: dbLogger,
		DB:       db,
	}, nil
}

// Cleanup releases held resources. Errors are logged, not returned.
func (a *App) Cleanup() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	_ = a.Logger.Sync()

	if a.DBLogger != a.Logger {
		_ = a.DBLogger.Sync()
	}
}
