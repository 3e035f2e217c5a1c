package cmd

import (
	"context"
	"errors"

	"example.com/backstage/services/interactions/config"
	"example.com/backstage/services/interactions/internal/database"
	"example.com/backstage/services/interactions/internal/dsn"
	"example.com/backstage/services/interactions/internal/secrets"

	"github.com/sirupsen/logrus"
)

// resolveDatabaseURL runs the connection-string resolution and exits on a
// configuration error.
func resolveDatabaseURL(ctx context.Context, cfg *config.Config) dsn.Resolution {
	logConfigSources(cfg)

	resolver := dsn.NewResolver(secrets.NewAWSFetcher(), log)
	res, err := resolver.Resolve(ctx, cfg)
	if err != nil {
		var cfgErr *dsn.ConfigError
		if errors.As(err, &cfgErr) {
			log.WithField("missing", cfgErr.Missing).Fatalf("Database configuration error: %v", err)
		}
		log.Fatalf("Failed to resolve database URL: %v", err)
	}
	return res
}

// connect resolves the URL and opens the pool
func connect(ctx context.Context, cfg *config.Config) database.DB {
	res := resolveDatabaseURL(ctx, cfg)

	log.Info("Creating database connection pool...")
	db, err := database.Connect(res.URL, cfg.Database, log)
	if err != nil {
		log.Fatalf("Failed to create database connection pool: %v", err)
	}
	return db
}

// logConfigSources reports which inputs are present. Values are never logged.
func logConfigSources(cfg *config.Config) {
	log.WithFields(logrus.Fields{
		"database_url_set":   cfg.Database.URL != "",
		"secret_arn_set":     cfg.AWS.SecretARN != "",
		"aws_region":         cfg.AWS.Region,
		"db_user_set":        cfg.Database.User != "",
		"db_password_set":    cfg.Database.Password != "",
		"db_host":            cfg.Database.Host,
		"db_port":            cfg.Database.Port,
		"db_name":            cfg.Database.Name,
		"discrete_fields_ok": cfg.Database.HasDiscreteFields(),
	}).Debug("Database configuration sources")
}
