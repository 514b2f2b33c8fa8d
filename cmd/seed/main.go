package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/ostrovsky/estate-cms/internal/migrations"
	"github.com/ostrovsky/estate-cms/internal/models"
	"github.com/ostrovsky/estate-cms/internal/service"
	"github.com/ostrovsky/estate-cms/internal/storage/postgres"
	"github.com/ostrovsky/estate-cms/internal/util"

	_ "github.com/lib/pq"
)

// Seeds the admin account from ADMIN_USERNAME/ADMIN_PASSWORD. Safe to run
// repeatedly: an existing account gets its password and role updated.
func main() {
	logger := util.NewZapLogger()

	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		logger.Fatal("ADMIN_USERNAME and ADMIN_PASSWORD must be set")
	}

	db, dbCleanup, err := util.NewDBConnection(logger)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}
	defer dbCleanup()

	if err := migrations.RunMigrations(db, logger); err != nil {
		logger.Fatal(zap.Error(err))
	}

	hash, err := service.HashSecret(password)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}

	store := postgres.NewStorage(db)
	if _, err := store.UpsertUser(context.Background(), username, hash, models.RoleAdmin); err != nil {
		logger.Fatal(zap.Error(err))
	}

	logger.Infof("admin user %q seeded", username)
}
