package cli

import (
	"context"
	"fmt"

	"task-tracker-api/internal/config"
	"task-tracker-api/internal/database"
	"task-tracker-api/internal/delayed"
	"task-tracker-api/internal/identity"
	"task-tracker-api/internal/lifecycle"
	"task-tracker-api/internal/repository"
	"task-tracker-api/internal/support"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// app is the wired engine shared by the commands.
type app struct {
	db       *gorm.DB
	repo     repository.TaskRepository
	users    *identity.Directory
	tasks    *lifecycle.Manager
	support  *support.Service
	detector *delayed.Detector
}

// newApp opens the database, migrates it and selects the task store. Users
// always live in the SQL database; tasks live there or in a spreadsheet.
func newApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*app, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}

	repo, err := openTaskStore(ctx, cfg, db)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	users := identity.NewDirectory(db, cfg.Identity.CacheTTL)
	tasks := lifecycle.NewManager(repo, lifecycle.WithLogger(log), lifecycle.WithResolver(users))
	return &app{
		db:       db,
		repo:     repo,
		users:    users,
		tasks:    tasks,
		support:  support.NewService(tasks, users, log),
		detector: delayed.NewDetector(tasks, log),
	}, nil
}

func openTaskStore(ctx context.Context, cfg *config.Config, db *gorm.DB) (repository.TaskRepository, error) {
	switch cfg.Store.Backend {
	case "", "sql":
		return repository.NewTaskRepository(db), nil
	case "sheets":
		srv, err := repository.NewSheetsService(ctx, cfg.Sheets.CredentialsFile)
		if err != nil {
			return nil, err
		}
		repo := repository.NewSheetsTaskRepository(srv, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName)
		if err := repo.EnsureHeader(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	}
	return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
}

func (a *app) Close() error {
	return database.Close(a.db)
}
