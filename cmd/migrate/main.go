// Command migrate applies or rolls back the SQL schema in migrations/.
package main

import (
	"errors"
	"flag"
	"log"

	"cleaning-booking/pkg/utils"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

func main() {
	var direction, path string
	var steps int
	flag.StringVar(&direction, "direction", "up", "up or down")
	flag.StringVar(&path, "path", "migrations", "directory holding the migration files")
	flag.IntVar(&steps, "steps", 0, "number of migrations to apply, 0 means all")
	flag.Parse()

	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(config.App.LogPath, "migrate", config.App.Debug)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	m, err := migrate.New("file://"+path, config.Database.URL())
	if err != nil {
		logger.Fatal("Failed to open migrations", zap.Error(err))
	}
	defer m.Close()

	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	default:
		logger.Fatal("Unknown direction", zap.String("direction", direction))
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No migrations to apply")
		return
	}
	if err != nil {
		logger.Fatal("Migration failed", zap.String("direction", direction), zap.Error(err))
	}

	version, dirty, _ := m.Version()
	logger.Info("Migrations applied",
		zap.String("direction", direction),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
}
