package data

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Initialize opens the database backing the session store and ensures the
// schema is up to date. engine selects the driver; dataSource is a Postgres
// connection string or a SQLite filename depending on the engine.
func Initialize(engine, dataSource string, debug bool) (*gorm.DB, error) {
	// By default only log errors but enable full SQL query prints-to-console
	// with debug mode.
	log := logger.Default.LogMode(logger.Error)
	if debug {
		log = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch engine {
	case "sqlite":
		dialector = sqlite.Open(dataSource)
	case "postgres":
		dialector = postgres.Open(dataSource)
	default:
		return nil, fmt.Errorf("unsupported database engine: %s", engine)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: log})
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %s", err)
	}

	if err := db.AutoMigrate(&Session{}, &Message{}); err != nil {
		return nil, fmt.Errorf("error auto migrating db: %s", err)
	}

	return db, nil
}

// Shutdown closes the underlying database connection.
func Shutdown(db *gorm.DB) error {
	database, err := db.DB()
	if err != nil {
		return fmt.Errorf("error while getting current connection: %w", err)
	}
	if err := database.Close(); err != nil {
		return fmt.Errorf("error while closing database connection: %w", err)
	}
	return nil
}
