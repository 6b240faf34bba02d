package internal

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mvollen/pylon/internal/core"
	"github.com/mvollen/pylon/internal/core/data"
	coredebug "github.com/mvollen/pylon/internal/core/debug"
	"github.com/mvollen/pylon/internal/relay"
)

// Controller is the main entrypoint for the server. It's responsible for
// initializing any shared resources (such as the database and logging),
// defining the server, and launching everything.
type Controller struct {
	Config *core.Config

	logger   *logrus.Logger
	database *gorm.DB
	server   *frontend
}

// Start brings the server up and blocks until it has shut down. Cancelling
// ctx triggers a graceful shutdown.
func (c *Controller) Start(ctx context.Context) error {
	var err error
	c.logger, err = core.NewLogger(c.Config)
	if err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}

	if c.Config.Debugging.PprofEnabled {
		coredebug.StartPprofServer(c.logger, c.Config.Debugging.PprofPort)
	}

	dataSource := c.Config.DatabaseURL()
	if c.Config.Database.Engine == "sqlite" {
		dataSource = c.Config.Database.Filename
	}
	c.database, err = data.Initialize(
		c.Config.Database.Engine,
		dataSource,
		c.Config.Debugging.DatabaseLoggingEnabled,
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := data.Shutdown(c.database); err != nil {
			c.logger.Warnf("error closing database: %v", err)
		}
	}()

	c.server = &frontend{
		Address: c.Config.ServerAddress(),
		Backend: &relay.Server{
			Name:   "RELAY",
			Logger: c.logger,
			DB:     c.database,
		},
		Config: c.Config,
		Logger: c.logger,
	}

	go func() {
		<-ctx.Done()
		if err := c.server.Shutdown(); err != nil && !errors.Is(err, ErrNotConnected) {
			c.logger.Errorf("error shutting down server: %v", err)
		}
	}()

	return c.server.Start(ctx)
}
