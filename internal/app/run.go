package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ticketrouter/internal/common/logging"
)

// Run starts the server and the scheduler and blocks until SIGINT or SIGTERM,
// then shuts everything down within the configured timeout.
func (a *App) Run() error {
	if err := a.Scheduler.Start(a.Config.PrewarmSchedule); err != nil {
		a.close()
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		a.Scheduler.Stop()
		a.close()
		return err
	case sig := <-sigCh:
		a.logger.Info("received shutdown signal", logging.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()

	a.Scheduler.Stop()
	if err := a.Server.Shutdown(ctx); err != nil {
		a.logger.Error("http server shutdown failed", err)
	}
	a.close()

	a.logger.Info("shutdown complete")
	return nil
}
