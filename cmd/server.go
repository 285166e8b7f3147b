package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/mdobak/go-xerrors"
)

func (app *application) serve() error {
	server := &http.Server{
		Addr:         app.config.Server.Addr,
		Handler:      app.routes(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	shutdownError := make(chan error)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()

		err := server.Shutdown(ctx)
		if schedErr := app.scheduler.Stop(ctx); err == nil {
			err = schedErr
		}
		if err != nil {
			shutdownError <- err
			return
		}

		app.logger.Info("completing background tasks", "addr", server.Addr)
		app.wg.Wait()
		shutdownError <- nil
	}()

	app.scheduler.Start()
	app.logger.Info("starting server", "addr", server.Addr, "env", app.config.App.Env)

	err := server.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return xerrors.New(err)
	}

	if err := <-shutdownError; err != nil {
		return xerrors.New(err)
	}

	app.logger.Info("stopped server", "addr", server.Addr)
	return nil
}

func randomSecret() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
