package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/storefront-admin/api"
	"github.com/jrsteele09/storefront-admin/internal/config"
	"github.com/jrsteele09/storefront-admin/internal/metrics"
	"github.com/jrsteele09/storefront-admin/server"
	"github.com/jrsteele09/storefront-admin/sessions"
	"github.com/jrsteele09/storefront-admin/token/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := storage.New(ctx, c)
	if err != nil {
		return fmt.Errorf("[main run] token storage: %w", err)
	}
	defer repo.Close()

	baseURL := c.GetAPIBaseURL()
	if c.GetFakeAPI() {
		fakeAPI, err := startFakeAPI()
		if err != nil {
			return fmt.Errorf("[main run] fake api: %w", err)
		}
		defer fakeAPI.Close()
		baseURL = fakeAPI.URL
	}

	appMetrics := metrics.New()
	store := sessions.New(api.NewClient(baseURL, api.WithTimeout(c.GetAPITimeout())), repo, sessions.WithMetrics(appMetrics))
	defer store.Close()

	httpServer := &http.Server{Addr: c.GetPort(), Handler: server.New(c, store, appMetrics), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := listenAndServe(httpServer); err != nil {
			log.Error().Err(err).Msg("Server failed")
		}
	}()
	go store.Rehydrate(ctx)

	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
