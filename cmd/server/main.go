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
	"github.com/jrsteele09/hireai-gateway/idp"
	"github.com/jrsteele09/hireai-gateway/internal/config"
	"github.com/jrsteele09/hireai-gateway/internal/metrics"
	"github.com/jrsteele09/hireai-gateway/server"
	"github.com/jrsteele09/hireai-gateway/server/authflowrepo"
	"github.com/jrsteele09/hireai-gateway/sessions"
	"github.com/jrsteele09/hireai-gateway/tokens"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// authFlowTTL is how long a started sign-in may wait for the provider callback
const authFlowTTL = 10 * time.Minute

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
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c.GetEnv())
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idpClient, err := idp.New(ctx, c)
	if err != nil {
		return fmt.Errorf("idp.New: %w", err)
	}

	store, closeStore, err := sessions.NewStore(ctx, c)
	if err != nil {
		return fmt.Errorf("sessions.NewStore: %w", err)
	}
	defer closeStore()

	m := metrics.NewDefault()
	manager := tokens.NewManager(idpClient, c, m)

	handler, err := server.New(c, idpClient, manager, store, authflowrepo.NewInMemoryRepo(authFlowTTL), m)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	if repoStore, ok := store.(*sessions.RepoStore); ok {
		go sweepSessions(ctx, repoStore)
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func setupLogging(env string) {
	zerolog.TimeFieldFormat = time.RFC3339
	if env == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// sweepSessions evicts expired in-memory sessions; Redis expires its own keys.
func sweepSessions(ctx context.Context, store *sessions.RepoStore) {
	sweeper, ok := store.Repo().(interface{ Sweep() int })
	if !ok {
		return
	}
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sweeper.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("expired sessions swept")
			}
		}
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
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
