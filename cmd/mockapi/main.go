package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-dash-session/internal/config"
	"github.com/jrsteele09/go-dash-session/internal/logging"
	"github.com/jrsteele09/go-dash-session/mockapi"
	"github.com/jrsteele09/go-dash-session/users"
	fakeuserrepo "github.com/jrsteele09/go-dash-session/users/repofake"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var version = "dev"

type userFlags []string

func (u *userFlags) String() string     { return strings.Join(*u, ",") }
func (u *userFlags) Set(v string) error { *u = append(*u, v); return nil }

func main() {
	configPath := flag.String("config", "", "Config file")
	var seed userFlags
	flag.Var(&seed, "user", "Seed user as email:password[:name] (repeatable)")
	flag.Parse()

	if len(seed) == 0 {
		seed = userFlags{"demo@example.com:Demo-pass1:Demo User"}
	}

	if err := run(*configPath, seed); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run(configPath string, seed []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Setup(c.GetLogLevel(), c.GetLogFormat())
	displayAppname(c.GetAppName() + " API")

	repo := fakeuserrepo.NewFakeUserRepo()
	for _, spec := range seed {
		email, password, _, err := mockapi.ParseUserSpec(spec)
		if err != nil {
			return err
		}
		if err := users.ValidatePasswordStrength(password); err != nil {
			log.Warn().Str("email", email).Err(err).Msg("Weak seed password")
		}
	}
	if err := mockapi.SeedUsers(repo, seed, 0); err != nil {
		return err
	}

	handler, err := mockapi.New(c, repo, mockapi.WithLogger(log.Logger), mockapi.WithVersion(version))
	if err != nil {
		return err
	}

	server := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(server, log.Logger) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

func listenAndServe(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
