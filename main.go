// main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"

	"climb-calendar/config"
	"climb-calendar/logger"
)

const usage = `usage: climb-calendar [command]

commands:
  serve           run the HTTP server (default)
  make-admins     grant the admin role to every account listed in the admins collection
  hash-password   read a password and print its bcrypt hash for the accounts file
`

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve()
	case "make-admins":
		err = makeAdmins()
	case "hash-password":
		err = hashPassword(os.Stdin, os.Stdout)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error.Printf("[main] %s: %v", cmd, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and points the loggers at it.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if cfg.LogDir != "" {
		if err := logger.InitLogger(cfg.LogDir); err != nil {
			return cfg, fmt.Errorf("init logger: %w", err)
		}
	}
	logger.SetLogLevel(cfg.Env)
	return cfg, nil
}

func serve() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var handler http.Handler = a.router
	if cfg.XRayEnabled {
		handler = xray.Handler(xray.NewFixedSegmentNamer("climb-calendar"), handler)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info.Println("[serve] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error.Printf("[serve] shutdown: %v", err)
		}
	}()

	logger.Info.Printf("[serve] listening on :%s (store=%s)", cfg.Port, cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to run server: %w", err)
	}
	return nil
}
