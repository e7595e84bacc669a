package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/hoststate/hoststate/internal/config"
	"github.com/hoststate/hoststate/internal/gateway"
	"github.com/hoststate/hoststate/internal/metrics"
	"github.com/hoststate/hoststate/internal/probe"
	"github.com/hoststate/hoststate/internal/session"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		host       string
		port       int
		tick       time.Duration
	)
	flagSet := pflag.NewFlagSet("hoststated", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "config.yaml", "path to config file (defaults are used if missing)")
	flagSet.StringVar(&host, "host", "", "override server.host")
	flagSet.IntVarP(&port, "port", "p", 0, "override server.port")
	flagSet.DurationVar(&tick, "tick", 0, "override monitor.tick_interval")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	load := func() (*config.Config, error) {
		cfg, err := config.LoadOrDefault(configPath)
		if err != nil {
			return nil, err
		}
		if host != "" {
			cfg.Server.Host = host
		}
		if port > 0 {
			cfg.Server.Port = port
		}
		if tick > 0 {
			cfg.Monitor.TickInterval = tick
		}
		return cfg, cfg.Validate()
	}

	cfg, err := load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	hostProbe := probe.NewSystemProbe(cfg.Probe.Browsers, cfg.Probe.DeniedApps)

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		if collector, err = metrics.New(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	registry := session.NewRegistry(hostProbe, session.Options{
		TickInterval: cfg.Monitor.TickInterval,
		ProbeTimeout: cfg.Monitor.ProbeTimeout,
		MaxSessions:  cfg.Server.MaxConnections,
		Metrics:      collector,
	})
	server := gateway.NewServer(cfg, registry, hostProbe, collector)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("[hoststated] listening on %s (tick %v)", httpServer.Addr, cfg.Monitor.TickInterval)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		reloadConfig(ctx, cfg, load, hostProbe)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Println("[hoststated] shutting down...")

		registry.Shutdown()
		server.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// reloadConfig re-reads the config file on SIGHUP. Only the match lists
// take effect live; other changes are logged and need a restart.
func reloadConfig(ctx context.Context, current *config.Config, load func() (*config.Config, error), p *probe.SystemProbe) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
		}

		next, err := load()
		if err != nil {
			log.Printf("[hoststated] reload failed, keeping current config: %v", err)
			continue
		}
		changes := config.Diff(current, next)
		if len(changes) == 0 {
			log.Println("[hoststated] reload: no changes")
			continue
		}
		for _, c := range changes {
			log.Printf("[hoststated] reload: %s", c)
		}
		p.SetMatchLists(next.Probe.Browsers, next.Probe.DeniedApps)
		current = next
	}
}
