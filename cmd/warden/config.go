package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/joho/godotenv"
	nats "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mirkobrombin/go-warden/v1/lock"
	"github.com/mirkobrombin/go-warden/v1/metrics"
	"github.com/mirkobrombin/go-warden/v1/syncbus"
)

// runtimeEnv holds what the persistent pre-run set up and the post-run tears down.
type runtimeEnv struct {
	logger   *slog.Logger
	endpoint string
	embedded *miniredis.Miniredis
	tracer   *sdktrace.TracerProvider
	metrics  *http.Server
	bus      syncbus.Bus
	closers  []func()
}

var env runtimeEnv

func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("warden")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func setup(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		return fmt.Errorf("invalid log level %q", viper.GetString("log-level"))
	}
	env.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(env.logger)

	env.endpoint = viper.GetString("endpoint")
	if viper.GetBool("embedded") {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start embedded store: %w", err)
		}
		env.embedded = mr
		env.endpoint = mr.Addr()
		env.logger.Info("embedded store started", "addr", mr.Addr())
	}

	if viper.GetBool("trace") {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return err
		}
		env.tracer = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		otel.SetTracerProvider(env.tracer)
	}

	bus, err := openBus()
	if err != nil {
		return err
	}
	env.bus = bus

	if addr := viper.GetString("metrics-addr"); addr != "" {
		reg := metrics.NewRegistry()
		metrics.RegisterLockMetrics(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		env.metrics = &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := env.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				env.logger.Error("metrics server failed", "addr", addr, "error", err)
			}
		}()
	}
	return nil
}

func teardown(_ *cobra.Command, _ []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if env.metrics != nil {
		_ = env.metrics.Shutdown(ctx)
	}
	if env.tracer != nil {
		_ = env.tracer.Shutdown(ctx)
	}
	for i := len(env.closers) - 1; i >= 0; i-- {
		env.closers[i]()
	}
	if env.embedded != nil {
		env.embedded.Close()
	}
}

// openBus connects the lock event bus selected by --bus. Publishing goes
// through a circuit breaker so an unreachable bus does not slow locking.
func openBus() (syncbus.Bus, error) {
	var bus syncbus.Bus
	switch kind := viper.GetString("bus"); kind {
	case "", "none":
		return nil, nil
	case "redis":
		opts, err := redisOptions(env.endpoint)
		if err != nil {
			return nil, err
		}
		client := redis.NewClient(opts)
		rb := syncbus.NewRedisBus(client, "warden:")
		env.closers = append(env.closers, func() {
			_ = rb.Close()
			_ = client.Close()
		})
		bus = rb
	case "nats":
		conn, err := nats.Connect(viper.GetString("nats-url"))
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		env.closers = append(env.closers, conn.Close)
		bus = syncbus.NewNATSBus(conn, "warden.")
	default:
		return nil, fmt.Errorf("invalid bus %s", kind)
	}
	return syncbus.NewCircuitBreaker(bus, 3, 5*time.Second), nil
}

func redisOptions(endpoint string) (*redis.Options, error) {
	if strings.Contains(endpoint, "://") {
		return redis.ParseURL(endpoint)
	}
	return &redis.Options{Addr: endpoint}, nil
}

// handleOptions builds the lock options shared by every command.
func handleOptions() []lock.Option {
	opts := []lock.Option{
		lock.WithLogger(env.logger),
		lock.WithWatchdogFloor(viper.GetDuration("watchdog-floor")),
	}
	if viper.GetBool("trace") {
		opts = append(opts, lock.WithTracing())
	}
	if env.bus != nil {
		opts = append(opts, lock.WithBus(env.bus))
	}
	return opts
}
