package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/c360studio/semstreams/payloadregistry"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/c360studio/contractspec/config"
	contractchecker "github.com/c360studio/contractspec/processor/contract-checker"
)

func serveCmd() *cobra.Command {
	var (
		natsURL     string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the contract-checker as a NATS stream processor",
		Long: `Serve connects to NATS and consumes contract check requests from
JetStream, publishing a result per request. Prometheus metrics are
exposed over HTTP.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if natsURL != "" {
				cfg.NATS.URL = natsURL
			}
			return serve(cmd.Context(), cfg, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server URL (overrides config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9109", "Prometheus metrics listen address")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, metricsAddr string) error {
	logger := slog.Default()

	signalCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	natsClient, err := connectToNATS(signalCtx, cfg.NATS.URL, logger)
	if err != nil {
		return err
	}
	defer natsClient.Close(context.Background())

	checkerConfig := contractchecker.DefaultConfig()
	checkerConfig.StrictRaises = cfg.ValidatorOptions().StrictRaises
	checkerConfig.RedundancySensitivity = cfg.Rules.RedundancySensitivity
	checkerConfig.ContractMandatoryForClasses = cfg.ValidatorOptions().ContractsMandatoryForClasses
	checkerConfig.Workers = cfg.Engine.Workers

	if err := ensureStream(signalCtx, natsClient, checkerConfig.StreamName, logger); err != nil {
		return err
	}

	rawConfig, err := json.Marshal(checkerConfig)
	if err != nil {
		return fmt.Errorf("marshal checker config: %w", err)
	}

	payloads := payloadregistry.New()
	if err := contractchecker.RegisterPayloads(payloads); err != nil {
		return fmt.Errorf("register payloads: %w", err)
	}

	comp, err := contractchecker.NewComponent(rawConfig, component.Dependencies{
		NATSClient:      natsClient,
		Logger:          logger,
		PayloadRegistry: payloads,
	})
	if err != nil {
		return fmt.Errorf("create contract-checker: %w", err)
	}

	checker, ok := comp.(*contractchecker.Component)
	if !ok {
		return fmt.Errorf("unexpected component type %T", comp)
	}

	if err := checker.Initialize(); err != nil {
		return fmt.Errorf("initialize contract-checker: %w", err)
	}
	if err := checker.Start(signalCtx); err != nil {
		return fmt.Errorf("start contract-checker: %w", err)
	}
	defer func() {
		if err := checker.Stop(30 * time.Second); err != nil {
			logger.Error("Error stopping contract-checker", "error", err)
		}
	}()

	metricsServer := startMetricsServer(metricsAddr, logger)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("Contractspec serving",
		"version", Version,
		"nats", cfg.NATS.URL,
		"metrics", metricsAddr)

	<-signalCtx.Done()
	logger.Info("Received shutdown signal")
	return nil
}

func connectToNATS(ctx context.Context, url string, logger *slog.Logger) (*natsclient.Client, error) {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		url = envURL
	}

	logger.Info("Connecting to NATS", "url", url)

	client, err := natsclient.NewClient(url,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
		natsclient.WithHealthInterval(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, wrapNATSError(err, url)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, wrapNATSError(err, url)
	}

	logger.Info("Connected to NATS", "url", url)
	return client, nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker compose up -d nats

Or set NATS_URL environment variable to point to your NATS server.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}

// ensureStream creates the request stream when it does not exist yet.
func ensureStream(ctx context.Context, natsClient *natsclient.Client, streamName string, logger *slog.Logger) error {
	js, err := natsClient.JetStream()
	if err != nil {
		return fmt.Errorf("get jetstream: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name: streamName,
		Subjects: []string{
			"doc.trigger.>",
			"doc.result.>",
		},
		Storage:  jetstream.FileStorage,
		MaxAge:   24 * time.Hour,
		Replicas: 1,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", streamName, err)
	}

	logger.Debug("JetStream stream ready", "stream", streamName)
	return nil
}

func startMetricsServer(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server error", "error", err)
		}
	}()
	return server
}
