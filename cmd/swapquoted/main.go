package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/openport-labs/swapquote/blocks"
	"github.com/openport-labs/swapquote/config"
	"github.com/openport-labs/swapquote/engine"
	"github.com/openport-labs/swapquote/quoting"
	"github.com/openport-labs/swapquote/registry"
	"github.com/openport-labs/swapquote/routerquery"
	"github.com/openport-labs/swapquote/rpc"
)

var log zerolog.Logger

func init() {
	// Initialize zerolog with console writer
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	// Share the logger with the RPC package
	rpc.SetLogger(log)
}

func main() {
	configPath := flag.String("config", "./quoter-config.toml", "config file for the quoting daemon")
	downloadRegistry := flag.Bool("download-registry", false, "download the token registry before starting")
	flag.Parse()

	log.Info().Str("config", *configPath).Msg("Starting swapquote daemon")

	cfg, err := config.NewDefaultLoader().Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Token registry
	if *downloadRegistry {
		if cfg.Registry.Source == "" {
			log.Fatal().Msg("registry download requested but registry.source is not set")
		}
		if err := registry.Download(cfg.Registry.Source, cfg.Registry.Dir); err != nil {
			log.Fatal().Err(err).Msg("Failed to download token registry")
		}
	}
	tokens, err := registry.Load(cfg.Registry.Dir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load token registry")
	}

	// Quoting provider client with failover
	failover := routerquery.DefaultFailoverConfig()
	failover.Timeout = time.Duration(cfg.Provider.TimeoutSeconds) * time.Second
	client, err := routerquery.NewWithFailover(cfg.Provider.URL, cfg.Provider.BackupURLs, failover)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create provider client")
	}

	// Block oracle follows the provider's chain head
	head := blocks.NewHeadTracker(client, cfg.Quoting.BlockMaxLag, cfg.HeadPollInterval())
	head.Start()

	chains := quoting.NewChainSet(cfg.Quoting.SupportedChains...)
	manager := engine.NewManager(func() (*engine.Engine, error) {
		return engine.New(engine.Config{
			Service:        client,
			Oracle:         head,
			Chains:         chains,
			ProviderURL:    cfg.Provider.URL,
			PollInterval:   cfg.PollInterval(),
			DebounceWindow: cfg.DebounceWindow(),
		})
	})

	serverConfig := buildServerConfig(cfg)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := rpc.NewServer(ctx, serverConfig, manager, tokens)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create API server")
	}

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			sigCh <- syscall.SIGTERM
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}

	manager.CloseAll()
	head.Stop()
	client.Close()
}

// buildServerConfig converts the loaded Config to rpc.ServerConfig
func buildServerConfig(cfg *config.Config) *rpc.ServerConfig {
	serverConfig := &rpc.ServerConfig{
		Address:        cfg.Server.Address,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		EnableMetrics:  cfg.Server.EnableMetrics,
	}

	// Set rate limiting if configured
	if cfg.Server.RatePerMinute > 0 {
		serverConfig.RatePerMinute = &cfg.Server.RatePerMinute
	}
	if cfg.Server.MaxConcurrent > 0 {
		serverConfig.MaxConcurrentRequests = &cfg.Server.MaxConcurrent
	}

	// Set OpenTelemetry configuration if any telemetry is enabled
	tel := cfg.Telemetry
	if tel.EnableTracing || tel.UseOTLPMetrics || tel.EnableLogs || cfg.Server.EnableMetrics {
		serverConfig.OTelConfig = &rpc.OTelConfig{
			ServiceName:    tel.ServiceName,
			ServiceVersion: tel.ServiceVersion,
			Environment:    tel.Environment,
			EnableTracing:  tel.EnableTracing,
			UseOTLPTraces:  tel.UseOTLPTraces,
			OTLPTracesURL:  tel.OTLPTracesURL,
			EnableMetrics:  cfg.Server.EnableMetrics || tel.UseOTLPMetrics,
			UsePrometheus:  cfg.Server.EnableMetrics,
			UseOTLPMetrics: tel.UseOTLPMetrics,
			OTLPMetricsURL: tel.OTLPMetricsURL,
			EnableLogs:     tel.EnableLogs,
			UseOTLPLogs:    tel.UseOTLPLogs,
			OTLPLogsURL:    tel.OTLPLogsURL,
			InsecureOTLP:   tel.InsecureOTLP,
		}
	}

	return serverConfig
}
