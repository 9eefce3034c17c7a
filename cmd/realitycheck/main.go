package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			Logger().Warning("Failed to load .env file: %v", err)
		}
	}

	var err error
	if _, statErr := os.Stat(*configPath); statErr == nil {
		cfg, err = LoadConfig(*configPath)
	} else {
		cfg, err = LoadConfig("")
	}
	if err != nil {
		Logger().Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	if err := InitLogger(cfg.LogPath, ParseLogLevel(cfg.LogLevel)); err != nil {
		Logger().Error("Failed to initialize logger: %v", err)
		os.Exit(1)
	}
	Logger().Info("RealityCheck %s starting", VERSION)

	if cfg.OpenAIAPIKey == "" {
		Logger().Warning("No OpenAI API key configured; generation-backed stages will degrade")
	}
	if cfg.SerperAPIKey == "" {
		Logger().Warning("No Serper API key configured; raw search fallback is unavailable")
	}

	if err := LoadState(filepath.Join(cfg.DataDir, "state.json")); err != nil {
		Logger().Warning("Failed to load state file: %v", err)
	}

	// Capability providers
	provider := NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	serper := NewSerperClient(cfg.SerperAPIKey, cfg.SearchRatePerSecond)
	fetcher := NewHTTPPageFetcher(cfg.ScrapeTimeout(), cfg.ScrapeRatePerSecond, cfg.UserAgentString)

	// Pipeline stages
	cache := NewClassificationCache(KeepAllPolicy{})
	scorer := NewArticleScorer(provider, provider, cache, cfg.OpenAIAPIKey != "")
	extractor := NewClaimExtractor(provider)
	searcher := NewSearchProvider(provider, serper)
	scraper := NewContentScraper(fetcher)
	verifier := NewClaimVerifier(searcher, scraper, cfg.MaxCitationsPerClaim, cfg.ScrapeWorkers)

	store, err := NewResultStore(cfg.ResultsDir)
	if err != nil {
		Logger().Error("Failed to open result store: %v", err)
		os.Exit(1)
	}

	orchestrator := NewPipelineOrchestrator(scorer, extractor, verifier, provider, store)

	// RAG service over stored summaries
	rag := NewRAGIndex(provider)
	if err := rag.LoadFromStore(store); err != nil {
		Logger().Warning("Failed to load RAG index: %v", err)
	}

	// Optional Discord digest notifier
	var notifier *DiscordNotifier
	if cfg.EnableDiscord {
		notifier, err = NewDiscordNotifier(cfg.DiscordToken, cfg.DiscordChannelID)
		if err != nil {
			Logger().Warning("Discord notifier disabled: %v", err)
			notifier = nil
		} else {
			defer notifier.Close()
			Logger().Info("Discord notifier enabled for channel %s", cfg.DiscordChannelID)
		}
	}

	// Scheduled RSS ingestion
	var ingestor *Ingestor
	if cfg.EnableIngest {
		ingestor = NewIngestor(orchestrator, cfg.Feeds)
		if err := ingestor.Start(cfg.IngestCron); err != nil {
			Logger().Error("Failed to start feed ingestion: %v", err)
			os.Exit(1)
		}
		defer ingestor.Stop()
	}

	server := NewServer(orchestrator, store, rag, notifier, cfg.AllowedOrigins)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Handler(),
	}

	go func() {
		Logger().Info("HTTP server listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			Logger().Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Block until shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	Logger().Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		Logger().Error("HTTP server shutdown error: %v", err)
	}
}
