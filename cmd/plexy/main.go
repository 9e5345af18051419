package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/plexy/agent"
	"github.com/mohammad-safakhou/plexy/config"
	"github.com/mohammad-safakhou/plexy/internal/logger"
	"github.com/mohammad-safakhou/plexy/internal/telemetry"
	"github.com/mohammad-safakhou/plexy/provider"
	"github.com/mohammad-safakhou/plexy/repository/redis_repository"
	"github.com/mohammad-safakhou/plexy/tools/web_fetch"
	"github.com/mohammad-safakhou/plexy/tools/web_rerank"
	"github.com/mohammad-safakhou/plexy/tools/web_search"
)

func main() {
	var root = &cobra.Command{Use: "plexy"}

	root.AddCommand(chatCMD())
	_ = root.Execute()
}

func chatCMD() *cobra.Command {
	var cfgPath string
	var toolDir string
	var model string
	var maxIters int
	var debug bool
	var stream bool
	var chat = &cobra.Command{
		Use:   "chat",
		Short: "Run an interactive assistant session",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg := config.LoadConfig(cfgPath)
			if model != "" {
				cfg.LLM.OpenAIModel = model
				cfg.LLM.AnthropicModel = model
			}
			if maxIters > 0 {
				cfg.Pipeline.MaxIters = maxIters
			}
			if debug {
				cfg.General.Debug = true
				cfg.General.LogLevel = "debug"
			}
			return runChat(cfg, toolDir, stream)
		},
	}
	chat.Flags().StringVar(&model, "model", "", "override the configured model name")
	chat.Flags().IntVar(&maxIters, "max-iters", 0, "override the search round budget")
	chat.Flags().BoolVar(&debug, "debug", false, "verbose pipeline logging")
	chat.Flags().BoolVar(&stream, "stream", false, "stream replies and let the model call tools itself")
	chat.Flags().StringVar(&toolDir, "tool-dir", "", "directory of external tool manifests")
	chat.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return chat
}

func runChat(cfg *config.Config, toolDir string, stream bool) error {
	log := logger.New(cfg.General.LogLevel, cfg.General.LogFormat)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionID := uuid.NewString()
	log.Info("starting session", zap.String("session_id", sessionID))

	llm, err := provider.NewProvider(provider.Client(cfg.LLM.Provider), cfg.LLM)
	if err != nil {
		return fmt.Errorf("llm provider: %w", err)
	}
	searcher, err := web_search.NewWebSearcher(web_search.Provider(cfg.Search.Provider), cfg.Search)
	if err != nil {
		return fmt.Errorf("search provider: %w", err)
	}
	fetcher, err := web_fetch.NewWebFetcher(web_fetch.FetcherType(cfg.Crawl.Fetcher), cfg.Crawl)
	if err != nil {
		return fmt.Errorf("fetcher: %w", err)
	}

	// Re-ranking is optional: without a Cohere key the pipeline falls
	// back to score order.
	var reranker web_rerank.Reranker
	if cfg.Rerank.CohereAPIKey != "" {
		reranker, err = web_rerank.NewReranker(web_rerank.CohereProvider, cfg.Rerank)
		if err != nil {
			return fmt.Errorf("reranker: %w", err)
		}
	} else {
		log.Warn("COHERE_API_KEY not set, re-ranking disabled")
	}

	// An unreachable Redis degrades to uncached fetches.
	var pages agent.PageStore
	client, err := redis_repository.Conn(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Pass, cfg.Redis.DB, cfg.Redis.Timeout)
	if err != nil {
		log.Warn("redis unavailable, page caching disabled", zap.Error(err))
	} else {
		pages = redis_repository.NewPageCache(client)
		defer func() { _ = client.Close() }()
	}

	var metrics *telemetry.Metrics
	if cfg.Telemetry.Enabled {
		reg := prometheus.NewRegistry()
		metrics = telemetry.New(reg)
		go func() {
			if err := telemetry.Serve(cfg.Telemetry.MetricsPort, reg); err != nil {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	registry := agent.NewRegistry(log)
	if toolDir != "" {
		registry.LoadManifests(toolDir)
	}

	a := agent.New(agent.Options{
		Provider:      llm,
		Searcher:      searcher,
		Fetcher:       fetcher,
		Reranker:      reranker,
		Pages:         pages,
		Registry:      registry,
		Logger:        log,
		Metrics:       metrics,
		MaxIters:      cfg.Pipeline.MaxIters,
		ScoreDropoff:  cfg.Pipeline.ScoreDropoff,
		MinContentLen: cfg.Pipeline.MinContentLen,
		RerankTopN:    cfg.Rerank.TopN,
		CacheTTL:      cfg.Crawl.CacheTTL,
		Debug:         cfg.General.Debug,
	})

	fmt.Println("Plexy ready. Type your question, or 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "exit", "quit", "q":
			fmt.Println("Bye.")
			return nil
		}

		var events <-chan agent.Event
		if stream {
			events = a.StreamChat(ctx, line)
		} else {
			events = a.RunPipeline(ctx, line)
		}
		printEvents(events, stream)

		if ctx.Err() != nil {
			fmt.Println("\nInterrupted.")
			return nil
		}
	}
}

func printEvents(events <-chan agent.Event, stream bool) {
	streamed := false
	for ev := range events {
		switch ev.Type {
		case agent.EventAnswer:
			if stream {
				fmt.Print(ev.Text)
				streamed = true
			} else {
				fmt.Println(ev.Text)
			}
		case agent.EventScratchpad:
			fmt.Printf("[%s]\n", ev.Text)
		case agent.EventNotice:
			fmt.Println(ev.Text)
		}
	}
	if streamed {
		fmt.Println()
	}
}
