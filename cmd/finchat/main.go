// FinChat is a conversational market data analyst for US equities and
// options, driven by a tool-calling LLM loop.
//
// Main CLI entrypoint using the cobra command framework.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/finchat-ai/finchat/api"
	"github.com/finchat-ai/finchat/internal/agent"
	"github.com/finchat-ai/finchat/internal/config"
	"github.com/finchat-ai/finchat/internal/datasource"
	"github.com/finchat-ai/finchat/internal/llm"
	"github.com/finchat-ai/finchat/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "finchat",
	Short: "FinChat - conversational market data analyst",
	Long: `FinChat answers questions about US stocks, options, fundamentals,
and market news. It drives a tool-calling LLM loop over live market
data from Polygon.io and financial news feeds.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		setupLogging(cfg.Logging)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// setupLogging installs the process-wide slog handler.
func setupLogging(lc config.LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// buildAnalyst wires the completion client, data sources, and agent from
// config.
func buildAnalyst() (*agent.Analyst, agent.MarketData, agent.NewsProvider, error) {
	client, err := llm.NewClient(cfg.LLM.OpenAIKey,
		llm.WithBaseURL(cfg.LLM.BaseURL),
		llm.WithModel(cfg.LLM.Model),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("completion service: %w", err)
	}

	market, err := datasource.NewPolygonClient(cfg.Market.PolygonKey,
		datasource.WithPolygonBaseURL(cfg.Market.BaseURL),
		datasource.WithPolygonCacheTTL(time.Duration(cfg.Market.CacheTTLSec)*time.Second),
		datasource.WithPolygonRateLimit(cfg.Market.RatePerMinute),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("market data: %w", err)
	}

	news := datasource.NewNewsSource(datasource.WithNewsFeeds(cfg.News.Feeds))

	analyst := agent.NewAnalyst(agent.Config{
		Client:      client,
		Sources:     agent.Sources{Market: market, News: news},
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxRounds:   cfg.Agent.MaxRounds,
		MemorySize:  cfg.Agent.MemorySize,
	})
	return analyst, market, news, nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("FinChat %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Ask Command ---

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot market question",
	Long: `Ask a single question and print the answer.

Examples:
  finchat ask "What is NVDA trading at?"
  finchat ask "Compare AAPL and MSFT over the last quarter"
  finchat ask "What is the SPY 400 call expiring January 16 worth?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		analyst, _, _, err := buildAnalyst()
		if err != nil {
			return err
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		var onToolCall func(llm.ToolCallRecord)
		if verbose {
			onToolCall = func(rec llm.ToolCallRecord) {
				fmt.Fprintf(os.Stderr, "  → %s %v\n", rec.ToolName, rec.Args)
			}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		result, err := analyst.Ask(ctx, strings.Join(args, " "), nil, onToolCall)
		if err != nil {
			return err
		}
		fmt.Println(result.Content)
		return nil
	},
}

func init() {
	askCmd.Flags().BoolP("verbose", "v", false, "print tool calls as they run")
}

// --- Chat Command ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		analyst, _, _, err := buildAnalyst()
		if err != nil {
			return err
		}

		fmt.Println("FinChat interactive mode. Type 'exit' to quit, 'reset' to clear history.")
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			switch line {
			case "":
				continue
			case "exit", "quit":
				return nil
			case "reset":
				analyst.Memory().Clear()
				fmt.Println("Conversation cleared.")
				continue
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			result, err := analyst.Chat(ctx, line, nil, func(rec llm.ToolCallRecord) {
				fmt.Fprintf(os.Stderr, "  → %s\n", rec.ToolName)
			})
			cancel()
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Println(result.Content)
		}
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		analyst, market, news, err := buildAnalyst()
		if err != nil {
			return err
		}

		srv := api.NewServer(cfg, api.Deps{
			Analyst: analyst,
			Market:  market,
			News:    news,
		})
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		return srv.ListenAndServe(addr)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  FinChat - System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatusAt(time.Now()))
		fmt.Printf("  Time (ET):     %s\n", utils.FormatDateTimeET(time.Now()))
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    Model:       %s\n", cfg.LLM.Model)
		fmt.Printf("    Max Rounds:  %d\n", cfg.Agent.MaxRounds)
		fmt.Printf("    API Server:  %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "not set"
			if k.IsSet {
				status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-18s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
