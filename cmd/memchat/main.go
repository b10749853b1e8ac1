package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/memchat"
	"github.com/hupe1980/memchat/core"
	"github.com/hupe1980/memchat/embedding"
	"github.com/hupe1980/memchat/logging"
	"github.com/hupe1980/memchat/memory"
	"github.com/hupe1980/memchat/memory/chromem"
	"github.com/hupe1980/memchat/memory/mem0"
	"github.com/hupe1980/memchat/memory/postgres"
	"github.com/hupe1980/memchat/metrics"
	"github.com/hupe1980/memchat/model"
	"github.com/hupe1980/memchat/model/anthropic"
	"github.com/hupe1980/memchat/model/openai"
)

var rootCmd = &cobra.Command{
	Use:   "memchat",
	Short: `An AI chat assistant with long-term memory. Conversations are remembered per user and recalled in later sessions.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Try to load .env from the current directory (ignore error if file doesn't exist)
		_ = godotenv.Load()
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		scope, err := core.NewScope(viper.GetString("user"), viper.GetString("agent"), viper.GetString("run"))
		if err != nil {
			return err
		}

		logger := logging.NewSlogLogger(
			logging.ParseLogLevel(viper.GetString("log-level")),
			viper.GetString("log-format"),
			false,
		)

		collector := metrics.NewCollector(metrics.Config{})
		if addr := viper.GetString("metrics-addr"); addr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", collector.Handler())
			go func() {
				if err := http.ListenAndServe(addr, mux); err != nil {
					logger.Error("metrics server stopped", "error", err)
				}
			}()
		}

		store, err := newMemoryStore(cmd.Context())
		if err != nil {
			return err
		}

		mdl, err := newModel()
		if err != nil {
			return err
		}

		assistant, err := memchat.New(scope, mdl, func(o *memchat.Options) {
			o.MemoryStore = store
			o.TopK = viper.GetInt("top-k")
			o.ScoreThreshold = viper.GetFloat64("threshold")
			o.Logger = logger
			o.Metrics = collector
		})
		if err != nil {
			return err
		}
		defer assistant.Close()

		return chatLoop(cmd.Context(), assistant)
	},
}

func newMemoryStore(ctx context.Context) (core.MemoryStore, error) {
	switch backend := viper.GetString("store"); backend {
	case "memory":
		return memory.NewInMemoryStore(), nil

	case "mem0":
		return mem0.NewStore(func(o *mem0.Options) {
			if url := viper.GetString("mem0-url"); url != "" {
				o.BaseURL = url
			}
			o.APIKey = os.Getenv("MEM0_API_KEY")
		}), nil

	case "chromem":
		return chromem.NewStore(func(o *chromem.Options) {
			o.Embedder = embedding.NewOpenAI()
		}), nil

	case "postgres":
		db, err := postgres.Open(viper.GetString("dsn"))
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		store := postgres.NewStore(db, func(o *postgres.Options) {
			o.Embedder = embedding.NewOpenAI()
		})
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func newModel() (model.Model, error) {
	switch provider := viper.GetString("provider"); provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if m := viper.GetString("model"); m != "" {
				o.Model = m
			}
		}), nil

	case "anthropic":
		return anthropic.NewModel(), nil

	case "mock":
		return model.NewMockModel("mock-model", "mock"), nil

	default:
		return nil, fmt.Errorf("unknown model provider %q", provider)
	}
}

func chatLoop(ctx context.Context, assistant *memchat.Assistant) error {
	fmt.Printf("Chatting as %s. Type /help for commands.\n", assistant.Scope())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(ctx, assistant, line); quit {
				return nil
			}
			continue
		}

		res, err := assistant.SendTurn(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		fmt.Println(res.AssistantText)
		if res.RetrievalDegraded {
			fmt.Fprintln(os.Stderr, "(memory retrieval unavailable, answered without memories)")
		}
	}
}

func runCommand(ctx context.Context, assistant *memchat.Assistant, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		fmt.Println(`Commands:
  /memories        list stored memories
  /add <text>      store a memory directly
  /count           show how many memories are stored
  /clear           delete all memories for the current user
  /user <id>       switch to another user
  /quit            exit`)

	case "/memories":
		page, err := assistant.ViewMemories(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		if page.Count == 0 {
			fmt.Println("No memories stored yet.")
			return false
		}
		for i, rec := range page.Records {
			fmt.Printf("%3d. %s\n", i+1, rec.Text)
		}
		if page.Count > len(page.Records) {
			fmt.Printf("(%d more not shown)\n", page.Count-len(page.Records))
		}

	case "/add":
		if arg == "" {
			fmt.Fprintln(os.Stderr, "usage: /add <text>")
			return false
		}
		if _, err := assistant.AddMemory(ctx, arg, ""); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		fmt.Println("Memory stored.")

	case "/count":
		n, err := assistant.MemoryCount(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		fmt.Printf("%d memories stored.\n", n)

	case "/clear":
		if err := assistant.ClearMemories(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		fmt.Println("All memories deleted.")

	case "/user":
		if arg == "" {
			fmt.Fprintln(os.Stderr, "usage: /user <id>")
			return false
		}
		scope, err := core.NewScope(arg, viper.GetString("agent"), viper.GetString("run"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		if err := assistant.SwitchScope(scope); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return false
		}
		fmt.Printf("Now chatting as %s.\n", scope)

	case "/quit", "/exit":
		return true

	default:
		fmt.Fprintf(os.Stderr, "unknown command %s (try /help)\n", cmd)
	}

	return false
}

func init() {
	viper.SetDefault("user", "default")
	viper.SetDefault("provider", "openai")
	viper.SetDefault("store", "memory")
	viper.SetDefault("top-k", 3)
	viper.SetDefault("threshold", 0.3)
	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-format", "text")

	rootCmd.PersistentFlags().String("user", "default", "user the conversation and memories belong to")
	rootCmd.PersistentFlags().String("agent", "", "optional agent identifier refining the memory scope")
	rootCmd.PersistentFlags().String("run", "", "optional run identifier refining the memory scope")
	rootCmd.PersistentFlags().String("provider", "openai", `model provider ("openai", "anthropic" or "mock")`)
	rootCmd.PersistentFlags().String("model", "", "override the provider's default model")
	rootCmd.PersistentFlags().String("store", "memory", `memory backend ("memory", "mem0", "chromem" or "postgres")`)
	rootCmd.PersistentFlags().String("mem0-url", "", "base URL of a self-hosted mem0 service")
	rootCmd.PersistentFlags().String("dsn", "", "postgres data source name for the postgres backend")
	rootCmd.PersistentFlags().Int("top-k", 3, "maximum memories retrieved per turn")
	rootCmd.PersistentFlags().Float64("threshold", 0.3, "minimum relevance score for retrieved memories")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text or json)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix("memchat")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
