package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"refrigee/internal/ai"
	"refrigee/internal/ai/gemini"
	"refrigee/internal/ai/openaicompat"
	"refrigee/internal/cache"
	"refrigee/internal/config"
	"refrigee/internal/inventory"
	"refrigee/internal/logsink"
	"refrigee/internal/service"
	"refrigee/internal/settings"
	"refrigee/internal/telemetry"
)

func main() {
	var serve bool
	var addr string
	var classify string
	var recipes string
	var lang string
	var help bool

	flag.BoolVar(&serve, "serve", false, "Run HTTP server mode")
	flag.StringVar(&addr, "addr", "", "Address to bind in server mode (default REFRIGEE_ADDR or :8080)")
	flag.StringVar(&classify, "classify", "", "Classify an item name and print the result")
	flag.StringVar(&classify, "c", "", "Classify an item name (short form)")
	flag.StringVar(&recipes, "recipes", "", "Comma separated ingredients to suggest recipes for")
	flag.StringVar(&lang, "lang", "en", "Response language (en or zh)")
	flag.BoolVar(&help, "help", false, "Show help message")
	flag.BoolVar(&help, "h", false, "Show help message")
	flag.Parse()

	if help {
		showHelp()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if addr == "" {
		addr = cfg.Addr
	}

	ctx := context.Background()
	closeLogging, err := setupLogging(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer closeLogging()

	a, err := newApp(cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	switch {
	case serve:
		if err := runServer(a, addr); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	case classify != "":
		printJSON(a.manager.ClassifyItem(ctx, classify, ai.ParseLanguage(lang)))
	case recipes != "":
		ingredients := strings.Split(recipes, ",")
		for i := range ingredients {
			ingredients[i] = strings.TrimSpace(ingredients[i])
		}
		printJSON(a.manager.GenerateRecipes(ctx, ingredients, 2, ai.ParseLanguage(lang)))
	default:
		fmt.Println("Error: nothing to do (use -serve, -classify or -recipes)")
		showHelp()
		os.Exit(1)
	}
}

type app struct {
	cache     cache.ListCache
	settings  *settings.Store
	manager   *service.Manager
	inventory *inventory.Store
}

func newApp(cfg *config.Config) (*app, error) {
	c, err := cache.MakeCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	store := settings.NewStore(c, settings.Options{
		DefaultCredential: cfg.AI.DefaultCredential,
		Passphrase:        cfg.AI.ConfigPassphrase,
	})

	httpClient := ai.NewHTTPClient(cfg.AI.RequestTimeout, cfg.AI.MaxRetries)
	registry := ai.NewRegistry()
	registry.Register(ai.KindMultimodal, gemini.New(httpClient, cfg.AI.RequestTimeout))
	registry.Register(ai.KindChatCompatible, openaicompat.New(httpClient, cfg.AI.RequestTimeout))

	return &app{
		cache:     c,
		settings:  store,
		manager:   service.NewManager(store, registry, service.WithImageMaxDim(cfg.AI.ImageMaxDim)),
		inventory: inventory.NewStore(c),
	}, nil
}

// setupLogging sends slog to stdout, plus the append blob and OTLP collector when those
// are configured.
func setupLogging(ctx context.Context, cfg *config.Config) (func(), error) {
	handlers := []slog.Handler{slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})}
	var closers []func()

	if cfg.LogSink.Container != "" && cfg.Azure.Enabled() {
		sink, err := logsink.New(ctx, logsink.Config{
			AccountName: cfg.Azure.AccountName,
			AccountKey:  cfg.Azure.AccountKey,
			Container:   cfg.LogSink.Container,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create log sink: %w", err)
		}
		handlers = append(handlers, sink)
		closers = append(closers, func() { _ = sink.Close() })
	}

	tel, err := telemetry.Setup(ctx, cfg.Tracing)
	if err != nil {
		return nil, err
	}
	if tel.LogHandler != nil {
		handlers = append(handlers, tel.LogHandler)
	}
	closers = append(closers, func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", err)
		}
	})

	slog.SetDefault(slog.New(logsink.NewFanout(handlers...)))
	return func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func showHelp() {
	fmt.Println("Refrigee - fridge inventory and AI kitchen assistant")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  refrigee -serve [-addr :8080]")
	fmt.Println("  refrigee -classify <item name> [-lang zh]")
	fmt.Println("  refrigee -recipes tomato,egg [-lang zh]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -serve          Run the HTTP API")
	fmt.Println("  -addr           Address to bind in server mode")
	fmt.Println("  -classify, -c   Classify one item and print the result")
	fmt.Println("  -recipes        Suggest recipes for comma separated ingredients")
	fmt.Println("  -lang           Response language, en or zh")
	fmt.Println("  -help, -h       Show this help message")
}
