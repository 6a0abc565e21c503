package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"nexus.dev/research-console/internal/api"
	"nexus.dev/research-console/internal/auth"
	"nexus.dev/research-console/internal/config"
	"nexus.dev/research-console/internal/core"
	"nexus.dev/research-console/internal/logging"
	"nexus.dev/research-console/internal/store"
)

const (
	policyEvalDelay = 300 * time.Millisecond
	pruneInterval   = 10 * time.Minute
)

func main() {
	seedDemo := flag.Bool("seed-demo", false, "Import the bundled demo dataset into the artifact vault and exit")
	importDir := flag.String("import", "", "Import every file in `dir` into the artifact vault and exit")
	flag.Parse()

	config.LoadConfig()
	cfg := config.AppConfig

	if err := logging.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Sync()

	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	if *seedDemo || *importDir != "" {
		if err := runImport(dbStore, *seedDemo, *importDir); err != nil {
			logging.Error("Import failed", err)
			logging.Sync()
			os.Exit(1)
		}
		return
	}

	ctx := context.Background()
	completer, closeCompleter, err := newCompleter(ctx, cfg)
	if err != nil {
		logging.Fatalf("Failed to initialize completion service: %v", err)
	}
	defer closeCompleter()

	models := core.ModelConfig{
		ProModel:        cfg.ProModel,
		FlashModel:      cfg.FlashModel,
		ClassifierModel: cfg.ClassifierModel,
		ThinkingBudget:  cfg.ThinkingBudget,
	}
	sessions := core.NewSessionManager()
	chatService := core.NewChatService(
		sessions,
		dbStore,
		completer,
		core.NewClassifier(completer, cfg.ClassifierModel),
		core.NewSequencer(core.PhaseDelays(cfg.PhaseDelays)),
		models,
	)

	apiHandler := api.NewAPIHandler(chatService, dbStore, auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL), core.NewPolicyEngine(policyEvalDelay))
	router := api.NewRouter(apiHandler)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // pro turns wait on phases plus a thinking-budget completion
		IdleTimeout:  120 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigCtx)

	g.Go(func() error {
		logging.Infof("Starting NEXUS console on %s (sdk=%s pro=%s flash=%s)", serverAddr, cfg.GeminiSDK, cfg.ProModel, cfg.FlashModel)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", serverAddr, err)
		}
		return nil
	})
	g.Go(func() error {
		pruneSessions(gctx, sessions, cfg.SessionTTL)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Infof("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logging.Errorf("Server stopped with error: %v", err)
		return
	}
	logging.Infof("Server exiting gracefully")
}

// newCompleter builds the completion backend selected by GEMINI_SDK.
func newCompleter(ctx context.Context, cfg config.Config) (core.Completer, func(), error) {
	switch cfg.GeminiSDK {
	case config.SDKLegacy:
		svc, err := core.NewLegacyLLMService(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, nil, err
		}
		return svc, svc.Close, nil
	default:
		svc, err := core.NewLLMService(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, nil, err
		}
		return svc, func() {}, nil
	}
}

func runImport(s *store.SQLiteStore, seedDemo bool, dir string) error {
	if seedDemo {
		imported, err := s.ImportDemoArtifacts()
		if err != nil {
			return err
		}
		logging.Infof("Demo dataset imported: %d artifacts", len(imported))
	}
	if dir != "" {
		if _, err := s.ImportDirectory(dir); err != nil {
			return err
		}
	}
	return nil
}

func pruneSessions(ctx context.Context, sessions *core.SessionManager, ttl time.Duration) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Prune(ttl); n > 0 {
				logging.Infof("Pruned %d idle sessions (%d live)", n, sessions.Len())
			}
		}
	}
}
