package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jchenli/finboard/internal/advisor"
	"github.com/jchenli/finboard/internal/api/handlers"
	"github.com/jchenli/finboard/internal/api/middleware"
	"github.com/jchenli/finboard/internal/auth"
	"github.com/jchenli/finboard/internal/backup"
	"github.com/jchenli/finboard/internal/config"
	"github.com/jchenli/finboard/internal/engine"
	"github.com/jchenli/finboard/internal/logger"
	"github.com/jchenli/finboard/internal/store"
	fsstore "github.com/jchenli/finboard/internal/store/firestore"
	"github.com/jchenli/finboard/internal/store/inmemory"
)

func main() {
	log := logger.New()
	cfg := config.Load(log)

	// Flags override the environment.
	var (
		port    = flag.String("port", cfg.Port, "HTTP server port")
		project = flag.String("project", cfg.ProjectID, "Firestore project ID (empty runs the in-memory store)")
	)
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Select the document store backend.
	var st store.Store
	if *project != "" {
		fs, err := fsstore.New(ctx, *project, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Firestore")
		}
		defer fs.Close()
		st = fs
		log.Info().Str("project", *project).Msg("Using Firestore store")
	} else {
		mem := inmemory.New()
		defer mem.Close()
		st = mem
		log.Warn().Msg("No Firestore project configured, using in-memory store")
	}

	// Select the identity provider. With a signing secret the session comes
	// from bearer tokens; without one the server runs a fixed local session.
	var (
		provider      auth.Provider
		authenticator middleware.TokenAuthenticator
	)
	if cfg.AuthSecret != "" {
		tp := auth.NewTokenProvider(cfg.AuthSecret)
		provider = tp
		authenticator = tp
	} else {
		provider = auth.NewStatic(&auth.Session{
			UID:   "local",
			Name:  "Local User",
			Email: "local@finboard.dev",
		})
		log.Warn().Msg("No auth secret configured, running with a local demo session")
	}

	eng := engine.New(st, provider, log)
	eng.Start(ctx)
	defer eng.Stop()

	adv := advisor.New(ctx, cfg.GenAIAPIKey, log)

	var exporter handlers.SnapshotExporter
	if cfg.Bucket != "" {
		exp, err := backup.New(ctx, cfg.Bucket, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup exporter")
		}
		exporter = exp
	} else {
		log.Warn().Msg("No backup bucket configured, backups are disabled")
	}

	// Initialize handlers
	stateHandler := handlers.NewStateHandler(eng, log)
	accountsHandler := handlers.NewAccountsHandler(eng, log)
	transactionsHandler := handlers.NewTransactionsHandler(eng, log)
	stocksHandler := handlers.NewStocksHandler(eng, adv, log)
	dashboardHandler := handlers.NewDashboardHandler(eng, adv, log)
	sessionHandler := handlers.NewSessionHandler(eng, exporter, log)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			stateHandler.GetState(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/report", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			dashboardHandler.Report(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/advice", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			dashboardHandler.Advice(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			accountsHandler.Create(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/accounts/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Account ID is required")
			return
		}
		if r.Method == http.MethodDelete {
			accountsHandler.Delete(w, r, id)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			transactionsHandler.Create(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		if r.Method == http.MethodDelete {
			transactionsHandler.Delete(w, r, id)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/stocks", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			stocksHandler.Create(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/stocks/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/stocks/")
		id, action, _ := strings.Cut(rest, "/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Stock ID is required")
			return
		}
		switch {
		case action == "" && r.Method == http.MethodDelete:
			stocksHandler.Delete(w, r, id)
		case action == "price" && r.Method == http.MethodPut:
			stocksHandler.UpdatePrice(w, r, id)
		case action == "refresh-price" && r.Method == http.MethodPost:
			stocksHandler.RefreshPrice(w, r, id)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sessionHandler.Reset(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/backup", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sessionHandler.Backup(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sessionHandler.Logout(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"engine": string(eng.State()),
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(authenticator, log)(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting finboard server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
