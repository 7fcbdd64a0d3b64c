package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inamate/storyeditor/internal/auth"
	"github.com/inamate/storyeditor/internal/backup"
	"github.com/inamate/storyeditor/internal/collab"
	"github.com/inamate/storyeditor/internal/config"
	mw "github.com/inamate/storyeditor/internal/middleware"
	"github.com/inamate/storyeditor/internal/persistence"
	"github.com/inamate/storyeditor/internal/render"
	"github.com/inamate/storyeditor/internal/storyapi"
	"github.com/inamate/storyeditor/internal/workspace"
)

// Editors start with every capability; WordPress narrows them per user.
var defaultCapabilities = map[string]bool{
	"hasPublishAction":      true,
	"hasAssignAuthorAction": true,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		slog.Error("ping database", "error", err)
		os.Exit(1)
	}

	stories := persistence.NewPGStore(pool)
	if err := stories.Migrate(ctx); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	backups, err := backup.Open(cfg.BackupPath)
	if err != nil {
		slog.Error("open backup store", "error", err)
		os.Exit(1)
	}
	defer backups.Close()

	authService := auth.NewService(cfg.JWTSecret)

	manager := workspace.NewManager(workspace.Deps{
		Stories:  stories,
		Backups:  backups,
		Renderer: render.NewRasterizer(cfg.CanvasScale),
		Logger:   slog.Default(),
	}, workspace.Options{
		HistorySize:  cfg.HistorySize,
		IdleTimeout:  cfg.IdleTimeout,
		IdleQuiet:    cfg.IdleQuiet,
		VerifyFrozen: cfg.VerifyFrozen,
		Capabilities: defaultCapabilities,
	})

	hub := collab.NewHub(manager, slog.Default())
	go hub.Run()

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)
	storyapi.NewHandler(manager, hub, slog.Default()).Register(api)

	ws := r.PathPrefix("/ws").Subrouter()
	ws.Use(authService.AuthMiddleware)
	ws.HandleFunc("/stories/{storyId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, cfg.Origins())
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
		if err := manager.CloseAll(shutdownCtx); err != nil {
			slog.Warn("clearing backups", "error", err)
		}
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, origins []string) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	storyID := mux.Vars(r)["storyId"]

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	ctx := r.Context()
	client := collab.NewClient(hub, conn, id.UserID, id.DisplayName, storyID, uuid.NewString())
	if err := hub.Join(ctx, client); err != nil {
		slog.Warn("join story", "story", storyID, "user", id.UserID, "error", err)
		status := websocket.StatusInternalError
		if persistence.StatusCode(err) == http.StatusNotFound {
			status = websocket.StatusPolicyViolation
		}
		conn.Close(status, "story unavailable")
		return
	}

	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
