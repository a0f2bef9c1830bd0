package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"securechat/backend/internal/api/handler"
	"securechat/backend/internal/assistant"
	"securechat/backend/internal/chathub"
	"securechat/backend/internal/config"
	"securechat/backend/internal/geo"
	"securechat/backend/internal/localization"
	"securechat/backend/internal/relations"
	"securechat/backend/internal/storage"
)

func main() {
	log.Println("Starting SecureChat Backend...")

	configPath := flag.String("config", "securechat.toml", "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	kv, err := storage.OpenKV(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer kv.Close()

	s := storage.NewStorageService(kv, cfg.Storage.Key)
	s.AdminUsername = cfg.Admin.Username
	s.AdminPassword = cfg.Admin.Password
	if _, err := s.Load(); err != nil {
		log.Fatalf("Failed to load data record: %v", err)
	}

	// 2. Services
	hub := chathub.NewManagerService(s, cfg.Chat.PollInterval())
	go hub.Run(ctx)

	i18n, err := localization.Default(cfg.Language)
	if err != nil {
		log.Fatalf("Failed to load translations: %v", err)
	}

	h := handler.NewHandler(s, relations.NewResolver(s), hub,
		assistant.NewSessions(newProvider(ctx, cfg.AI)), newLocator(cfg.Geo), i18n,
		handler.Options{
			GatePassword:        cfg.GatePassword,
			JWTSecret:           cfg.JWTSecret,
			AIRequestsPerMinute: cfg.AI.RequestsPerMinute,
		})

	// 3. Routes
	r := gin.Default()
	h.Register(r)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
		// No WriteTimeout: AI replies are streamed and may take longer.
	}

	go func() {
		log.Printf("INFO: Listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("INFO: Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Graceful shutdown failed: %v", err)
	}
	<-hub.Done()
}

// newProvider returns nil when the AI pane cannot be configured; the API then
// answers AI requests with 503.
func newProvider(ctx context.Context, cfg config.AIConfig) assistant.Provider {
	g, err := assistant.NewGemini(ctx, assistant.GeminiConfig{
		APIKey:            cfg.APIKey,
		Model:             cfg.Model,
		SystemInstruction: cfg.SystemInstruction,
	})
	if errors.Is(err, assistant.ErrNotConfigured) {
		log.Println("WARNING: No AI API key set, the AI assistant is disabled.")
		return nil
	}
	if err != nil {
		log.Printf("ERROR: AI assistant disabled: %v", err)
		return nil
	}
	return g
}

func newLocator(cfg config.GeoConfig) geo.Locator {
	if !cfg.Enabled {
		return geo.Static{IP: geo.DefaultIP, Label: geo.DefaultLocation}
	}
	return geo.NewIPAPI(cfg.Endpoint, cfg.Timeout())
}
