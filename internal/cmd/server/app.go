package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"github.com/castmatch/castmatch/internal/platform/timeouts"
	campaigndomain "github.com/castmatch/castmatch/internal/services/campaigns/domain"
	campaignsqlite "github.com/castmatch/castmatch/internal/services/campaigns/storage/sqlite"
	notifdomain "github.com/castmatch/castmatch/internal/services/notifications/domain"
	"github.com/castmatch/castmatch/internal/services/notifications/render"
	notifsqlite "github.com/castmatch/castmatch/internal/services/notifications/storage/sqlite"
	"github.com/castmatch/castmatch/internal/services/notifications/stream"
)

// App is the wired CastMatch core: lifecycle services, the notification
// dispatcher, and the realtime stream surface. Lifecycle services are
// consumed in-process; only the stream surface is served over HTTP.
type App struct {
	Applications  *campaigndomain.ApplicationService
	Missions      *campaigndomain.MissionService
	Notifications *notifdomain.Service
	Registry      *stream.Registry
	Keeper        *stream.Keeper
	Verifier      *stream.TokenVerifier

	campaignStore     *campaignsqlite.Store
	notificationStore *notifsqlite.Store
}

// NewApp opens storage and wires every service. Callers must Close the app
// when done.
func NewApp(cfg Config) (*App, error) {
	secret := strings.TrimSpace(cfg.StreamSecret)
	if secret == "" {
		return nil, errors.New("CASTMATCH_STREAM_SECRET is required")
	}
	if err := os.MkdirAll(cfg.DBDir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	campaignStore, err := campaignsqlite.Open(filepath.Join(cfg.DBDir, "campaigns.db"))
	if err != nil {
		return nil, fmt.Errorf("open campaigns store: %w", err)
	}
	notificationStore, err := notifsqlite.Open(filepath.Join(cfg.DBDir, "notifications.db"))
	if err != nil {
		_ = campaignStore.Close()
		return nil, fmt.Errorf("open notifications store: %w", err)
	}

	tag, err := language.Parse(strings.TrimSpace(cfg.Locale))
	if err != nil {
		tag = language.English
	}

	registry := stream.NewRegistry()
	keeper := stream.NewKeeper(registry, cfg.HeartbeatInterval)
	renderer := render.New(tag)
	notifications := notifdomain.NewService(notificationStore, renderer, registry, registry, nil, nil)

	return &App{
		Applications:      campaigndomain.NewApplicationService(campaignStore, campaignStore, notifications, nil, nil),
		Missions:          campaigndomain.NewMissionService(campaignStore, campaignStore, campaignStore, notifications, nil, nil),
		Notifications:     notifications,
		Registry:          registry,
		Keeper:            keeper,
		Verifier:          stream.NewTokenVerifier([]byte(secret), nil),
		campaignStore:     campaignStore,
		notificationStore: notificationStore,
	}, nil
}

// Handler returns the HTTP surface: the stream endpoints plus health.
func (a *App) Handler() http.Handler {
	return stream.NewHandler(a.Registry, a.Verifier, a.Notifications)
}

// Close releases storage resources.
func (a *App) Close() {
	if a == nil {
		return
	}
	if err := a.notificationStore.Close(); err != nil {
		log.Printf("close notifications store: %v", err)
	}
	if err := a.campaignStore.Close(); err != nil {
		log.Printf("close campaigns store: %v", err)
	}
}

func run(ctx context.Context, cfg Config) error {
	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	go app.Keeper.Run(ctx)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
