package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/snapxhq/snapbot/internal/bus"
	"github.com/snapxhq/snapbot/internal/config"
	"github.com/snapxhq/snapbot/internal/gateway"
	"github.com/snapxhq/snapbot/internal/greenapi"
	"github.com/snapxhq/snapbot/internal/media"
	"github.com/snapxhq/snapbot/internal/providers"
	"github.com/snapxhq/snapbot/internal/router"
	"github.com/snapxhq/snapbot/internal/sessions"
	"github.com/snapxhq/snapbot/internal/store"
	"github.com/snapxhq/snapbot/internal/store/pg"
	"github.com/snapxhq/snapbot/internal/store/sqlite"
	"github.com/snapxhq/snapbot/internal/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func runServe(ctx context.Context) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if cfg == nil {
		return err
	}
	if err != nil {
		// Degraded mode: the bot stays up with an empty command table so
		// a config typo doesn't take WhatsApp down.
		slog.Warn("config unusable, running degraded", "path", cfgPath, "error", err)
	}

	if cfg.GreenAPI.InstanceID == "" || cfg.GreenAPI.Token == "" {
		return fmt.Errorf("green api credentials missing: set SNAPBOT_GREENAPI_INSTANCE_ID and SNAPBOT_GREENAPI_TOKEN, or run `snapbot onboard`")
	}

	shutdownTracing, err := tracing.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("trace export shutdown failed", "error", err)
		}
	}()

	stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	wa := greenapi.New(cfg.GreenAPI.APIBase, cfg.GreenAPI.InstanceID, cfg.GreenAPI.Token,
		greenapi.WithSendRate(cfg.GreenAPI.SendRPM))

	// The instance's own number filters webhook echoes; without an
	// explicit admin it also becomes the admin.
	ownNumber := ""
	if settings, err := wa.GetSettings(ctx); err != nil {
		slog.Warn("could not fetch instance settings", "error", err)
	} else {
		ownNumber = settings.WID
		if cfg.AdminNumber() == "" {
			cfg.SetAdminNumber(ownNumber)
			slog.Info("admin number defaulted to instance owner", "number", ownNumber)
		}
	}

	mgr := sessions.NewManager()
	messageBus := bus.New()

	rt, err := router.New(cfg, mgr, stores,
		wa,
		providers.NewChatClient(cfg.Chatbot.APIBase),
		providers.NewVideoClient(cfg.Video.APIBase),
		providers.NewShortenerClient(cfg.Shortener.APIBase, cfg.Shortener.APIKey),
		media.NewFetcher(),
	)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	if err := config.Watch(ctx, cfgPath, cfg, func() {
		if err := rt.ReloadCommands(); err != nil {
			slog.Warn("command table reload failed, keeping previous", "error", err)
		}
	}); err != nil {
		slog.Warn("config watch unavailable", "error", err)
	}

	// Dispatch consumer: one goroutine per delivery so a slow provider
	// call in one chat never stalls another chat.
	go func() {
		for {
			msg, ok := messageBus.ConsumeInbound(ctx)
			if !ok {
				return
			}
			go rt.HandleIncoming(ctx, msg)
		}
	}()

	limiter := gateway.NewWebhookRateLimiter().WithLimit(cfg.Gateway.RateLimitRPM)
	srv := gateway.New(messageBus, ownNumber, limiter)
	return srv.Run(ctx, cfg.ListenAddr())
}

func openStores(ctx context.Context, cfg *config.Config) (*store.Stores, error) {
	if dsn := cfg.Database.PostgresDSN; dsn != "" {
		slog.Info("using postgres store")
		return pg.Open(ctx, dsn)
	}
	path := config.ExpandHome(cfg.Database.SQLitePath)
	slog.Info("using sqlite store", "path", path)
	return sqlite.Open(ctx, path)
}
