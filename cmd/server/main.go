package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/devarche/wpp-dashboard/internal/accounts"
	"github.com/devarche/wpp-dashboard/internal/campaigns"
	"github.com/devarche/wpp-dashboard/internal/config"
	"github.com/devarche/wpp-dashboard/internal/contacts"
	"github.com/devarche/wpp-dashboard/internal/conversations"
	"github.com/devarche/wpp-dashboard/internal/db"
	"github.com/devarche/wpp-dashboard/internal/feed"
	"github.com/devarche/wpp-dashboard/internal/handlers"
	"github.com/devarche/wpp-dashboard/internal/logger"
	"github.com/devarche/wpp-dashboard/internal/messages"
	"github.com/devarche/wpp-dashboard/internal/server"
	"github.com/devarche/wpp-dashboard/internal/tags"
	"github.com/devarche/wpp-dashboard/internal/templates"
	"github.com/devarche/wpp-dashboard/internal/webhook"
	"github.com/devarche/wpp-dashboard/internal/whatsapp"
)

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			pool.Close()
			return nil
		},
	})
	return pool, nil
}

func provideWhatsAppClient(cfg config.Config) *whatsapp.Client {
	return whatsapp.NewClient(cfg.WhatsApp)
}

func provideCampaignService(store campaigns.Store, tmplService *templates.Service, tagService *tags.Service, gateway *whatsapp.Client) *campaigns.Service {
	return campaigns.NewService(store, tmplService, tagService, gateway)
}

func provideCampaignSender(
	cfg config.Config,
	store campaigns.Store,
	contactService *contacts.Service,
	convService *conversations.Service,
	tmplService *templates.Service,
	msgService *messages.Service,
	gateway *whatsapp.Client,
	hub *feed.Hub,
) *campaigns.Sender {
	delay := time.Duration(cfg.WhatsApp.SendDelayMS) * time.Millisecond
	return campaigns.NewSender(store, contactService, convService, tmplService, msgService, gateway, hub, delay)
}

func provideWebhookService(
	cfg config.Config,
	contactService *contacts.Service,
	convService *conversations.Service,
	msgService *messages.Service,
	campaignService *campaigns.Service,
) *webhook.Service {
	return webhook.NewService(contactService, convService, msgService, campaignService, cfg.WhatsApp.VerifyToken)
}

func provideAuthHandler(log *slog.Logger, cfg config.Config, accountService *accounts.Service) (*handlers.AuthHandler, error) {
	expiresIn, err := time.ParseDuration(cfg.Auth.JWTExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("parse jwt_expires_in: %w", err)
	}
	return handlers.NewAuthHandler(log, accountService, cfg.Auth.JWTSecret, expiresIn), nil
}

func main() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideWhatsAppClient,

			feed.NewHub,
			fx.Annotate(func(h *feed.Hub) *feed.Hub { return h }, fx.As(new(feed.Publisher))),
			fx.Annotate(func(h *feed.Hub) *feed.Hub { return h }, fx.As(new(feed.Subscriber))),

			fx.Annotate(accounts.NewPGStore, fx.As(new(accounts.Store))),
			fx.Annotate(contacts.NewPGStore, fx.As(new(contacts.Store))),
			fx.Annotate(conversations.NewPGStore, fx.As(new(conversations.Store))),
			fx.Annotate(messages.NewPGStore, fx.As(new(messages.Store))),
			fx.Annotate(templates.NewPGStore, fx.As(new(templates.Store))),
			fx.Annotate(tags.NewPGStore, fx.As(new(tags.Store))),
			fx.Annotate(campaigns.NewPGStore, fx.As(new(campaigns.Store))),

			accounts.NewService,
			contacts.NewService,
			conversations.NewService,
			messages.NewService,
			templates.NewService,
			tags.NewService,
			provideCampaignService,
			provideCampaignSender,
			provideWebhookService,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideAuthHandler),
			provideServerHandler(handlers.NewContactsHandler),
			provideServerHandler(handlers.NewConversationsHandler),
			provideServerHandler(handlers.NewMessagesHandler),
			provideServerHandler(handlers.NewTemplatesHandler),
			provideServerHandler(handlers.NewTagsHandler),
			provideServerHandler(handlers.NewCampaignsHandler),
			provideServerHandler(handlers.NewUsersHandler),
			provideServerHandler(handlers.NewWebhookHandler),
			provideServerHandler(handlers.NewStreamHandler),

			provideServer,
		),
		fx.Invoke(
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.ServerHandlers...)
}

func startServer(
	lc fx.Lifecycle,
	log *slog.Logger,
	srv *server.Server,
	shutdowner fx.Shutdowner,
	cfg config.Config,
	accountService *accounts.Service,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := accountService.Bootstrap(ctx, cfg.Admin); err != nil {
				return fmt.Errorf("bootstrap admin account: %w", err)
			}

			go func() {
				if err := srv.Start(); err != nil { // block until server is stopped
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
