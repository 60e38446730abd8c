package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/app"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/auth"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/billing"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/chat"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/config"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/gateway"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/httpapi"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/httpapi/handlers"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/logger"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/profile"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/relay"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/storage"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/store/rabbitmq"
)

var autoMigrate bool

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP and websocket server",
		RunE:  run,
	}
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Create or update tables before serving")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logCloser.Close()

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	if autoMigrate {
		if err := stores.Migrate(); err != nil {
			return err
		}
		log.Infow("auto-migration completed")
	}

	sessions := chat.NewService(stores.Chat)

	keys := auth.NewKeySet(cfg.Auth.JWKSURL, nil)
	validator := auth.NewValidator(keys, cfg.Auth.ClientID)
	login := auth.NewLoginFlow(auth.LoginConfig{
		ClientID:     cfg.Auth.ClientID,
		AuthorizeURL: cfg.Auth.AuthorizeURL,
		TokenURL:     cfg.Auth.TokenURL,
		RedirectURI:  cfg.Auth.RedirectURI,
		DashboardURL: cfg.Auth.DashboardURL,
	}, validator, nil)

	relayClient := relay.NewClient(relay.NewWebhookURL(cfg.Relay.WebhookURL, cfg.Relay.SecretFile), cfg.Relay.Timeout, log)
	registry := gateway.NewRegistry()
	gw := gateway.New(sessions, relayClient, registry, log)
	var wsAuth gateway.TokenValidator
	if cfg.Realtime.RequireToken {
		wsAuth = validator
	}
	ws := gateway.NewServer(gw, registry, wsAuth, log)

	s3Client, err := storage.NewS3Client(ctx, cfg.Storage.Region)
	if err != nil {
		return err
	}
	var audit storage.AuditSink = storage.NewS3Audit(s3Client, cfg.Storage.AuditBucket)
	if cfg.Rabbit.URL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.Rabbit.URL, cfg.Rabbit.AuditQueue)
		if err != nil {
			return fmt.Errorf("rabbit publisher: %w", err)
		}
		defer pub.Close()
		audit = storage.NewQueueAudit(pub)
	}
	files := storage.NewService(storage.NewS3Presigner(s3Client, cfg.Storage.Bucket), audit, cfg.Storage.Expires, log)

	checkout := billing.NewStripeCheckout(billing.StripeConfig{
		SecretKey:  cfg.Stripe.SecretKey,
		SuccessURL: cfg.Stripe.SuccessURL,
		CancelURL:  cfg.Stripe.CancelURL,
		UnitAmount: cfg.Stripe.UnitAmount,
	}, nil)
	payments := billing.NewService(checkout, sessions, cfg.Stripe.WebhookSecret, log)

	h := handlers.NewHandler(
		login,
		profile.NewService(validator, stores.Directory, sessions),
		files,
		payments,
		log,
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.NewRouter(h, ws, log),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server starting", "addr", cfg.Server.Addr, "mode", cfg.Server.Mode, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Infow("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return err
	}
	log.Infow("server exited gracefully", "open_connections", registry.Len())
	return nil
}
