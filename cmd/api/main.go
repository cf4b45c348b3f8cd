package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/baovptse192440/NongSanProject-sub002/internal/handlers"
	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/auth"
	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/config"
	pfirestore "github.com/baovptse192440/NongSanProject-sub002/internal/platform/firestore"
	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/idempotency"
	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/jobs"
	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/mail"
	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/observability"
	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/secrets"
	"github.com/baovptse192440/NongSanProject-sub002/internal/repositories"
	firestoreRepo "github.com/baovptse192440/NongSanProject-sub002/internal/repositories/firestore"
	"github.com/baovptse192440/NongSanProject-sub002/internal/services"
)

const secretHealthReference = "secret://system/healthz"

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger(observability.LoggerConfig{
		Level:       env("API_LOG_LEVEL"),
		Service:     "nongsan-api",
		Environment: env("API_SECURITY_ENVIRONMENT"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("api")

	resolver, err := newSecretResolver(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialise secret resolver", zap.Error(err))
	}
	defer func() {
		if err := resolver.Close(); err != nil {
			logger.Warn("secret resolver close error", zap.Error(err))
		}
	}()

	loadOpts := []config.Option{config.WithSecretResolver(config.SecretResolverFunc(resolver.Resolve))}
	if strings.EqualFold(env("API_MAIL_TRANSPORT"), "smtp") {
		loadOpts = append(loadOpts, config.WithRequiredSecrets("Mail.SMTP.Password"))
	}
	cfg, err := config.Load(ctx, loadOpts...)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(cfg, startedAt)
	projectID := traceProjectID(cfg)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	userRepo, err := firestoreRepo.NewUserRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise user repository", zap.Error(err))
	}
	productRepo, err := firestoreRepo.NewProductRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise product repository", zap.Error(err))
	}
	cartRepo, err := firestoreRepo.NewCartRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise cart repository", zap.Error(err))
	}
	orderRepo, err := firestoreRepo.NewOrderRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise order repository", zap.Error(err))
	}
	notificationRepo, err := firestoreRepo.NewNotificationRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise notification repository", zap.Error(err))
	}

	money, err := services.NewMoneyFormatter(cfg.Mail.Locale, cfg.Mail.Currency)
	if err != nil {
		logger.Fatal("failed to initialise money formatter", zap.Error(err))
	}
	composer, err := services.NewMailComposer(cfg.Mail.StoreName, money)
	if err != nil {
		logger.Fatal("failed to initialise mail composer", zap.Error(err))
	}

	var sender services.MailSender = mail.NewLogSender(logger.Named("mail"))
	if cfg.Mail.Transport == "smtp" || (cfg.Mail.Transport == "pubsub" && cfg.Mail.SMTP.Host != "") {
		smtpSender, err := mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.SMTP.Host,
			Port:     cfg.Mail.SMTP.Port,
			Username: cfg.Mail.SMTP.Username,
			Password: cfg.Mail.SMTP.Password,
		})
		if err != nil {
			logger.Fatal("failed to initialise smtp sender", zap.Error(err))
		}
		sender = smtpSender
	}
	directMailer, err := services.NewDirectEmailDispatcher(composer, sender, cfg.Mail.From)
	if err != nil {
		logger.Fatal("failed to initialise mail dispatcher", zap.Error(err))
	}

	var mailer services.EmailDispatcher = directMailer
	if cfg.Mail.Transport == "pubsub" {
		pubsubClient, err := pubsub.NewClient(ctx, projectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		topic := pubsubClient.Topic(cfg.Mail.PubSubTopic)
		defer topic.Stop()

		publisher, err := jobs.NewPubSubMailPublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise mail publisher", zap.Error(err))
		}
		queued, err := services.NewQueuedEmailDispatcher(publisher, time.Now)
		if err != nil {
			logger.Fatal("failed to initialise queued mail dispatcher", zap.Error(err))
		}
		mailer = queued
	}

	policy, err := services.NewTransitionPolicy(cfg.Orders.TransitionPolicy, cfg.Orders.Transitions)
	if err != nil {
		logger.Fatal("invalid order transition policy", zap.Error(err))
	}
	numbers, err := services.NewOrderNumberGenerator(services.OrderNumberGeneratorDeps{
		Lookup:         orderRepo,
		Clock:          time.Now,
		MaxAttempts:    cfg.Orders.NumberMaxAttempts,
		BackoffInitial: cfg.Orders.NumberBackoffInitial,
		BackoffMax:     cfg.Orders.NumberBackoffMax,
	})
	if err != nil {
		logger.Fatal("failed to initialise order number generator", zap.Error(err))
	}

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: productRepo,
		Logger:   observability.EventLogger(logger.Named("catalog")),
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}
	cartService, err := services.NewCartService(services.CartServiceDeps{
		Carts:    cartRepo,
		History:  cartRepo,
		Products: productRepo,
		Orders:   orderRepo,
		Clock:    time.Now,
		Logger:   observability.EventLogger(logger.Named("cart")),
	})
	if err != nil {
		logger.Fatal("failed to initialise cart service", zap.Error(err))
	}
	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:           orderRepo,
		Users:            userRepo,
		Notifications:    notificationRepo,
		Numbers:          numbers,
		Mailer:           mailer,
		Policy:           policy,
		AdminEmails:      cfg.Orders.AdminEmails,
		PlaceholderImage: cfg.Orders.PlaceholderImage,
		Money:            money,
		Clock:            time.Now,
		Logger:           observability.EventLogger(logger.Named("orders")),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}
	notificationService, err := services.NewNotificationService(services.NotificationServiceDeps{
		Notifications: notificationRepo,
		Clock:         time.Now,
	})
	if err != nil {
		logger.Fatal("failed to initialise notification service", zap.Error(err))
	}

	systemService, err := newSystemService(firestoreProvider, resolver, buildInfo)
	if err != nil {
		logger.Warn("health: system service init failed", zap.Error(err))
	}

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier, auth.WithProfileLookup(userRepo))

	internalMiddleware, err := buildPushMiddleware(logger.Named("auth"), cfg)
	if err != nil {
		logger.Fatal("failed to initialise push authenticator", zap.Error(err))
	}

	idempotencyStore, err := idempotency.NewFirestoreStore(firestoreProvider, "")
	if err != nil {
		logger.Fatal("failed to initialise idempotency store", zap.Error(err))
	}
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(logger.Named("idempotency")),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			runIdempotencyCleanup(cleanupCtx, idempotencyStore, cfg.Idempotency, logger.Named("idempotency"))
		}()
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(systemService),
	)
	productHandlers := handlers.NewProductHandlers(catalogService)
	cartHandlers := handlers.NewCartHandlers(cartService)
	orderHandlers := handlers.NewOrderHandlers(orderService)
	notificationHandlers := handlers.NewNotificationHandlers(notificationService)
	adminOrderHandlers := handlers.NewAdminOrderHandlers(orderService)
	mailJobHandlers := handlers.NewMailJobHandlers(directMailer)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.Trace(projectID),
			observability.RequestLogger(logger.Named("http"), "/healthz", "/readyz"),
			observability.Recoverer,
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithPublicRoutes(productHandlers.Routes),
		handlers.WithUserRoutes(cartHandlers.Routes, orderHandlers.Routes, notificationHandlers.Routes),
		handlers.WithUserMiddlewares(authenticator.RequireUser(), idempotencyMiddleware),
		handlers.WithAdminRoutes(adminOrderHandlers.Routes),
		handlers.WithAdminMiddlewares(authenticator.RequireAdmin()),
		handlers.WithInternalRoutes(mailJobHandlers.Routes),
		handlers.WithInternalMiddlewares(internalMiddleware),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("nongsan api listening",
			zap.String("version", buildInfo.Version),
			zap.String("mailTransport", cfg.Mail.Transport),
			zap.String("transitionPolicy", string(policy.Kind())),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func buildInfoFromEnv(cfg config.Config, started time.Time) services.BuildInfo {
	version := env("API_BUILD_VERSION")
	if version == "" {
		version = "dev"
	}
	commit := env("API_BUILD_COMMIT_SHA")
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newSecretResolver(ctx context.Context, logger *zap.Logger) (*secrets.Resolver, error) {
	project := env("API_SECRET_DEFAULT_PROJECT_ID")
	if project == "" {
		project = env("API_FIREBASE_PROJECT_ID")
	}
	fallback := env("API_SECRET_FALLBACK_FILE")
	if fallback == "" {
		fallback = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallback),
	}
	if project != "" {
		opts = append(opts, secrets.WithProject(project))
	}
	if credentials := env("API_FIREBASE_CREDENTIALS_FILE"); credentials != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentials)))
	}
	return secrets.NewResolver(ctx, opts...)
}

func newSystemService(provider *pfirestore.Provider, resolver *secrets.Resolver, build services.BuildInfo) (services.SystemService, error) {
	checks := make([]repositories.DependencyCheck, 0, 2)
	if provider != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check:   provider.Ping,
		})
	}
	if resolver != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				return resolver.Ping(ctx, secretHealthReference)
			},
		})
	}
	if len(checks) == 0 {
		return nil, errors.New("health: no dependency checks configured")
	}
	repo, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		return nil, err
	}
	return services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: repo,
		Clock:            time.Now,
		Build:            build,
	})
}

// buildPushMiddleware returns nil when no JWKS endpoint is configured, which leaves the
// internal group unauthenticated for local runs.
func buildPushMiddleware(logger *zap.Logger, cfg config.Config) (func(http.Handler) http.Handler, error) {
	oidc := cfg.Security.OIDC
	if strings.TrimSpace(oidc.JWKSURL) == "" {
		logger.Warn("push authentication disabled: no jwks url configured")
		return nil, nil
	}
	push, err := auth.NewPushAuthenticator(
		auth.NewJWKSCache(oidc.JWKSURL),
		auth.PushAuthConfig{
			Audience:        oidc.Audience,
			Issuers:         oidc.Issuers,
			ServiceAccounts: oidc.ServiceAccounts,
		},
		auth.WithPushLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return push.Middleware(), nil
}

func runIdempotencyCleanup(ctx context.Context, store *idempotency.FirestoreStore, cfg config.IdempotencyConfig, logger *zap.Logger) {
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Minute)
			removed, err := store.CleanupExpired(runCtx, time.Now().UTC(), cfg.CleanupBatchSize)
			cancel()
			if err != nil {
				logger.Error("idempotency cleanup error", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("idempotency cleanup removed records", zap.Int("count", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}
