package routes

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/chopnow/chop_wallet/internal/config"
	"github.com/chopnow/chop_wallet/internal/deposit"
	"github.com/chopnow/chop_wallet/internal/ledger"
	"github.com/chopnow/chop_wallet/internal/middleware"
	"github.com/chopnow/chop_wallet/internal/notification"
	"github.com/chopnow/chop_wallet/internal/payments"
	"github.com/chopnow/chop_wallet/internal/paystack"
	"github.com/chopnow/chop_wallet/internal/wallet"
	"github.com/chopnow/chop_wallet/internal/withdrawal"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev; the in-memory fallback is for
	// local runs only.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(cors.New(cors.Config{AllowOrigins: "*"}))
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Services and handlers
	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
	} else {
		store = ledger.NewMemory()
	}

	processor := paystack.NewClient(d.Cfg.Paystack)
	notifier := notification.NewLoggerNotifier(d.Logger)

	walletSvc := wallet.NewService(store, processor, d.Cfg.Currency)
	depositSvc := deposit.NewService(store, notifier, d.Logger)
	withdrawalSvc := withdrawal.NewService(store, processor, d.Cfg.MinimumWithdrawal, notifier, d.Logger)
	paymentSvc := payments.NewService(store, d.Logger)

	walletHandler := wallet.NewHandler(walletSvc)
	webhookHandler := deposit.NewHandler(depositSvc, []byte(d.Cfg.Paystack.SecretKey), d.Logger)
	withdrawalHandler := withdrawal.NewHandler(withdrawalSvc)
	paymentHandler := payments.NewHandler(paymentSvc)

	api := app.Group("/api/v1")

	// Public routes
	RegisterWebhookRoutes(api, webhookHandler)

	// Protected routes
	protected := api.Group("", middleware.BearerAuth([]byte(d.Cfg.JWTSecret)))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterWalletRoutes(protected, walletHandler)
	RegisterWithdrawalRoutes(protected, withdrawalHandler, middleware.WithdrawRateLimit(d.Cache, 5))
	RegisterPaymentRoutes(protected, paymentHandler)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
