package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/anjiri1684/tutor_marketplace/database"
	"github.com/anjiri1684/tutor_marketplace/handlers"
	"github.com/anjiri1684/tutor_marketplace/jobs"
	"github.com/anjiri1684/tutor_marketplace/logger"
	"github.com/anjiri1684/tutor_marketplace/notifications"
	"github.com/anjiri1684/tutor_marketplace/payments"
	"github.com/anjiri1684/tutor_marketplace/routes"
	"github.com/anjiri1684/tutor_marketplace/services"
	"github.com/anjiri1684/tutor_marketplace/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zlog, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg, zlog)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zlog.Fatal("migration failed", zap.Error(err))
	}
	if err := database.SeedAdmin(db, cfg, zlog); err != nil {
		zlog.Fatal("admin seed failed", zap.Error(err))
	}

	hub := websocket.NewHub(zlog)
	go hub.Run(ctx)

	var mailer notifications.Mailer = notifications.NewConsoleMailer(zlog)
	if cfg.SendgridAPIKey != "" {
		mailer = notifications.NewSendGridMailer(cfg.SendgridAPIKey, cfg.EmailSender, cfg.EmailSenderName, cfg.AppName)
	} else {
		zlog.Warn("SENDGRID_API_KEY not set, emails are logged only")
	}
	notifier := notifications.NewService(db, hub, mailer, zlog)

	ledger := services.NewLedger(db, notifier, zlog, cfg.PayoutRate)
	discounts := services.NewDiscountService(db)
	meetings := services.NewMeetingService(db, cfg.Jitsi)
	var gateway services.PaymentGateway
	if cfg.PayPal.ClientID != "" {
		gateway = payments.NewPayPal(cfg.PayPal)
	} else {
		zlog.Warn("PayPal credentials not set, deposits are disabled")
	}
	wallet := services.NewWalletService(db, ledger, gateway, cfg.Currency, zlog)
	avatars, err := services.NewAvatarService(db, cfg.CloudinaryURL)
	if err != nil {
		zlog.Fatal("cloudinary setup failed", zap.Error(err))
	}

	h := handlers.New(handlers.Deps{
		Config:        cfg,
		DB:            db,
		Log:           zlog,
		Hub:           hub,
		Ledger:        ledger,
		Auth:          services.NewAuthService(db, notifier, zlog, cfg.JWTSecret, cfg.JWTTTL, cfg.FrontendURL),
		Sessions:      services.NewSessionService(db, ledger, discounts, meetings, notifier, zlog),
		Discounts:     discounts,
		Withdrawals:   services.NewWithdrawalService(db, ledger, notifier, zlog),
		Wallet:        wallet,
		Statements:    services.NewStatementService(wallet, services.ChromePDF),
		Meetings:      meetings,
		Avatars:       avatars,
		Support:       services.NewSupportService(db, notifier),
		Admin:         services.NewAdminService(db, wallet),
		Notifications: notifier,
	})

	if cfg.CronEnabled {
		c := cron.New()
		if err := jobs.NewRunner(db, notifier, zlog).Schedule(c); err != nil {
			zlog.Fatal("cron schedule failed", zap.Error(err))
		}
		c.Start()
		defer c.Stop()
		zlog.Info("maintenance jobs scheduled")
	}

	app := fiber.New(fiber.Config{
		AppName:       cfg.AppName,
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  60 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler:  handlers.ErrorHandler(zlog),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Accept-Language, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Disposition",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	routes.Setup(app, h)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			zlog.Error("shutdown failed", zap.Error(err))
		}
	}()

	zlog.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Fatal("server failed", zap.Error(err))
	}
}
