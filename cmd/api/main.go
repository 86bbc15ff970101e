package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/slotline/slotline-api/internal/database"
	"github.com/slotline/slotline-api/internal/http/handlers"
	mw "github.com/slotline/slotline-api/internal/http/middleware"
	"github.com/slotline/slotline-api/internal/platform/auth"
	"github.com/slotline/slotline-api/internal/platform/cache"
	"github.com/slotline/slotline-api/internal/platform/calendar"
	"github.com/slotline/slotline-api/internal/platform/mailer"
	"github.com/slotline/slotline-api/internal/repo/postgres"
	"github.com/slotline/slotline-api/internal/scheduling"
	"github.com/slotline/slotline-api/internal/service"
	"github.com/slotline/slotline-api/pkg/config"
	pkgdb "github.com/slotline/slotline-api/pkg/database"
	"github.com/slotline/slotline-api/pkg/events"
	"github.com/slotline/slotline-api/pkg/logger"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool, err := pkgdb.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Error("Failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	// Redis backs rate limiting, idempotency replay and OAuth state. All of
	// those degrade gracefully, so a missing Redis is a warning, not a crash.
	cacheStore, err := cache.New(cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, rate limiting and idempotency disabled", "error", err)
		cacheStore = nil
	} else {
		defer cacheStore.Close()
	}

	var bus events.Publisher = events.NoopPublisher{}
	if cfg.NATS.Enabled {
		natsBus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsBus.Close()
		bus = natsBus
	}

	var mail mailer.Service
	if cfg.Email.DevMode || cfg.Email.MailerSendKey == "" {
		mail = mailer.NewDevMailer()
	} else {
		mail = mailer.NewMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	}

	// Repositories
	bookingRepo := postgres.NewBookingRepo(pool)
	requestRepo := postgres.NewRequestRepo(pool)
	ruleRepo := postgres.NewRuleRepo(pool)
	settingsRepo := postgres.NewSettingsRepo(pool)
	hostRepo := postgres.NewHostRepo(pool)
	tokenRepo := postgres.NewTokenRepo(pool)

	// Calendar providers
	var providers []scheduling.CalendarProvider
	var writers []calendar.Writer
	var google *calendar.GoogleProvider
	if cfg.Calendar.GoogleClientID != "" {
		google = calendar.NewGoogleProvider(
			cfg.Calendar.GoogleClientID,
			cfg.Calendar.GoogleClientSecret,
			cfg.Email.ConfirmBase+"/calendar/google/callback",
			tokenRepo,
		)
		providers = append(providers, google)
		writers = append(writers, google)
	}
	outlook := calendar.NewOutlookProvider(cfg.Calendar.OutlookBaseURL, tokenRepo)
	providers = append(providers, outlook)
	writers = append(writers, outlook)

	// Services
	busy := scheduling.NewAggregator(bookingRepo, requestRepo, providers, cfg.Calendar.ProviderTimeout)
	slots := scheduling.NewService(ruleRepo, settingsRepo, busy)
	bookings := service.NewBookingService(
		bookingRepo, requestRepo, mail, bus, writers,
		cfg.Scheduling.RequestHoldTTL, cfg.Email.ConfirmBase,
	)
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	// Stale pending requests stop blocking slots even if nobody ever clicks
	// their confirmation link.
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go service.NewRequestSweeper(requestRepo, bus, cfg.Scheduling.SweepInterval).Run(sweepCtx)

	// Handlers
	availabilityHandler := handlers.NewAvailabilityHandler(slots)
	authHandler := handlers.NewAuthHandler(hostRepo, tokens)
	requestsHandler := handlers.NewRequestsHandler(bookings)
	bookingsHandler := handlers.NewBookingsHandler(bookings)
	rulesHandler := handlers.NewRulesHandler(ruleRepo, settingsRepo)

	var calendarHandler *handlers.CalendarHandler
	if google != nil && cacheStore != nil {
		calendarHandler = handlers.NewCalendarHandler(google, tokenRepo, cacheStore)
	}

	publicLimiter := mw.NewRateLimiter(cacheStore, mw.RateLimitConfig{
		Requests: 30,
		Window:   time.Minute,
	})

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes())

		// Public booking surface
		r.Route("/hosts/{hostID}", func(r chi.Router) {
			r.Use(publicLimiter.Middleware())
			r.Mount("/availability", availabilityHandler.Routes())
			r.With(mw.Idempotency(cacheStore)).Mount("/requests", requestsHandler.CreateRoutes())
		})
		r.With(publicLimiter.Middleware()).Mount("/requests", requestsHandler.ConfirmRoutes())
		r.With(publicLimiter.Middleware()).Mount("/bookings", bookingsHandler.ManageRoutes())

		// Host surface
		r.Route("/me", func(r chi.Router) {
			r.Use(mw.RequireHost(tokens))
			r.Mount("/bookings", bookingsHandler.HostRoutes())
			if calendarHandler != nil {
				r.Mount("/calendar", calendarHandler.HostRoutes())
			}
			r.Mount("/", rulesHandler.Routes())
		})
		if calendarHandler != nil {
			r.Mount("/calendar", calendarHandler.CallbackRoutes())
		}
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")
		stopSweeper()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting server", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
