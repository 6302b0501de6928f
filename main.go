package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"yoga-studio/config"
	"yoga-studio/database"
	adminapi "yoga-studio/internal/api/admin"
	authapi "yoga-studio/internal/api/auth"
	"yoga-studio/internal/api/billing"
	classesapi "yoga-studio/internal/api/classes"
	communityapi "yoga-studio/internal/api/community"
	contentapi "yoga-studio/internal/api/content"
	goalsapi "yoga-studio/internal/api/goals"
	messagesapi "yoga-studio/internal/api/messages"
	"yoga-studio/internal/api/plans"
	"yoga-studio/internal/api/response"
	"yoga-studio/internal/api/users"
	routes "yoga-studio/internal/app/http"
	"yoga-studio/internal/app/http/middleware"
	"yoga-studio/internal/chat"
	"yoga-studio/internal/infra/cache"
	"yoga-studio/internal/infra/gateway"
	"yoga-studio/internal/infra/mailer"
	"yoga-studio/internal/infra/metrics"
	"yoga-studio/internal/infra/queue"
	"yoga-studio/internal/infra/razorpay"
	"yoga-studio/internal/infra/stripe"
	"yoga-studio/internal/jobs"
	"yoga-studio/internal/lib/jwt"
	"yoga-studio/internal/logging"
	"yoga-studio/internal/repository"
	adminsvc "yoga-studio/internal/service/admin"
	authsvc "yoga-studio/internal/service/auth"
	classsvc "yoga-studio/internal/service/classes"
	communitysvc "yoga-studio/internal/service/community"
	contentsvc "yoga-studio/internal/service/content"
	goalsvc "yoga-studio/internal/service/goals"
	messagesvc "yoga-studio/internal/service/messages"
	"yoga-studio/internal/service/payments"
	"yoga-studio/internal/service/subscriptions"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	shutdownTimeout = 10 * time.Second
	authPerMinute   = 20
	authBurst       = 10
)

func main() {
	cfg := config.MustLoad()
	log := logging.New(cfg.Env, cfg.LogLevel)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	response.Configure(cfg.IsDevelopment(), log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBURL, cfg.IsDevelopment())
	if err != nil {
		log.WithError(err).Fatal("Database connection failed")
	}
	defer database.Close(db)
	store := repository.NewGormStore(db)

	m := metrics.New()
	gw := newGateway(cfg)

	var c cache.Cache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, caching disabled")
		} else {
			defer rc.Close()
			c = rc
		}
	}

	mail, closeMail := newMailer(cfg, log)
	defer closeMail()

	tokens := jwt.NewMaker(cfg.JWTSecret, cfg.JWTTTL)
	auth := authsvc.New(store, tokens, mail, m, log, authsvc.Options{OTPTTL: cfg.OTPTTL, AppURL: cfg.AppURL})
	classSvc := classsvc.New(store, mail, m, log, cfg.Currency)
	subSvc := subscriptions.New(store, gw, c, mail, m, log)
	paySvc := payments.New(store, gw, classSvc, subSvc, m, log)
	contentSvc := contentsvc.New(store, subSvc)
	goalSvc := goalsvc.New(store)
	messageSvc := messagesvc.New(store)
	communitySvc := communitysvc.New(store, log)
	adminSvc := adminsvc.New(store, c, log)

	hub := chat.NewHub(messageSvc, log, cfg.CORSOrigin)

	var google *authapi.Google
	if cfg.Google.Enabled() {
		google = authapi.NewGoogle(authapi.GoogleOptions{
			ClientID:         cfg.Google.ClientID,
			ClientSecret:     cfg.Google.ClientSecret,
			RedirectURL:      cfg.Google.RedirectURL,
			FrontendRedirect: cfg.Google.FrontendRedirect,
			SecureCookie:     !cfg.IsDevelopment(),
		}, log)
	}

	if err := routes.RegisterValidators(); err != nil {
		log.WithError(err).Fatal("Validator registration failed")
	}

	limiter := middleware.NewRateLimiter(authPerMinute, authBurst, log)

	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.RequestLogger(log), m.Middleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Booking-Reference"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	usersHandler := users.NewHandler(auth, subSvc, users.Activity{
		Classes:  classSvc,
		Payments: paySvc,
		Goals:    goalSvc,
	})

	routes.RegisterRoutes(r, routes.Handlers{
		Auth:      authapi.NewHandler(auth, google),
		Users:     usersHandler,
		Classes:   classesapi.NewHandler(classSvc),
		Billing:   billing.NewHandler(paySvc, subSvc),
		Plans:     plans.NewHandler(subSvc),
		Content:   contentapi.NewHandler(contentSvc),
		Goals:     goalsapi.NewHandler(goalSvc),
		Messages:  messagesapi.NewHandler(messageSvc, hub),
		Community: communityapi.NewHandler(communitySvc),
		Admin:     adminapi.NewHandler(adminSvc),
	}, routes.Options{
		Tokens:      tokens,
		Policies:    subSvc,
		Metrics:     m,
		AuthLimiter: limiter,
	})

	scheduler := jobs.New(m, log,
		jobs.Task{Name: "expire_subscriptions", Run: subSvc.ExpireDue},
		jobs.Task{Name: "sweep_classes", Run: func(ctx context.Context) (int64, error) {
			n, err := classSvc.SweepStatuses(ctx)
			return int64(n), err
		}},
		jobs.Task{Name: "rate_limiter_cleanup", Run: func(context.Context) (int64, error) {
			return int64(limiter.Cleanup()), nil
		}},
	)
	scheduler.RunAll(ctx)
	if err := scheduler.Schedule(jobs.DefaultSchedule); err != nil {
		log.WithError(err).Fatal("Job schedule rejected")
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Env, "provider": gw.Name()}).Info("Server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
	scheduler.Stop(shutdownCtx)
}

func newGateway(cfg *config.Config) gateway.Gateway {
	p := cfg.Payments
	if p.Provider == config.ProviderStripe {
		return stripe.New(p.StripeSecretKey, p.StripePublishableKey, p.StripeWebhookSecret)
	}
	return razorpay.New(p.RazorpayKeyID, p.RazorpayKeySecret, p.RazorpayWebhookSecret)
}

// newMailer prefers the queue, then direct SMTP, then the log.
func newMailer(cfg *config.Config, log *logrus.Logger) (mailer.Mailer, func()) {
	var direct mailer.Mailer = &mailer.Log{Logger: log}
	if cfg.SMTP.Host != "" {
		direct = &mailer.SMTP{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}
	}
	if cfg.Queue.URL != "" {
		pub, err := queue.Dial(cfg.Queue.URL, cfg.Queue.MailQueue)
		if err == nil {
			return &mailer.Queued{Publisher: pub, Fallback: direct, Logger: log}, func() { _ = pub.Close() }
		}
		log.WithError(err).Warn("Mail queue unavailable, sending directly")
	}
	return direct, func() {}
}
