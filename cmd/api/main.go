package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"voiceagent-platform/internal/access"
	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/audit"
	"voiceagent-platform/internal/auth"
	"voiceagent-platform/internal/billing"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/campaigns"
	"voiceagent-platform/internal/config"
	"voiceagent-platform/internal/numbers"
	"voiceagent-platform/internal/orgs"
	"voiceagent-platform/internal/reporting"
	"voiceagent-platform/internal/telephony"
	"voiceagent-platform/pkg/logger"
	"voiceagent-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dotenv, err := config.LoadDotEnv()
	if err != nil {
		slog.Error("env file load failed", "err", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)
	if dotenv {
		log.Debug("loaded .env file")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis only backs the subscription cache; the service runs without it.
	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
		if err != nil {
			log.Warn("redis unavailable, subscription cache disabled", "err", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	d := buildDeps(cfg, db, rdb, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerPublicRoutes(r, d)
	registerProtectedRoutes(r, d, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// A scan paces dial attempts, so the cron request can run for a while.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	if d.scanner.Dialer.Configured() {
		d.ticker.Start(rootCtx)
	} else if cfg.Scanner.Interval > 0 {
		log.Warn("campaign ticker not started, call provider api key not set")
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "access_policy", cfg.Access.Policy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := d.ticker.Stop(shutdownCtx); err != nil {
		log.Error("campaign ticker stop failed", "err", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

type deps struct {
	db *sql.DB

	adminEmails map[string]bool
	cronSecret  string

	scanner  *campaigns.Scanner
	ticker   *campaigns.Ticker
	gate     *access.Gate

	orgs      *orgs.PostgresRepo
	campaigns *campaigns.PostgresRepo
	calls     *calls.PostgresRepo
	reports   *reporting.Service
	audit     *audit.Service

	stripeWebhook  billing.WebhookHandler
	providerSecret string
}

func buildDeps(cfg config.Config, db *sql.DB, rdb *redis.Client, log *slog.Logger) deps {
	orgRepo := orgs.NewPostgresRepo(db)
	agentRepo := agents.NewPostgresRepo(db)
	numberRepo := numbers.NewPostgresRepo(db)
	campaignRepo := campaigns.NewPostgresRepo(db)
	callRepo := calls.NewPostgresRepo(db)

	provider := telephony.NewVapiProvider(cfg.Provider.APIKey, cfg.Provider.BaseURL)
	if !provider.Configured() {
		log.Warn("call provider api key not set, campaign scans will be refused")
	}

	dialer := &campaigns.Dialer{
		Provider: provider,
		Calls:    callRepo,
		Numbers:  numberRepo,
		Contacts: campaignRepo,
	}
	scanner := &campaigns.Scanner{
		Campaigns:     campaignRepo,
		Agents:        agentRepo,
		Organizations: orgRepo,
		Numbers:       numberRepo,
		Dialer:        dialer,
		Pacing:        cfg.Scanner.Pacing,
	}

	var cache billing.Cache
	if rdb != nil {
		cache = utils.RedisCache{Client: rdb}
	}

	policy, _ := access.ParsePolicy(cfg.Access.Policy)
	gate := &access.Gate{
		Policy:        policy,
		Resolver:      access.Resolver{Agents: agentRepo, Numbers: numberRepo},
		Organizations: orgRepo,
		StarterBlocked: func(o orgs.Organization) bool {
			return cfg.Access.StarterBlockedOrgs[o.ID]
		},
	}
	var recheck access.SubscriptionChecker
	if subs := billing.NewStripeSubscriptions(cfg.Stripe.SecretKey, nil); subs != nil {
		recheck = subs
		gate.Subscriptions = subs
		if cache != nil {
			gate.Subscriptions = &billing.CachedSubscriptions{Next: subs, Cache: cache, TTL: cfg.Stripe.CacheTTL}
		}
	} else if policy == access.PolicyStrict {
		log.Warn("stripe key not set, strict paid-plan checks will deny")
	}

	return deps{
		db:          db,
		adminEmails: cfg.Auth.AdminEmails,
		cronSecret:  cfg.Scanner.CronSecret,
		scanner:     scanner,
		ticker:      campaigns.NewTicker(scanner, cfg.Scanner.Interval, log),
		gate:        gate,
		orgs:        orgRepo,
		campaigns:   campaignRepo,
		calls:       callRepo,
		reports:     reporting.NewService(callRepo, campaignRepo),
		audit:       audit.NewService(audit.NewPostgresRepo(db)),
		stripeWebhook: billing.WebhookHandler{
			Secret: cfg.Stripe.WebhookSecret,
			Plans:         orgRepo,
			Subscriptions: recheck,
			Cache:         cache,
			TTL:           cfg.Stripe.CacheTTL,
		},
		providerSecret: cfg.Provider.WebhookSecret,
	}
}
