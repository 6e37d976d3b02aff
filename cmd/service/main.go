package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/cogmesh/internal/audit"
	"github.com/dropDatabas3/cogmesh/internal/authority"
	"github.com/dropDatabas3/cogmesh/internal/cache"
	"github.com/dropDatabas3/cogmesh/internal/compliance"
	"github.com/dropDatabas3/cogmesh/internal/config"
	"github.com/dropDatabas3/cogmesh/internal/consent"
	"github.com/dropDatabas3/cogmesh/internal/decision"
	httpserver "github.com/dropDatabas3/cogmesh/internal/http"
	authorityctrl "github.com/dropDatabas3/cogmesh/internal/http/controllers/authority"
	consentctrl "github.com/dropDatabas3/cogmesh/internal/http/controllers/consent"
	decisionctrl "github.com/dropDatabas3/cogmesh/internal/http/controllers/decision"
	healthctrl "github.com/dropDatabas3/cogmesh/internal/http/controllers/health"
	registryctrl "github.com/dropDatabas3/cogmesh/internal/http/controllers/registry"
	"github.com/dropDatabas3/cogmesh/internal/http/middlewares"
	"github.com/dropDatabas3/cogmesh/internal/http/router"
	"github.com/dropDatabas3/cogmesh/internal/intelligence"
	"github.com/dropDatabas3/cogmesh/internal/metrics"
	"github.com/dropDatabas3/cogmesh/internal/notify"
	"github.com/dropDatabas3/cogmesh/internal/observability/logger"
	"github.com/dropDatabas3/cogmesh/internal/registry"
	"github.com/dropDatabas3/cogmesh/internal/resilience"
	"github.com/dropDatabas3/cogmesh/internal/store"
)

func main() {
	// Cargar .env si existe; en prod todo viene del entorno.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}

	cfg, err := config.Load(os.Getenv("COGMESH_CONFIG"))
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "cogmesh"})
	defer func() { _ = logger.Sync() }()
	lg := logger.L().With(logger.Component("main"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ------- Store y cache -------
	repo, err := store.New(ctx, cfg)
	if err != nil {
		lg.Fatal("store init failed", logger.Err(err))
	}
	defer repo.Close()

	cacheClient, err := cache.New(cache.Config{
		Kind:     cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		lg.Fatal("cache init failed", logger.Err(err))
	}
	defer cacheClient.Close()

	// ------- Resiliencia por servicio -------
	execOpts := resilience.Options{
		MaxRetries:     cfg.Resilience.MaxRetries,
		BaseDelay:      cfg.ResilienceBaseDelay(),
		MaxDelay:       cfg.ResilienceMaxDelay(),
		FailurePercent: cfg.Resilience.FailureThreshold,
		OpenFor:        cfg.ResilienceOpenFor(),
	}
	authorityExec := resilience.New("authority", execOpts)
	consentExec := resilience.New("consent", execOpts)
	registryExec := resilience.New("registry", execOpts)

	// ------- Métricas -------
	metrics.Register(prometheus.DefaultRegisterer)
	prometheus.DefaultRegisterer.MustRegister(
		metrics.NewBreakerCollector(authorityExec, consentExec, registryExec))
	metricsHandler := httpserver.RegisterMetrics(prometheus.DefaultRegisterer)

	// ------- Services -------
	trail := audit.NewTrail(repo)

	authoritySvc := authority.NewService(authority.Deps{
		Repo:               repo,
		Exec:               authorityExec,
		Cache:              cacheClient,
		Trail:              trail,
		ScopeTTL:           cfg.ScopeCacheTTL(),
		DefaultOverrideTTL: cfg.OverrideDefaultTTL(),
	})
	consentSvc := consent.NewService(consent.Deps{
		Repo:                repo,
		Exec:                consentExec,
		Trail:               trail,
		DefaultEmergencyTTL: cfg.EmergencyTTL(),
	})
	registrySvc := registry.NewService(registry.Deps{
		Repo:  repo,
		Exec:  registryExec,
		Trail: trail,
	})
	complianceSvc := compliance.NewService(compliance.Deps{})

	var llm intelligence.LLMClient
	if cfg.LLM.APIKey != "" {
		llm, err = intelligence.NewOpenAIClient(intelligence.OpenAIConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		})
		if err != nil {
			lg.Fatal("llm init failed", logger.Err(err))
		}
	} else {
		lg.Warn("OPENAI_API_KEY not set, intelligence endpoints disabled")
	}
	intelligenceSvc := intelligence.NewService(intelligence.Deps{LLM: llm})

	var notifier notify.Notifier = notify.Noop{}
	if cfg.SMTP.Host != "" && cfg.SMTP.EscalationTo != "" {
		smtp := notify.NewSMTPNotifier(cfg.SMTP.Host, cfg.SMTP.Port,
			cfg.SMTP.FromEmail, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.EscalationTo)
		smtp.TLSMode = cfg.SMTP.TLSMode
		notifier = smtp
	}

	decisionSvc := decision.NewService(decision.Deps{
		Authority:  authoritySvc,
		Consent:    consentSvc,
		Compliance: complianceSvc,
		LLM:        llm,
		Notifier:   notifier,
	})

	// ------- HTTP -------
	handler := router.New(router.Deps{
		Health:    healthctrl.NewController(repo, cacheClient),
		Authority: authorityctrl.NewController(authoritySvc),
		Consent:   consentctrl.NewController(consentSvc),
		Registry:  registryctrl.NewController(registrySvc),
		Decision:  decisionctrl.NewController(decisionSvc, complianceSvc, intelligenceSvc),
		Auth:      middlewares.WithAuth(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Metrics:   metricsHandler,
	})

	srv := httpserver.NewServer(httpserver.ServerConfig{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.ServerReadTimeout(),
		WriteTimeout: cfg.ServerWriteTimeout(),
	}, handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("server listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down")
		return httpserver.Shutdown(srv, 10*time.Second)
	})

	if err := g.Wait(); err != nil {
		lg.Fatal("server failed", logger.Err(err))
	}
	lg.Info("bye")
}
