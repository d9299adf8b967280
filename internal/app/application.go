// Package app wires configuration, storage and services into a running
// portal process.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/applywizz/portal/internal/admin"
	"github.com/applywizz/portal/internal/app/system"
	"github.com/applywizz/portal/internal/applywizz"
	"github.com/applywizz/portal/internal/auth"
	"github.com/applywizz/portal/internal/checkout"
	"github.com/applywizz/portal/internal/config"
	svcerrors "github.com/applywizz/portal/internal/errors"
	"github.com/applywizz/portal/internal/httpapi"
	"github.com/applywizz/portal/internal/metrics"
	"github.com/applywizz/portal/internal/objectstore"
	"github.com/applywizz/portal/internal/onboarding"
	"github.com/applywizz/portal/internal/otp"
	"github.com/applywizz/portal/internal/storage"
	"github.com/applywizz/portal/internal/supabase"
	"github.com/applywizz/portal/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Application ties the portal services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	http    *httpService
	closers []io.Closer
	log     *logger.Logger

	Store      storage.Store
	Admin      *admin.Service
	Checkout   *checkout.Service
	Onboarding *onboarding.Service
	Sessions   *auth.SessionManager
	Handler    *httpapi.Server
}

// New builds the application from cfg. Connections opened here are closed
// by Shutdown.
func New(ctx context.Context, cfg *config.Config, version string, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	cat, err := config.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	var sb *supabase.Client
	if cfg.Supabase.URL != "" && cfg.Supabase.ServiceKey != "" {
		sb, err = supabase.New(supabase.Config{URL: cfg.Supabase.URL, APIKey: cfg.Supabase.ServiceKey})
		if err != nil {
			return nil, fmt.Errorf("supabase client: %w", err)
		}
	}

	store, closers, err := buildStore(ctx, cfg, sb, log.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("configure store: %w", err)
	}
	a := &Application{manager: system.NewManager(), closers: closers, log: log, Store: store}

	m := metrics.New("portal")
	a.Sessions = auth.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL, store, store, log.Named("auth"))
	a.Admin = admin.New(store, a.Sessions, auth.NewHasher(cfg.Session.BcryptCost), cat, log.Named("admin"))

	var channel otp.Invoker = unconfiguredFunctions{}
	if fnClient := functionsClient(cfg, sb); fnClient != nil {
		channel = fnClient.Functions()
	} else {
		log.Warn("SUPABASE_URL not set; OTP delivery is disabled")
	}
	a.Checkout = checkout.NewService(
		otp.New(channel, log.Named("otp")),
		checkout.NewVerifier(cfg.Session.Secret, cfg.Session.OTPTokenTTL),
		a.Admin, cat, log.Named("checkout"),
	)

	uploader, err := buildUploader(cfg, sb, log.Named("objectstore"))
	if err != nil {
		closeAll(closers, log)
		return nil, err
	}
	resumes := meteredResumes{Resumes: objectstore.NewResumes(uploader, log.Named("resumes")), metrics: m}
	api := applywizz.New(applywizz.Config{URL: cfg.OnboardingAPIURL}, log.Named("applywizz"))
	a.Onboarding = onboarding.NewService(store, resumes, api, cat, log.Named("onboarding"))

	a.Handler = httpapi.NewServer(httpapi.Deps{
		Checkout:       a.Checkout,
		Admin:          a.Admin,
		Onboarding:     a.Onboarding,
		Sessions:       a.Sessions,
		Storage:        resumes,
		Catalog:        cat,
		Metrics:        m,
		Logger:         log.Named("http"),
		AllowedOrigins: cfg.AllowedOrigins(),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		StorageTarget:  uploader.Target(),
		Version:        version,
	})
	a.http = newHTTPService(cfg.HTTPAddr, a.Handler, log.Named("http"))

	if err := a.registerServices(cfg); err != nil {
		closeAll(closers, log)
		return nil, err
	}

	created, err := a.Admin.EnsureBootstrapAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
	if err != nil {
		closeAll(closers, log)
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		log.WithField("email", cfg.BootstrapAdminEmail).Info("bootstrap admin created")
	}
	return a, nil
}

func (a *Application) registerServices(cfg *config.Config) error {
	sched := NewScheduler(a.log.Named("scheduler"))
	// redis expires session keys itself
	if cfg.Redis.Addr == "" {
		if err := sched.Add("purge-sessions", "@every 15m", time.Minute, func(ctx context.Context) error {
			_, err := a.Sessions.PurgeExpired(ctx)
			return err
		}); err != nil {
			return err
		}
	}

	services := []system.Service{
		sched,
		&loopService{name: "ratelimit-cleanup", fn: func(ctx context.Context) {
			a.Handler.StartCleanup(ctx, 5*time.Minute)
		}},
		a.http,
	}
	for _, svc := range services {
		if err := a.manager.Register(svc); err != nil {
			return fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}
	return nil
}

// Run starts every service and blocks until ctx is cancelled or the HTTP
// server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.manager.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return nil
	case err := <-a.http.errs:
		return fmt.Errorf("http server: %w", err)
	}
}

// Shutdown stops services in reverse start order, then closes connections.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := a.manager.Stop(shutdownCtx)
	closeAll(a.closers, a.log)
	a.closers = nil
	return err
}

func functionsClient(cfg *config.Config, sb *supabase.Client) *supabase.Client {
	if cfg.Supabase.URL == "" {
		return nil
	}
	if cfg.Supabase.AnonKey != "" {
		c, err := supabase.New(supabase.Config{URL: cfg.Supabase.URL, APIKey: cfg.Supabase.AnonKey})
		if err == nil {
			return c
		}
	}
	return sb
}

func buildUploader(cfg *config.Config, sb *supabase.Client, log *logger.Logger) (objectstore.Uploader, error) {
	switch cfg.ObjectStore {
	case config.ObjectStoreS3:
		return objectstore.NewS3Uploader(objectstore.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Bucket:          cfg.AWS.Bucket,
			Endpoint:        cfg.AWS.Endpoint,
		}, log), nil
	case config.ObjectStoreSupabase:
		if sb == nil {
			return nil, errors.New("supabase object store requires SUPABASE_URL and SUPABASE_SERVICE_KEY")
		}
		return objectstore.NewSupabaseUploader(sb, cfg.Supabase.StorageBucket), nil
	default:
		return nil, fmt.Errorf("unknown object store %q", cfg.ObjectStore)
	}
}

// meteredResumes counts resume uploads.
type meteredResumes struct {
	*objectstore.Resumes
	metrics *metrics.Metrics
}

func (r meteredResumes) Upload(ctx context.Context, f *objectstore.File, jbID string) (string, error) {
	key, err := r.Resumes.Upload(ctx, f, jbID)
	r.metrics.RecordResumeUpload(err)
	return key, err
}

// unconfiguredFunctions stands in for the edge functions when no Supabase
// project is configured.
type unconfiguredFunctions struct{}

func (unconfiguredFunctions) Invoke(context.Context, string, any, any) error {
	return svcerrors.Config("OTP service is not configured")
}
