// Package server assembles the lootshop auth service: storage, collaborators,
// the auth workflow and its HTTP transport, and runs it until a shutdown
// signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/logging"
	"github.com/dmitrijs2005/lootshop/internal/netx"
	"github.com/dmitrijs2005/lootshop/internal/server/admin"
	"github.com/dmitrijs2005/lootshop/internal/server/auth"
	"github.com/dmitrijs2005/lootshop/internal/server/config"
	"github.com/dmitrijs2005/lootshop/internal/server/httpapi"
	"github.com/dmitrijs2005/lootshop/internal/server/identity"
	"github.com/dmitrijs2005/lootshop/internal/server/notify"
	"github.com/dmitrijs2005/lootshop/internal/server/otp"
	"github.com/dmitrijs2005/lootshop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/lootshop/internal/server/services"
	"github.com/dmitrijs2005/lootshop/internal/timex"
	"github.com/redis/go-redis/v9"
)

const outboundTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   *redis.Client
	handler http.Handler
}

// NewApp connects storage, runs migrations and builds the HTTP handler.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	var limiter httpapi.Counter
	if c.RedisURI != "" {
		rdb, err := connectRedis(ctx, c.RedisURI)
		if err != nil {
			// The limiter fails open, so a Redis outage only disables it.
			logger.Warn(ctx, "redis unavailable, rate limiting degraded", "error", err)
		}
		if rdb != nil {
			app.redis = rdb
			limiter = httpapi.NewRedisCounter(rdb)
		}
	}

	authorizer, err := admin.NewAuthorizer(admin.Tiers{
		Super:   c.SuperAdmins,
		Manager: c.Managers,
		Basic:   c.BasicAdmins,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("admin tiers: %w", err)
	}

	notifier, err := newNotifier(ctx, c, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	svc := services.NewAuthService(db, rm, services.Dependencies{
		Identity:   newIdentityProvider(c),
		Notifier:   notifier,
		OTP:        otp.NewGenerator(c.OTPTTL, timex.UTCNow),
		Tokens:     auth.NewIssuer(c.SecretKey, c.TokenIssuer, c.TokenAudience, c.SessionTTL),
		Authorizer: authorizer,
		BcryptCost: c.BcryptCost,
		Now:        timex.UTCNow,
		Log:        logger,
	})

	app.handler = httpapi.NewRouter(httpapi.RouterConfig{
		Service:         svc,
		Cookie:          httpapi.CookieConfig{Name: c.CookieName, Secure: c.SecureCookie},
		CORSOrigins:     c.CORSOrigins,
		Limiter:         limiter,
		RateLimitMax:    c.RateLimitMax,
		RateLimitWindow: c.RateLimitWindow,
		Now:             timex.UTCNow,
		Logger:          logger,
	})

	return app, nil
}

func connectRedis(ctx context.Context, uri string) (*redis.Client, error) {
	opt, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("redis uri: %w", err)
	}
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return rdb, err
	}
	return rdb, nil
}

func newIdentityProvider(c *config.Config) identity.Provider {
	if c.IdentityBaseURL == "" {
		return identity.NoopProvider{}
	}
	return identity.NewHTTPProvider(netx.NewClient(outboundTimeout), c.IdentityBaseURL, c.IdentityServiceKey)
}

func newNotifier(ctx context.Context, c *config.Config, l logging.Logger) (notify.Notifier, error) {
	if c.MailAPIKey == "" {
		l.Warn(ctx, "no mail API key configured, emails are written to stdout")
		return notify.NewLogNotifier(os.Stdout, l), nil
	}

	var source notify.TemplateSource = notify.EmbeddedSource{}
	if c.TemplateBucket != "" {
		s3src, err := notify.NewS3Source(ctx, notify.S3Config{
			Bucket:       c.TemplateBucket,
			Prefix:       c.TemplatePrefix,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
		}, source, l)
		if err != nil {
			return nil, fmt.Errorf("template source: %w", err)
		}
		source = s3src
	}

	return notify.NewMailNotifier(netx.NewClient(outboundTimeout), c.MailBaseURL, c.MailAPIKey, c.MailFrom, source), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.HTTPAddr, app.logger, app.handler)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a shutdown signal, then releases storage.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.Close()
	app.logger.Info(ctx, "App stopped")
}

// Close releases the database and Redis connections.
func (app *App) Close() {
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
