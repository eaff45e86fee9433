package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"veritas/internal/audittrail"
	"veritas/internal/commerce"
	jwttoken "veritas/internal/jwt_token"
	"veritas/internal/platform/blobstore"
	"veritas/internal/platform/config"
	"veritas/internal/platform/kafka"
	httpmetrics "veritas/internal/platform/metrics"
	"veritas/internal/platform/postgres"
	"veritas/internal/platform/redis"
	profilehandler "veritas/internal/profile/handler"
	profilesvc "veritas/internal/profile/service"
	profilestore "veritas/internal/profile/store"
	"veritas/internal/profileimage"
	verificationhandler "veritas/internal/verification/handler"
	verificationmetrics "veritas/internal/verification/metrics"
	verificationsvc "veritas/internal/verification/service"
	"veritas/internal/verification/store/attempt"
	"veritas/internal/verification/store/checkpoint"
	"veritas/internal/verification/store/ledger"
	"veritas/internal/verification/store/skip"
	"veritas/internal/verification/store/statuscache"
	"veritas/internal/verification/store/window"
	"veritas/internal/verification/submission"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/audit"
	"veritas/pkg/platform/audit/archive"
	auditconsumer "veritas/pkg/platform/audit/consumer"
	"veritas/pkg/platform/audit/publishers/compliance"
	"veritas/pkg/platform/audit/publishers/ops"
	"veritas/pkg/platform/audit/publishers/security"
	auditmemory "veritas/pkg/platform/audit/store/memory"
	auditpg "veritas/pkg/platform/audit/store/postgres"
	"veritas/pkg/platform/audit/worker"
	"veritas/pkg/platform/circuit"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/platform/middleware/admin"
	"veritas/pkg/platform/middleware/auth"
	"veritas/pkg/platform/middleware/device"
	"veritas/pkg/platform/middleware/metadata"
	"veritas/pkg/platform/middleware/ratelimit"
	"veritas/pkg/platform/middleware/requesttime"
	"veritas/pkg/platform/middleware/version"
	txcontext "veritas/pkg/platform/tx"
)

type auditStore interface {
	audit.Store
	audit.Outbox
}

type auditArchive interface {
	auditconsumer.Archive
	audittrail.Reader
}

type application struct {
	router http.Handler
	log    *slog.Logger

	db       *sql.DB
	redis    *redis.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
	archiver *auditconsumer.Router
	security *security.Publisher
	outbox   audit.Outbox
	pollEach time.Duration
	limiter  *ratelimit.Window
	limitFor time.Duration
	secure   bool

	background *errgroup.Group
}

// stores groups the persistence chosen at startup: Postgres when
// DATABASE_URL is set, in-memory otherwise.
type stores struct {
	verification verificationsvc.Stores
	profiles     profilesvc.Store
	audit        auditStore
	archive      auditArchive
	tx           verificationsvc.TxRunner
}

func build(ctx context.Context, cfg config.Server, log *slog.Logger) (*application, error) {
	app := &application{log: log, pollEach: cfg.Kafka.PollInterval, secure: cfg.IsProduction()}

	st, err := app.openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.outbox = st.audit

	var cache verificationsvc.StatusCache
	app.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		app.Close()
		return nil, err
	}
	if app.redis != nil {
		cache = statuscache.NewRedisCache(app.redis.Client, cfg.Verification.StatusCacheTTL)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		app.producer, err = kafka.NewProducer(cfg.Kafka, log)
		if err != nil {
			app.Close()
			return nil, err
		}
		if err := app.producer.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			log.Warn("could not ensure audit topics", "topic", cfg.Kafka.AuditTopic, "error", err)
		}
		app.archiver = archiveRouter(cfg.Kafka, st.archive, log)
		app.consumer, err = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, app.archiver.Topics(), log)
		if err != nil {
			app.Close()
			return nil, err
		}
	}

	media, err := openMedia(cfg.Media)
	if err != nil {
		app.Close()
		return nil, err
	}

	auditor := compliance.New(st.audit,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics()),
	)
	tracker := ops.New(st.audit, ops.WithLogger(log), ops.WithMetrics(ops.NewMetrics()))
	app.security = security.New(st.audit, security.WithLogger(log))

	profileImages := profileimage.NewGenerator(media, cfg.ProfileImages.SecretKey)
	profiles := profilesvc.New(st.profiles,
		profilesvc.WithImages(profileImages, profileimage.Limits{
			MinBytes: cfg.ProfileImages.MinBytes,
			MaxBytes: cfg.ProfileImages.MaxBytes,
		}),
		profilesvc.WithAuditPublisher(auditor),
		profilesvc.WithLogger(log),
	)

	submitter, sealer, err := vendor(cfg, log, tracker)
	if err != nil {
		app.Close()
		return nil, err
	}
	opts := []verificationsvc.Option{
		verificationsvc.WithLogger(log),
		verificationsvc.WithMetrics(verificationmetrics.New()),
		verificationsvc.WithAuditPublisher(auditor),
		verificationsvc.WithTxRunner(st.tx),
		verificationsvc.WithValidity(cfg.Verification.Validity()),
		verificationsvc.WithPlatformName(cfg.Verification.PlatformName),
		verificationsvc.WithReviewingService(cfg.Verification.SoftwareSecure.ReviewingService),
	}
	if cache != nil {
		opts = append(opts, verificationsvc.WithStatusCache(cache))
	}
	if sealer != nil {
		opts = append(opts, verificationsvc.WithPhotoStorage(sealer, media))
	}
	verification := verificationsvc.New(st.verification, submitter, profiles, opts...)

	var commerceHandler *commerce.Handler
	if client, err := commerce.NewClient(cfg.Commerce.APIURL, cfg.Commerce.SigningKey, cfg.Commerce.Timeout,
		commerce.WithLogger(log)); err == nil {
		commerceHandler = commerce.NewHandler(client, profiles, log)
	} else {
		log.Warn("ecommerce API disabled", "error", err)
	}

	if cfg.RateLimit.Requests > 0 {
		app.limitFor = cfg.RateLimit.Window
		if app.limitFor <= 0 {
			app.limitFor = time.Minute
		}
		app.limiter = ratelimit.NewWindow(cfg.RateLimit.Requests, app.limitFor)
	}

	jwtValidator := jwttoken.NewJWTServiceAdapter(
		jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience),
	)

	app.router = app.routes(routes{
		verification: verificationhandler.New(verification, verificationhandler.CallbackKeys{
			AccessKey: cfg.Verification.SoftwareSecure.APIAccessKey,
			SecretKey: cfg.Verification.SoftwareSecure.APISecretKey,
		}, log, verificationhandler.WithSecurityEvents(app.security)),
		profiles:  profilehandler.New(profiles, log),
		commerce:  commerceHandler,
		trail:     audittrail.New(st.archive, log),
		validator: jwtValidator,
	})
	return app, nil
}

func (a *application) openStores(ctx context.Context, cfg config.Server) (stores, error) {
	if cfg.DatabaseURL == "" {
		a.log.Warn("DATABASE_URL not set, using in-memory stores")
		return stores{
			verification: verificationsvc.Stores{
				Attempts:    attempt.NewInMemory(),
				Windows:     window.NewInMemory(),
				Checkpoints: checkpoint.NewInMemory(),
				Ledger:      ledger.NewInMemory(),
				Skips:       skip.NewInMemory(),
			},
			profiles: profilestore.NewInMemory(),
			audit:    auditmemory.NewInMemoryStore(),
			archive:  archive.NewMemory(),
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return stores{}, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return stores{}, err
	}
	a.db = db
	return stores{
		verification: verificationsvc.Stores{
			Attempts:    attempt.NewPostgres(db),
			Windows:     window.NewPostgres(db),
			Checkpoints: checkpoint.NewPostgres(db),
			Ledger:      ledger.NewPostgres(db),
			Skips:       skip.NewPostgres(db),
		},
		profiles: profilestore.NewPostgres(db),
		audit:    auditpg.New(db),
		archive:  archive.NewPostgres(db),
		tx:       txcontext.NewRunner(db),
	}, nil
}

func openMedia(cfg config.Media) (blobstore.Storage, error) {
	if cfg.Backend == "oss" {
		store, err := blobstore.NewOSS(blobstore.OSSConfig(cfg.OSS))
		if err != nil {
			return nil, fmt.Errorf("open media bucket: %w", err)
		}
		return store, nil
	}
	if cfg.Dir == "" {
		return blobstore.NewMemory(cfg.BaseURL), nil
	}
	dir, err := blobstore.NewDir(cfg.Dir, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("open media dir: %w", err)
	}
	return dir, nil
}

// vendor builds the photo-verification client. Outside production a missing
// vendor configuration disables photo uploads and every submission fails
// into must_retry.
func vendor(cfg config.Server, log *slog.Logger, tracker submission.OpsTracker) (*submission.Client, *submission.Sealer, error) {
	ss := cfg.Verification.SoftwareSecure
	sealer, err := submission.NewSealer(ss.FaceImageAESKey, ss.RSAPublicKeyPEM)
	if err != nil {
		if cfg.IsProduction() {
			return nil, nil, fmt.Errorf("software secure keys: %w", err)
		}
		log.Warn("photo verification vendor not configured", "error", err)
		return submission.NewClient(unconfiguredTransport{}, unconfiguredKeys{}, ss.CallbackURL,
			submission.WithLogger(log),
			submission.WithOpsTracker(tracker),
		), nil, nil
	}

	breaker := circuit.New("software_secure",
		circuit.WithFailureThreshold(ss.FailureThreshold),
		circuit.WithCooldown(ss.Cooldown),
	)
	transport := submission.NewHTTPTransport(ss.APIURL, ss.APIAccessKey, ss.APISecretKey, ss.Timeout)
	client := submission.NewClient(transport, sealer, ss.CallbackURL,
		submission.WithLogger(log),
		submission.WithBreaker(breaker),
		submission.WithOpsTracker(tracker),
	)
	return client, sealer, nil
}

// archiveRouter consumes every audit topic back into the archive. Categories
// sharing the compliance topic are handled by the compliance handler.
func archiveRouter(cfg config.KafkaConfig, sink auditArchive, log *slog.Logger) *auditconsumer.Router {
	topics := kafka.Topics(cfg)
	router := auditconsumer.NewRouter(log, nil)
	router.Register(topics[audit.CategoryCompliance], auditconsumer.NewComplianceHandler(sink, log))
	if t := topics[audit.CategoryOperations]; t != topics[audit.CategoryCompliance] {
		router.Register(t, auditconsumer.NewOpsHandler(sink, log))
	}
	if t := topics[audit.CategorySecurity]; t != topics[audit.CategoryCompliance] {
		router.Register(t, auditconsumer.NewSecurityHandler(sink, log))
	}
	return router
}

var errVendorUnconfigured = errors.New("photo verification vendor is not configured")

type unconfiguredKeys struct{}

func (unconfiguredKeys) WrappedFaceKey() (string, error) { return "", errVendorUnconfigured }

type unconfiguredTransport struct{}

func (unconfiguredTransport) Post(context.Context, submission.Payload) (int, error) {
	return 0, errVendorUnconfigured
}

type routes struct {
	verification *verificationhandler.Handler
	profiles     *profilehandler.Handler
	commerce     *commerce.Handler
	trail        *audittrail.Handler
	validator    auth.JWTValidator
}

func (a *application) routes(h routes) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(metadata.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(device.Middleware(a.secure))
	r.Use(httpmetrics.NewHTTP().Middleware)

	r.Get("/health", a.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// The vendor authenticates with a signed request, not a bearer token.
	h.verification.RegisterCallback(r)

	r.Route("/v1", func(r chi.Router) {
		r.Use(version.ExtractVersion(id.APIVersionV1))
		r.Use(auth.RequireAuth(h.validator, a.log))
		r.Use(version.ValidateTokenVersion(a.log))
		if a.limiter != nil {
			r.Use(ratelimit.Middleware(a.limiter, a.log))
		}
		h.verification.Register(r)
		h.profiles.Register(r)
		if h.commerce != nil {
			h.commerce.Register(r)
		}

		r.Group(func(r chi.Router) {
			r.Use(admin.RequireStaff(a.log))
			h.verification.RegisterAdmin(r)
			h.trail.RegisterAdmin(r)
		})
	})
	return r
}

func (a *application) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	check := func(name string, err error) {
		if err != nil {
			healthy = false
			checks[name] = err.Error()
			return
		}
		checks[name] = "ok"
	}
	if a.db != nil {
		check("postgres", a.db.PingContext(ctx))
	}
	if a.redis != nil {
		check("redis", a.redis.Health(ctx))
	}
	if a.producer != nil {
		check("kafka", a.producer.Health(ctx))
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, map[string]any{"healthy": healthy, "checks": checks})
}

// startBackground launches the security event flusher, the rate limiter
// sweep when limiting is on, and the outbox relay and archive consumer when
// a broker is configured.
func (a *application) startBackground(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	a.background = g
	g.Go(func() error {
		if err := a.security.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("security event flusher stopped", "error", err)
		}
		return nil
	})
	if a.limiter != nil {
		g.Go(func() error {
			ticker := time.NewTicker(a.limitFor)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					a.limiter.Sweep()
				}
			}
		})
	}
	if a.producer == nil {
		a.log.Info("no kafka brokers configured, audit events stay in the outbox")
		return
	}
	relay := worker.NewWorker(a.outbox, a.producer,
		worker.WithLogger(a.log),
		worker.WithInterval(a.pollEach),
	)
	g.Go(func() error {
		if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("audit outbox relay stopped", "error", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := a.consumer.Run(gctx, a.archiver); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("audit archive consumer stopped", "error", err)
			return err
		}
		return nil
	})
}

func (a *application) wait() {
	if a.background != nil {
		_ = a.background.Wait()
	}
}

func (a *application) Close() {
	if a.consumer != nil {
		a.consumer.Close()
	}
	if a.producer != nil {
		a.producer.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
