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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	jwttoken "satvault/internal/jwt_token"
	"satvault/internal/ledger"
	"satvault/internal/platform/config"
	"satvault/internal/platform/httpserver"
	"satvault/internal/platform/kafka"
	"satvault/internal/platform/logger"
	"satvault/internal/platform/metrics"
	"satvault/internal/platform/postgres"
	redisclient "satvault/internal/platform/redis"
	"satvault/internal/sealing"
	"satvault/internal/vault/activitylog"
	"satvault/internal/vault/handler"
	"satvault/internal/vault/messages"
	"satvault/internal/vault/service"
	"satvault/internal/vault/store/activity"
	"satvault/internal/vault/store/message"
	"satvault/internal/vault/store/profile"
	vaultstore "satvault/internal/vault/store/vault"
	"satvault/internal/vault/trigger"
	"satvault/pkg/platform/circuit"
	"satvault/pkg/platform/httputil"
	"satvault/pkg/platform/middleware/device"
	"satvault/pkg/platform/middleware/metadata"
	"satvault/pkg/platform/middleware/requesttime"
)

// main wires infrastructure into the vault service, starts the transfer
// trigger and the event publisher, and serves HTTP until SIGINT/SIGTERM.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("satvault exited with error", "error", err)
		os.Exit(1)
	}
}

type infra struct {
	db       *sql.DB
	redis    *redisclient.Client
	producer *kafka.Producer
}

func (i *infra) close() {
	if i.producer != nil {
		i.producer.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

func connect(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return in, err
	}
	if db != nil {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return in, err
		}
		in.db = db
		log.Info("using postgres stores")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	if in.redis, err = redisclient.New(ctx, cfg.Redis); err != nil {
		return in, err
	}

	if in.producer, err = kafka.NewProducer(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
		return in, err
	}
	if in.producer != nil {
		if err := in.producer.EnsureTopic(ctx, 6, 1); err != nil {
			log.Warn("could not ensure activity topic", "topic", cfg.Kafka.Topic, "error", err)
		}
	}
	return in, nil
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	in, err := connect(ctx, cfg, log)
	defer in.close()
	if err != nil {
		return err
	}

	var (
		vaults   vaultstore.Store
		entries  activitylog.Store
		msgStore messages.Store
		profiles service.ProfileStore
		tx       service.Tx
	)
	if in.db != nil {
		vaults = vaultstore.NewPostgres(in.db)
		entries = activity.NewPostgres(in.db)
		msgStore = message.NewPostgres(in.db)
		tx = newVaultPostgresTx(in.db)
	} else {
		vaults = vaultstore.NewInMemory()
		entries = activity.NewInMemory()
		msgStore = message.NewInMemory()
		tx = service.NewShardedTx()
	}
	if in.redis != nil {
		profiles = profile.NewRedis(in.redis.Client)
	} else {
		profiles = profile.NewInMemory()
	}

	g, ctx := errgroup.WithContext(ctx)

	logOpts := []activitylog.Option{activitylog.WithLogger(log)}
	if in.producer != nil {
		sink := activitylog.NewAsyncSink(in.producer, 4096, log)
		logOpts = append(logOpts, activitylog.WithEventSink(sink))
		g.Go(func() error {
			if err := sink.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	activityLog := activitylog.New(entries, vaults, logOpts...)
	msgs := messages.New(msgStore, vaults, activityLog, messages.WithLogger(log))

	svc := service.New(vaults, activityLog, msgs, profiles,
		service.WithTx(tx),
		service.WithMetrics(metrics.New(prometheus.DefaultRegisterer)),
		service.WithSealer(sealing.New()),
		service.WithLogger(log),
	)

	transfers := trigger.New(vaults, activityLog, newLedgerClient(cfg.Ledger, log),
		trigger.WithTx(tx),
		trigger.WithConfig(trigger.Config{
			TickInterval:   cfg.Trigger.TickInterval,
			Concurrency:    cfg.Trigger.Concurrency,
			RetryInitial:   cfg.Trigger.RetryInitial,
			RetryMax:       cfg.Trigger.RetryMax,
			LeaseTTL:       cfg.Trigger.LeaseTTL,
			AttemptTimeout: cfg.Trigger.AttemptTimeout,
		}),
		trigger.WithLeaser(newLeaser(in)),
		trigger.WithMetrics(trigger.NewMetrics(prometheus.DefaultRegisterer)),
		trigger.WithLogger(log),
	)
	g.Go(func() error {
		return transfers.Run(ctx)
	})

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	router := newRouter(in, handler.New(svc, log, jwttoken.NewJWTServiceAdapter(jwtService)))
	srv := httpserver.New(cfg.Server.Addr, router)

	g.Go(func() error {
		log.Info("starting satvault", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLedgerClient(cfg config.LedgerConfig, log *slog.Logger) ledger.Client {
	if cfg.URL == "" {
		log.Warn("LEDGER_URL not set, using in-process ledger simulator")
		return ledger.NewMemory()
	}
	breaker := circuit.New("ledger",
		circuit.WithFailureThreshold(cfg.FailureThreshold),
		circuit.WithCooldown(cfg.Cooldown),
	)
	return ledger.NewHTTPClient(cfg.URL, cfg.Timeout,
		ledger.WithBreaker(breaker),
		ledger.WithLogger(log),
	)
}

func newLeaser(in *infra) trigger.Leaser {
	if in.redis != nil {
		return trigger.NewRedisLeaser(in.redis.Client)
	}
	return trigger.NewMemoryLeaser()
}

func newRouter(in *infra, vaults *handler.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(metadata.ClientMetadata)
	r.Use(device.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		checks := map[string]string{}
		healthy := true
		record := func(name string, err error) {
			if err != nil {
				healthy = false
				checks[name] = err.Error()
				return
			}
			checks[name] = "ok"
		}
		if in.db != nil {
			record("postgres", in.db.PingContext(ctx))
		}
		if in.redis != nil {
			record("redis", in.redis.Health(ctx))
		}
		if in.producer != nil {
			record("kafka", in.producer.Health(ctx))
		}
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, map[string]any{"healthy": healthy, "checks": checks})
	})
	r.Handle("/metrics", promhttp.Handler())

	vaults.Register(r)
	return r
}
