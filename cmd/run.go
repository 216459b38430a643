package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/jmehdipour/reminder-dispatch/internal/calendar"
	"github.com/jmehdipour/reminder-dispatch/internal/config"
	"github.com/jmehdipour/reminder-dispatch/internal/db"
	"github.com/jmehdipour/reminder-dispatch/internal/eligibility"
	"github.com/jmehdipour/reminder-dispatch/internal/kafka"
	"github.com/jmehdipour/reminder-dispatch/internal/lock"
	"github.com/jmehdipour/reminder-dispatch/internal/logger"
	"github.com/jmehdipour/reminder-dispatch/internal/metrics"
	"github.com/jmehdipour/reminder-dispatch/internal/push"
	"github.com/jmehdipour/reminder-dispatch/internal/repository"
	"github.com/jmehdipour/reminder-dispatch/internal/service/reminder"
	"github.com/jmehdipour/reminder-dispatch/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type recipientStore interface {
	reminder.Source
	worker.Store
}

func runReminders(cmd *cobra.Command, _ []string) error {
	// 1) load config
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dryRun {
		cfg.Reminders.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zones, err := calendar.NewZones(cfg.Reminders.ReferenceZone)
	if err != nil {
		return err
	}

	// 2) firebase app (RTDB store and/or FCM)
	var app *firebase.App
	if cfg.NeedsFirebase() {
		app, err = db.NewFirebaseApp(ctx, db.FirebaseOpts{
			CredentialsFile: cfg.Firebase.CredentialsFile,
			DatabaseURL:     cfg.Firebase.DatabaseURL,
		})
		if err != nil {
			return err
		}
	}

	// 3) store + primary audit
	store, audit, closeStore, err := openStore(ctx, cfg, app, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// 4) audit mirrors (best effort)
	mirrors, closeMirrors := openMirrors(cfg, log)
	defer closeMirrors()

	// 5) providers → dispatcher
	transport, err := buildTransport(ctx, cfg, app, log)
	if err != nil {
		return err
	}

	policy, err := worker.ParsePolicy(cfg.Reminders.DeliveryPolicy)
	if err != nil {
		return err
	}
	coord := worker.NewCoordinator(store, transport, repository.NewTeeRecorder(audit, log, mirrors...), log)
	coord.Policy = policy
	if cfg.Reminders.Concurrency > 0 {
		coord.Concurrency = cfg.Reminders.Concurrency
	}

	svc := reminder.New(store, eligibility.NewResolver(zones, log), coord, zones, log)
	svc.DryRun = cfg.Reminders.DryRun

	// 6) optional run lock
	if cfg.Redis.Enabled {
		rdb, err := db.NewRedisClient(db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer rdb.Close()
		svc.Lock = lock.NewRedisLock(rdb, cfg.Redis.LockKey, cfg.Redis.LockTTL)
	}

	if _, err := svc.Run(ctx); err != nil {
		log.Error("fatal error", zap.Error(err))
		return err
	}

	if url := strings.TrimSpace(cfg.Metrics.PushgatewayURL); url != "" {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := metrics.Push(pctx, url, cfg.Metrics.Job, reg); err != nil {
			log.Warn("push metrics failed", zap.Error(err))
		}
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, app *firebase.App, log *zap.Logger) (recipientStore, repository.Recorder, func(), error) {
	switch cfg.Store.Backend {
	case repository.BackendFirebase:
		client, err := app.Database(ctx)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("firebase database: %w", err)
		}
		repo := repository.NewFirebaseRepository(repository.NewRTDBTree(client), log)
		return repo, repo, func() {}, nil

	case repository.BackendMySQL:
		dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("mysql connect: %w", err)
		}
		return repository.NewRecipientsRepository(dbx), repository.NewAuditRepository(dbx), func() { _ = dbx.Close() }, nil
	}
	return nil, nil, nil, fmt.Errorf("%w: %q", repository.ErrUnknownBackend, cfg.Store.Backend)
}

// openMirrors connects the analytics copies of the audit log. A mirror that
// cannot connect is skipped; it never blocks the run.
func openMirrors(cfg config.Config, log *zap.Logger) ([]repository.Recorder, func()) {
	var (
		mirrors []repository.Recorder
		closers []func()
	)

	if cfg.ClickHouse.Enabled {
		ch, err := db.NewClickHouseConnection(db.ClickHouseOpts{
			DSN:             cfg.ClickHouse.DSN,
			MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
			MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
			ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
			PingTimeout:     cfg.ClickHouse.PingTimeout,
		})
		if err != nil {
			log.Warn("clickhouse mirror disabled", zap.Error(err))
		} else {
			mirrors = append(mirrors, repository.NewNotificationLogRepository(ch))
			closers = append(closers, func() { _ = ch.Close() })
		}
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducerFromConfig(kafka.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		})
		mirrors = append(mirrors, repository.NewOutcomeStream(producer))
		closers = append(closers, func() {
			if err := producer.Close(); err != nil {
				log.Warn("kafka producer close", zap.Error(err))
			}
		})
	}

	return mirrors, func() {
		for _, c := range closers {
			c()
		}
	}
}

func buildTransport(ctx context.Context, cfg config.Config, app *firebase.App, log *zap.Logger) (*push.Dispatcher, error) {
	var provs []push.Provider
	if cfg.Push.FCM.Enabled {
		client, err := app.Messaging(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase messaging: %w", err)
		}
		provs = append(provs, push.NewFCMProvider(client, push.FCMOpts{
			Name:          "fcm",
			MaxBatch:      cfg.Push.FCM.MaxBatch,
			FailThreshold: cfg.Push.FCM.Breaker.FailThreshold,
			OpenForMs:     cfg.Push.FCM.Breaker.OpenForMs,
		}))
	}
	for _, pc := range cfg.Push.Providers {
		if !pc.Enabled || strings.TrimSpace(pc.BaseURL) == "" {
			continue
		}
		provs = append(provs, push.NewHTTPProvider(push.HTTPOpts{
			Name:          pc.Name,
			BaseURL:       strings.TrimRight(pc.BaseURL, "/"),
			Path:          pc.Path,
			APIKey:        pc.APIKey,
			TimeoutMs:     pc.TimeoutMs,
			MaxBatch:      pc.MaxBatch,
			FailThreshold: pc.Breaker.FailThreshold,
			OpenForMs:     pc.Breaker.OpenForMs,
		}))
	}
	return push.NewDispatcher(provs, cfg.Push.MaxAttempts, log)
}
