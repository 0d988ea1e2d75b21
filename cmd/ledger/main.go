package main

import (
	"context"
	"log"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rewards-controlplane/internal/httpapi"
	"rewards-controlplane/pkg/config"
	"rewards-controlplane/pkg/db"
	"rewards-controlplane/pkg/health"
	"rewards-controlplane/pkg/logger"
	"rewards-controlplane/pkg/otelcol"
	"rewards-controlplane/pkg/otelcol/exporters"
	"rewards-controlplane/pkg/ratelimit"
	"rewards-controlplane/pkg/redis"
	"rewards-controlplane/pkg/sequence"
	"rewards-controlplane/pkg/server"
	"rewards-controlplane/pkg/task"
	"rewards-controlplane/services/event"
	"rewards-controlplane/services/ledger"
	"rewards-controlplane/services/member"
	"rewards-controlplane/services/promotion"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		sequence.Module,
		ratelimit.Module,
		task.Client,
		task.Server,
		fx.Provide(
			provideSnowflakeNode,
			provideTracerProvider,
			provideMeterProvider,
		),
		member.Module,
		promotion.Module,
		event.Module,
		ledger.Module,
		ledger.TaskModule,
		health.Module,
		httpapi.Module,
		server.ProvideHTTPServer,
		fx.Invoke(initTracing, migrate, db.Otel, registerDBMetrics),
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func provideTracerProvider() trace.TracerProvider {
	return otel.GetTracerProvider()
}

func provideMeterProvider() metric.MeterProvider {
	return otel.GetMeterProvider()
}

func initTracing(lc fx.Lifecycle, cfg *config.Config) error {
	if cfg.Otel.Addr == "" {
		return nil
	}

	exporter, err := exporters.ProvideGrpc(cfg)
	if cfg.Otel.Protocol == "http" {
		exporter, err = exporters.ProvideHttp(cfg)
	}
	if err != nil {
		return err
	}

	tp := otelcol.ProvideTrace(exporter)
	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return nil
}

func registerDBMetrics(conn *gorm.DB, cfg *config.Config) error {
	return db.Metric(conn, cfg.Database.DBNAME)
}

func migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&member.Member{},
		&promotion.Promotion{},
		&promotion.Usage{},
		&event.Event{},
		&event.Guest{},
		&ledger.Transaction{},
		&ledger.Balance{},
	)
}
