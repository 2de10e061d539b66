package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/opencadastre/cadastre/internal/config"
	"github.com/opencadastre/cadastre/internal/domain"
	"github.com/opencadastre/cadastre/internal/infra/providers"
	"github.com/opencadastre/cadastre/internal/infra/telemetry"
	"github.com/opencadastre/cadastre/internal/present/rest"
	restmiddleware "github.com/opencadastre/cadastre/internal/present/rest/middleware"
	"github.com/opencadastre/cadastre/internal/service"
)

func main() {
	configPath := flag.String("c", "/etc/cadastre/config.yaml", "path to config file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config",
			slog.String("error", err.Error()),
			slog.String("module", "main"),
		)
		os.Exit(1)
	}

	ctx := context.Background()

	if conf.Server.EnableTrace {
		shutdown, err := telemetry.Setup(ctx, "cadastred", conf.Server.TraceEndpoint)
		if err != nil {
			slog.Error("failed to set up tracing",
				slog.String("error", err.Error()),
				slog.String("module", "main"),
			)
			os.Exit(1)
		}
		defer shutdown(ctx)
	}

	db, err := providers.NewDatabase(conf.Server)
	if err != nil {
		panic("failed to connect database")
	}

	err = providers.MigrateDatabase(db)
	if err != nil {
		panic("failed to migrate database")
	}

	rdb := providers.NewRedis(conf.Server)
	mc := providers.NewMemcache(conf.Server.MemcachedAddr)

	domainConf := domain.Config{
		FQDN:       conf.NodeInfo.FQDN,
		PrivateKey: conf.NodeInfo.PrivateKey,
		Admin:      conf.NodeInfo.Admin,
	}

	clock := service.NewClockService(rdb)
	signal := service.NewSignalService(rdb)
	registry := providers.NewRegistry(domainConf, db, mc, clock, signal)
	auth := service.NewAuthService(&domainConf)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("cadastred"))
	}

	authMiddleware := restmiddleware.NewAuthMiddleware(auth, domainConf)
	e.Use(authMiddleware.IdentifyIdentity)

	handler := rest.NewHandler(domainConf, registry, signal)
	handler.RegisterRoutes(e)

	listen := conf.Server.Listen
	if listen == "" {
		listen = ":8000"
	}

	e.Logger.Fatal(e.Start(listen))
}
