package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Jenaru0/dela-storefront/internal/config"
	"github.com/Jenaru0/dela-storefront/internal/devserver"
	types "github.com/Jenaru0/dela-storefront/internal/domain"
	"github.com/Jenaru0/dela-storefront/internal/observability"
	"github.com/Jenaru0/dela-storefront/internal/platform/logger"
	"github.com/Jenaru0/dela-storefront/internal/platform/shutdown"
)

func main() {
	var demoUser string
	flag.StringVar(&demoUser, "demo-user", "", "seed an account as email:password")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName + "-devserver",
		Environment: cfg.Env,
		Version:     cfg.Version,
	})
	defer func() { _ = otelShutdown(context.Background()) }()

	srv, err := devserver.New(log, devserver.OptionsFrom(cfg))
	if err != nil {
		log.Error("init dev server failed", "error", err)
		os.Exit(1)
	}
	if demoUser != "" {
		email, password, ok := strings.Cut(demoUser, ":")
		if !ok {
			log.Error("demo-user must be email:password")
			os.Exit(2)
		}
		if _, err := srv.SeedUser(types.Registration{Email: email, Password: password, FirstName: "Demo", LastName: "User"}); err != nil {
			log.Error("seed demo user failed", "error", err)
			os.Exit(1)
		}
	}

	if err := srv.Run(ctx, cfg.DevServer.Addr, cfg.DevServer.ShutdownTimeout.Duration); err != nil {
		log.Error("dev server exited", "error", err)
		os.Exit(1)
	}
}
