package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Jenaru0/dela-storefront/internal/app"
	"github.com/Jenaru0/dela-storefront/internal/config"
	"github.com/Jenaru0/dela-storefront/internal/platform/logger"
	"github.com/Jenaru0/dela-storefront/internal/platform/shutdown"
)

const usage = `usage: storefront <command> [flags]

commands:
  register -email E -password P -first F -last L
  login    -email E -password P
  logout
  whoami
  products
  cart                     show the cart
  add      -product ID [-qty N]
  inc      ID
  dec      ID
  set      ID N
  remove   ID
  clear
  refresh
  watch                    print session and cart changes until interrupted
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}
	if err := defaultToSQLite(cfg); err != nil {
		fmt.Printf("prepare session storage: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := shutdown.NotifyContext(context.Background())
	code := run(ctx, cfg, log, flag.Args(), os.Stdout)
	stop()
	log.Sync()
	os.Exit(code)
}

// defaultToSQLite keeps the session between invocations unless a storage
// driver was chosen explicitly.
func defaultToSQLite(cfg *config.Config) error {
	if os.Getenv("STOREFRONT_STORAGE_DRIVER") != "" || cfg.Storage.Driver != config.DriverMemory {
		return nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return err
	}
	dir = filepath.Join(dir, "dela-storefront")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	cfg.Storage.Driver = config.DriverSQLite
	cfg.Storage.DSN = filepath.Join(dir, "session.db")
	return nil
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string, out io.Writer) int {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(out, "init: %v\n", err)
		return 1
	}
	defer func() { _ = a.Close(context.Background()) }()

	tab := a.OpenTab()
	defer tab.Close()
	if err := tab.Start(ctx); err != nil {
		fmt.Fprintf(out, "start: %v\n", err)
		return 1
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(out, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
	if err := cmd(ctx, &cli{app: a, tab: tab, out: out}, args[1:]); err != nil {
		fmt.Fprintf(out, "%s: %v\n", args[0], err)
		return 1
	}
	return 0
}
