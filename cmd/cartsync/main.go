package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/go_cart/cartsync/internal/config"
	"github.com/fjod/go_cart/cartsync/pkg/logger"
	"github.com/fjod/go_cart/cartsync/pkg/tracing"
)

const usage = `usage: cartsync [-session id] <command> [args]

commands:
  serve                      run the local cart API
  session                    print the current session id
  get                        show the cart
  add <product> [quantity]   add a product (quantity defaults to 1)
  update <item> <quantity>   set an item's quantity
  remove <item>              remove an item
  clear                      empty the cart
`

var errUsage = errors.New("invalid arguments")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cartsync", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	sessionOverride := fs.String("session", "", "use this session id instead of the cached one")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "invalid configuration:\n%v\n", err)
		return 1
	}
	log := logger.New(cfg.AppEnv, stderr)

	shutdownTracing := tracing.Init("cartsync")
	defer func() { _ = shutdownTracing(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	if cmd == "serve" {
		err = serve(ctx, cfg, log)
	} else {
		a := newApp(ctx, cfg, log)
		defer a.Close()
		err = runCommand(ctx, a, cmd, cmdArgs, *sessionOverride, stdout)
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "%v\n\n%s", err, usage)
		return 2
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
}
