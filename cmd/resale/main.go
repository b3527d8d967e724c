package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/erazemk/resale/internal/client"
	"github.com/erazemk/resale/internal/config"
	"github.com/erazemk/resale/internal/portal"
	"github.com/erazemk/resale/internal/session"
)

// env is what every command runs against.
type env struct {
	cfg    *config.Config
	client *client.Client
	app    *portal.App
}

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"login":    {"login -email <email> -password <password>", cmdLogin},
	"register": {"register -name <name> -email <email> -password <password> [-role customer|partner]", cmdRegister},
	"logout":   {"logout", cmdLogout},
	"whoami":   {"whoami", cmdWhoami},
	"passwd":   {"passwd -current <password> -new <password>", cmdPasswd},

	"items":    {"items [-condition c] [-category c] [-location l] [-min n] [-max n] [-sort newest|price-asc|price-desc|condition]", cmdItems},
	"partners": {"partners [-location l]", cmdPartners},
	"buy":      {"buy -address <address> <item>[:qty]...", cmdBuy},
	"rewards":  {"rewards", cmdRewards},

	"overview": {"overview", cmdOverview},
	"orders":   {"orders", cmdOrders},
	"order":    {"order <cancel|ship|deliver|returned> <order-id>", cmdOrder},
	"returns":  {"returns", cmdReturns},
	"return":   {"return -order <id> -item <id> -reason <text> [-qty n] [-condition c]", cmdReturn},
	"approve":  {"approve [-refund amount] <return-id>", cmdApprove},
	"reject":   {"reject [-reason text] <return-id>", cmdReject},

	"listings": {"listings", cmdListings},
	"item-add": {"item-add -name <name> -price <n> [-original n] [-qty n] [-condition c] [-category c] [-description d] [-image path]", cmdItemAdd},
	"item-rm":  {"item-rm <item-id>", cmdItemRemove},

	"users":    {"users", cmdUsers},
	"user-add": {"user-add -name <name> -email <email> -password <password> -role <role> [-location l]", cmdUserAdd},
	"user-rm":  {"user-rm <user-id>", cmdUserRemove},
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: resale [-v] [-env file] <command> [flags]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
}

func main() {
	fs := flag.NewFlagSet("resale", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "log requests and session changes")
	envFile := fs.String("env", ".env", "environment file")
	fs.Usage = usage

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", fs.Arg(0))
		usage()
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	e, err := setup(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.run(ctx, e, fs.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		if e.app.LoginRequired() {
			fmt.Fprintln(os.Stderr, "Please log in: resale login -email <email> -password <password>")
		}
		os.Exit(1)
	}
}

// setup loads the configuration and session and wires the client to them.
func setup(envFile string) (*env, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	sess, err := session.Open(cfg.SessionFile)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg}
	e.client = client.New(cfg.BaseURL,
		client.WithTimeout(cfg.HTTPTimeout),
		client.WithTokenSource(sess),
		client.WithUnauthorizedHook(func() { e.app.Unauthorized() }),
	)
	e.app = portal.NewApp(e.client, sess)
	return e, nil
}

// describe turns an error into the line shown to the user.
func describe(err error) string {
	var authErr *session.AuthError
	switch {
	case errors.As(err, &authErr):
		return authErr.Message
	case errors.Is(err, client.ErrNetwork):
		return "cannot reach the server: " + err.Error()
	}
	if msg := client.MessageOf(err); msg != "" {
		return msg
	}
	return err.Error()
}
