package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"donations/internal/cli"
	"donations/internal/config"
	"donations/internal/log"
)

// app carries what every command needs once the environment is loaded.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	stdout io.Writer
}

type CLI struct {
	Serve     ServeCmd     `cmd default:"1" help:"Serve the donation REST API."`
	Migrate   MigrateCmd   `cmd help:"Apply the embedded schema to the SQLite database."`
	Reconcile ReconcileCmd `cmd help:"Recompute donor and campaign totals from the donation records."`
	Token     TokenCmd     `cmd help:"Issue a bearer token for the API."`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	var c CLI
	parser, err := kong.New(&c,
		kong.Name("donations"),
		kong.Description("Donation management API and maintenance commands."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	kctx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)

	cfg, logger, err := cli.Bootstrap()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := kctx.Run(&app{cfg: cfg, logger: logger, stdout: stdout}); err != nil {
		logger.Error("Command failed", "command", kctx.Command(), log.FieldError, err)
		return 1
	}
	return 0
}
