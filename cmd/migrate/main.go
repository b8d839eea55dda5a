package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/angelmondragon/storetrack-backend/pkg/config"
	"github.com/angelmondragon/storetrack-backend/pkg/db"
	"github.com/angelmondragon/storetrack-backend/pkg/logger"
	"github.com/angelmondragon/storetrack-backend/pkg/migrate"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
)

const usage = `usage: storetrack-migrate [-dir path] <command> [arg]

commands:
  up               apply all pending migrations
  down             roll back the latest migration
  status           list applied and pending migrations
  to <version>     move the schema to YYYYMMDDHHMMSS
  create <name>    write a new empty migration into -dir
  validate         check filenames and goose sections
`

func main() {
	logg := logger.New(logger.Options{ServiceName: "storetrack-migrate"})
	_ = godotenv.Load()

	dir := flag.String("dir", "", "migrations directory (defaults to the embedded set; create uses "+migrate.DefaultDir+")")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command, args := flag.Arg(0), flag.Args()[1:]

	// create and validate work offline, no config needed.
	switch command {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.Create(target, argAt(args, 0), time.Now())
		exitOn(err)
		fmt.Println("created", path)
		return
	case "validate":
		source, err := migrate.Source(*dir)
		exitOn(err)
		exitOn(migrate.Validate(source))
		fmt.Println("migrations ok")
		return
	}

	cfg, err := config.Load()
	exitOn(err)
	logg = logger.New(logger.Options{
		ServiceName: "storetrack-migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"command": command,
	})

	if err := run(ctx, cfg, logg, command, *dir, args, os.Stdout); err != nil {
		logg.Error(ctx, "migrate.failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, command, dir string, args []string, out io.Writer) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.SQL()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}
	source, err := migrate.Source(dir)
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, source, logg)
	if err != nil {
		return err
	}

	switch command {
	case "up":
		return runner.Up(ctx)
	case "down":
		return runner.Down(ctx)
	case "to":
		version := argAt(args, 0)
		if version == "" {
			return errors.New("to requires a version argument")
		}
		return runner.To(ctx, version)
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		return printStatus(out, statuses)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func printStatus(out io.Writer, statuses []*goose.MigrationStatus) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, st := range statuses {
		applied := "-"
		if !st.AppliedAt.IsZero() {
			applied = st.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", st.Source.Version, st.State, applied, st.Source.Path)
	}
	return tw.Flush()
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func exitOn(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "migrate:", err)
	os.Exit(1)
}
