package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/zasterix/zasterix/internal/adapter/postgres"
	"github.com/zasterix/zasterix/internal/config"
	"github.com/zasterix/zasterix/internal/domain/template"
	"github.com/zasterix/zasterix/internal/port/cache"
	"github.com/zasterix/zasterix/internal/secrets"
	"github.com/zasterix/zasterix/internal/service"
)

// runAdmin dispatches admin subcommands (migrate, seed, list-templates, history).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "migrate":
		return runAdminMigrate(args[1:])
	case "seed":
		return runAdminSeed(args[1:])
	case "list-templates":
		return runAdminListTemplates(args[1:])
	case "history":
		return runAdminHistory(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: zasterix admin <command> [options]

Commands:
  migrate          Apply, roll back or inspect database migrations
  seed             Register the well-known agent templates
  list-templates   List agent templates
  history          List recent universal history entries
  help             Show this help message

Every command accepts --env-file to read store credentials from a .env file.

Examples:
  zasterix admin migrate
  zasterix admin migrate --down 1
  zasterix admin migrate --status
  zasterix admin seed --env-file .env.production
  zasterix admin list-templates --scope global
  zasterix admin history --limit 20 --json
`)
}

// adminFlags registers the flags shared by every admin command.
func adminFlags(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	envFile := fs.String("env-file", "", "read store credentials from this .env file")
	return fs, envFile
}

// loadAdminConfig loads the configuration. Credentials from envFile fill in
// keys the process environment leaves unset.
func loadAdminConfig(envFile string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if envFile != "" {
		keys := config.SecretKeys()
		loader := secrets.Chain(secrets.EnvLoader(keys...), secrets.DotEnvLoader(envFile, keys...))
		if err := config.ApplySecrets(cfg, loader); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return cfg, nil
}

// adminDeps are the services the admin commands run against.
type adminDeps struct {
	templates *service.TemplateService
	audit     *service.AuditService
}

func loadAdminDeps(ctx context.Context, envFile string) (*adminDeps, func(), error) {
	cfg, err := loadAdminConfig(envFile)
	if err != nil {
		return nil, nil, err
	}

	dsn, tier, err := cfg.Store.Resolve()
	if err != nil {
		return nil, nil, err
	}
	pool, err := postgres.NewPool(ctx, dsn, tier, cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	store := postgres.NewStore(pool)
	deps := &adminDeps{
		templates: service.NewTemplateService(store, noCache{}, 0),
		audit:     service.NewAuditService(store),
	}
	return deps, pool.Close, nil
}

func runAdminMigrate(args []string) error {
	fs, envFile := adminFlags("migrate")
	down := fs.Int("down", 0, "roll back this many migrations")
	status := fs.Bool("status", false, "print the current migration version")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadAdminConfig(*envFile)
	if err != nil {
		return err
	}
	dsn, tier, err := cfg.Store.Resolve()
	if err != nil {
		return err
	}
	if tier != config.TierServiceRole && !*status {
		return fmt.Errorf("migrations need the service role key")
	}

	ctx := context.Background()
	switch {
	case *status:
		v, err := postgres.MigrationVersion(ctx, dsn)
		if err != nil {
			return err
		}
		fmt.Printf("migration version: %d\n", v)
		return nil
	case *down > 0:
		if err := postgres.RollbackMigrations(ctx, dsn, *down); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Rolled back %d migration(s)\n", *down)
		return nil
	default:
		if err := postgres.RunMigrations(ctx, dsn); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Migrations applied")
		return nil
	}
}

func runAdminSeed(args []string) error {
	fs, envFile := adminFlags("seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	deps, cleanup, err := loadAdminDeps(ctx, *envFile)
	if err != nil {
		return err
	}
	defer cleanup()

	n, err := deps.templates.Seed(ctx)
	if err != nil {
		return fmt.Errorf("seed templates: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Seeded templates: %d created, %d already present\n", n, len(template.WellKnownSeeds())-n)
	return nil
}

func runAdminListTemplates(args []string) error {
	fs, envFile := adminFlags("list-templates")
	scope := fs.String("scope", "all", `"all", "global" or an organization id`)
	asJSON := fs.Bool("json", false, "print JSON even on a terminal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	deps, cleanup, err := loadAdminDeps(ctx, *envFile)
	if err != nil {
		return err
	}
	defer cleanup()

	list, err := deps.templates.List(ctx, template.ParseScope(*scope))
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}
	if !useTable(*asJSON) {
		return printJSON(list)
	}
	if len(list) == 0 {
		fmt.Println("No templates found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tORGANIZATION\tKEYWORDS")
	for i := range list {
		org := "global"
		if list[i].OrganizationID != nil {
			org = *list[i].OrganizationID
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			list[i].ID, list[i].Name, list[i].Category, org, strings.Join(list[i].SearchKeywords, ","))
	}
	return w.Flush()
}

func runAdminHistory(args []string) error {
	fs, envFile := adminFlags("history")
	limit := fs.Int("limit", 0, "number of entries (default 50)")
	asJSON := fs.Bool("json", false, "print JSON even on a terminal")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	deps, cleanup, err := loadAdminDeps(ctx, *envFile)
	if err != nil {
		return err
	}
	defer cleanup()

	entries, err := deps.audit.List(ctx, *limit)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	if !useTable(*asJSON) {
		return printJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No history recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tUSER\tPAYLOAD")
	for i := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			entries[i].ID, entries[i].CreatedAt.Format("2006-01-02 15:04:05"), entries[i].UserID, entries[i].Payload)
	}
	return w.Flush()
}

// useTable reports whether output goes to a terminal and JSON was not forced.
func useTable(forceJSON bool) bool {
	return !forceJSON && term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec // fd fits in int
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// noCache is a cache.Cache that never hits; admin commands read through.
type noCache struct{}

var _ cache.Cache = noCache{}

func (noCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (noCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (noCache) Delete(context.Context, string) error { return nil }
