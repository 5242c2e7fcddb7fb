package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/mmocchi/pytestee/internal/cache"
	"github.com/mmocchi/pytestee/internal/output"
	"github.com/mmocchi/pytestee/internal/progress"
	"github.com/mmocchi/pytestee/pkg/builder"
	"github.com/mmocchi/pytestee/pkg/config"
	"github.com/mmocchi/pytestee/pkg/engine"
	"github.com/mmocchi/pytestee/pkg/rules"
	"github.com/mmocchi/pytestee/pkg/scanner"
)

var version = "dev"

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

func main() {
	app := &cli.App{
		Name:    "pytestee",
		Usage:   "Quality checker for pytest test files",
		Version: version,
		Description: `Pytestee statically analyzes pytest test files for AAA/GWT structure,
assertion discipline, fragile dependencies, and edge-case coverage.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"PYTESTEE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable caching",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Include informational findings in output",
			},
		},
		Commands: []*cli.Command{
			checkCmd(),
			rulesCmd(),
		},
		DefaultCommand: "check",
	}

	if err := app.Run(os.Args); err != nil {
		if exitErr, ok := err.(cli.ExitCoder); ok && exitErr.Error() == "" {
			os.Exit(exitErr.ExitCode())
		}
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Analyze test files and report findings",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "select",
				Usage: "Rule ids or category prefixes to enable",
			},
			&cli.StringSliceFlag{
				Name:  "ignore",
				Usage: "Rule ids or category prefixes to disable (wins over select)",
			},
			&cli.StringSliceFlag{
				Name:  "severity",
				Usage: "Severity override as RULE=LEVEL (e.g. PTAS001=warning)",
			},
			&cli.StringSliceFlag{
				Name:  "param",
				Usage: "Rule parameter as RULE.KEY=VALUE (e.g. PTAS005.max_asserts=5)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Parallel file workers (0 = automatic)",
			},
		},
		Action: runCheckCmd,
	}
}

func runCheckCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	registry := rules.NewRegistry()
	resolved, err := rules.Resolve(registry, cfg)
	if err != nil {
		return err
	}

	scan := scanner.New(cfg)
	files, err := scan.Scan(getPaths(c))
	if err != nil {
		return fmt.Errorf("failed to scan paths: %w", err)
	}
	if len(files) == 0 {
		color.Yellow("No test files found")
		return nil
	}

	var opts []engine.Option
	if cfg.Cache.Enabled && !c.Bool("no-cache") {
		fileCache, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true)
		if err != nil {
			return fmt.Errorf("failed to initialize cache: %w", err)
		}
		opts = append(opts, engine.WithCache(fileCache))
	}
	if cfg.Workers > 0 {
		opts = append(opts, engine.WithWorkers(cfg.Workers))
	}
	if len(cfg.AssertHelpers) > 0 {
		opts = append(opts, engine.WithBuilder(builder.New(builder.WithAssertHelpers(cfg.AssertHelpers))))
	}
	eng := engine.New(registry, resolved, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := progress.NewTracker("Checking tests...", len(files))
	result, err := eng.Run(ctx, files, tracker.Tick)
	if err != nil {
		tracker.FinishError(err)
		return fmt.Errorf("analysis failed: %w", err)
	}
	tracker.FinishSuccess()

	formatter, err := output.NewFormatter(output.ParseFormat(cfg.Output.Format), c.String("output"), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	report := &output.CheckReport{Result: result, Verbose: cfg.Output.Verbose}
	if err := formatter.Output(report); err != nil {
		return err
	}

	if result.HasErrors() {
		return cli.Exit("", 1)
	}
	return nil
}

func rulesCmd() *cli.Command {
	return &cli.Command{
		Name:   "rules",
		Usage:  "List the rule catalog",
		Action: runRulesCmd,
	}
}

func runRulesCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	registry := rules.NewRegistry()
	resolved, err := rules.Resolve(registry, cfg)
	if err != nil {
		return err
	}

	var rows [][]string
	for _, rule := range registry.All() {
		enabled := "no"
		if resolved.Enabled(rule.Spec.ID) {
			enabled = "yes"
		}
		rows = append(rows, []string{
			rule.Spec.ID,
			rule.Spec.Name,
			string(resolved.Severity(rule.Spec.ID)),
			enabled,
			rule.Spec.Description,
		})
	}

	formatter, err := output.NewFormatter(output.ParseFormat(cfg.Output.Format), c.String("output"), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(&output.Table{
		Title:   "Rules",
		Headers: []string{"ID", "Name", "Severity", "Enabled", "Description"},
		Rows:    rows,
	})
}

// loadConfig builds the layered config, applying CLI flags as the
// highest-precedence layer.
func loadConfig(c *cli.Context) (*config.Config, error) {
	overrides := map[string]any{}
	if c.IsSet("format") {
		overrides["output.format"] = c.String("format")
	}
	if c.Bool("verbose") {
		overrides["output.verbose"] = true
	}
	if c.IsSet("select") {
		overrides["select"] = c.StringSlice("select")
	}
	if c.IsSet("ignore") {
		overrides["ignore"] = c.StringSlice("ignore")
	}
	if c.IsSet("workers") {
		overrides["workers"] = c.Int("workers")
	}
	for _, s := range c.StringSlice("severity") {
		ref, level, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --severity %q, expected RULE=LEVEL", s)
		}
		overrides["severity."+ref] = level
	}
	for _, p := range c.StringSlice("param") {
		key, value, ok := strings.Cut(p, "=")
		if !ok || strings.Count(key, ".") != 1 {
			return nil, fmt.Errorf("invalid --param %q, expected RULE.KEY=VALUE", p)
		}
		overrides["rules."+key] = config.ParseScalar(value)
	}

	cfg, err := config.LoadOrDefault(c.String("config"), overrides)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
