// Package cli implements the rmtree command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/juju/collections/set"

	"github.com/calvinalkan/rmtree/internal/config"
	"github.com/calvinalkan/rmtree/internal/fs"
	"github.com/calvinalkan/rmtree/internal/logging"
	"github.com/calvinalkan/rmtree/internal/pkgdb"
	"github.com/calvinalkan/rmtree/internal/rmtree"
)

// ErrNoPackages is returned when no package names were given.
var ErrNoPackages = errors.New("no package names given")

const ignoreFlag = "--ignore"

// Run is the main entry point. Returns exit code.
//
// args[0] is the program name. A signal on sigCh cancels analysis and any
// pending confirmation; removals already started run to completion.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	o := NewIO(in, out, errOut)

	var opts options

	cmd := newCommand(&opts)

	if len(args) < 2 {
		cmd.PrintHelp(o.Println)

		return 0
	}

	head, ignored := splitIgnore(args[1:])
	head = dropUnknownFlags(o, cmd, head)

	cmd.Flags.SetOutput(io.Discard)

	if err := cmd.Flags.Parse(head); err != nil {
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		cmd.PrintHelp(o.ErrPrintln)

		return 1
	}

	roots := cmd.Flags.Args()

	if opts.help || (len(roots) > 0 && roots[0] == "?") {
		cmd.PrintHelp(o.Println)

		return 0
	}

	opts.ignore = append(opts.ignore, ignored...)

	cfg, err := config.Load(config.Input{
		WorkDirOverride:  opts.workDir,
		ConfigPath:       opts.configPath,
		DatabaseOverride: opts.database,
		Env:              env,
	})
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	if opts.printConfig {
		printConfig(o, cfg)

		return 0
	}

	if len(roots) == 0 {
		o.ErrPrintln("error:", ErrNoPackages)
		o.ErrPrintln()
		cmd.PrintHelp(o.ErrPrintln)

		return 1
	}

	o.SetQuiet(opts.quiet)

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(errOut, level)

	db, err := pkgdb.Open(fs.NewReal(), cfg.DatabaseAbs,
		pkgdb.WithCellar(cfg.CellarAbs),
		pkgdb.WithLogger(logger),
		pkgdb.WithLockTimeout(cfg.LockTimeoutDuration),
	)
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	r := &runner{
		io:     o,
		db:     db,
		logger: logger,
		cfg:    cfg,
		opts:   opts,
	}

	return r.run(ctx, roots)
}

// splitIgnore cuts args at the first "--ignore". Everything after it names
// packages to keep.
func splitIgnore(args []string) ([]string, []string) {
	for i, arg := range args {
		if arg == "--" {
			break
		}

		if arg == ignoreFlag {
			return args[:i:i], args[i+1:]
		}
	}

	return args, nil
}

// dropUnknownFlags warns about flags the command does not define and
// removes them, so the remaining arguments are still processed.
func dropUnknownFlags(o *IO, cmd *Command, args []string) []string {
	kept := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			kept = append(kept, args[i:]...)

			break
		}

		known, takesValue := lookupFlag(cmd, arg)
		if !known {
			o.Warn("unknown option: %q", arg)
			cmd.PrintHelp(o.ErrPrintln)

			continue
		}

		kept = append(kept, arg)

		if takesValue && i+1 < len(args) {
			i++
			kept = append(kept, args[i])
		}
	}

	return kept
}

// lookupFlag reports whether arg is a flag the command defines (non-flags
// count as known) and whether its value is the next argument.
func lookupFlag(cmd *Command, arg string) (bool, bool) {
	if !strings.HasPrefix(arg, "-") || arg == "-" {
		return true, false
	}

	if long, ok := strings.CutPrefix(arg, "--"); ok {
		name, _, hasValue := strings.Cut(long, "=")

		f := cmd.Flags.Lookup(name)
		if f == nil {
			return false, false
		}

		return true, !hasValue && f.NoOptDefVal == ""
	}

	shorts := arg[1:]

	for i := range len(shorts) {
		f := cmd.Flags.ShorthandLookup(shorts[i : i+1])
		if f == nil {
			return false, false
		}

		if f.NoOptDefVal == "" {
			// Value-taking shorthand: the rest of arg, or the next argument.
			return true, i == len(shorts)-1
		}
	}

	return true, false
}

type runner struct {
	io     *IO
	db     *pkgdb.DB
	logger *slog.Logger
	cfg    config.Config
	opts   options
}

func (r *runner) run(ctx context.Context, roots []string) int {
	ignore := r.ignoreSet(append(append([]string{}, r.cfg.Ignore...), r.opts.ignore...))

	if r.opts.dryRun {
		r.io.Println("This is a dry-run, nothing will be deleted")
	}

	exitCode := 0

	for _, root := range roots {
		err := r.processRoot(ctx, root, ignore)

		var blocked *rmtree.BlockedError

		switch {
		case err == nil:
		case errors.Is(err, rmtree.ErrUserDeclined):
			// Declining ends the run cleanly, whatever earlier roots reported.
			r.io.ErrPrintln("User quit")

			return 0
		case errors.As(err, &blocked):
			r.io.ErrPrintln(fmt.Sprintf("%s can't be removed because other packages depend on it:", blocked.Root))
			r.io.ErrPrintln(strings.Join(blocked.Users, ", "))
		case errors.Is(err, rmtree.ErrNotInstalled):
			r.io.ErrPrintln("error:", root, "is not currently installed")
		case errors.Is(err, context.Canceled):
			r.io.ErrPrintln("error: interrupted")

			return 1
		default:
			r.io.ErrPrintln("error:", err)

			exitCode = 1
		}
	}

	return exitCode
}

func (r *runner) processRoot(ctx context.Context, root string, ignore set.Strings) error {
	if err := rmtree.CheckRoot(r.db, root, r.opts.force); err != nil {
		return err
	}

	r.io.Printf("==> Examining installed packages required by %s...\n", root)

	progress := r.io.startProgress(root)

	analyzer := rmtree.NewAnalyzer(r.db,
		rmtree.WithLogger(r.logger),
		rmtree.WithWorkers(r.cfg.Workers),
		rmtree.WithProgress(progress.update),
	)

	analysis, err := analyzer.Analyze(ctx, root, ignore)

	progress.stop()

	if err != nil {
		return err
	}

	plan := analysis.Plan()
	r.io.printPlan(plan, r.opts.dryRun)

	if !r.opts.dryRun {
		proceed, err := r.io.confirm(ctx, "Proceed?")
		if err != nil {
			return err
		}

		if !proceed {
			return rmtree.ErrUserDeclined
		}

		r.io.Println("==> Cleaning up packages safe to remove")
	}

	executor := rmtree.NewExecutor(r.db,
		rmtree.WithReporter(reporter{io: r.io}),
		rmtree.WithExecutorLogger(r.logger),
	)

	report := executor.Execute(ctx, plan, r.opts.dryRun)
	r.io.printSummary(report)

	return nil
}

// ignoreSet resolves ignore names to canonical package names. Names the
// database does not know are kept as given.
func (r *runner) ignoreSet(names []string) set.Strings {
	ignore := set.NewStrings()

	for _, name := range names {
		pkg, err := r.db.Resolve(name)
		if err != nil {
			r.io.Warn("cannot resolve ignored package %q, keeping it as given", name)
			ignore.Add(name)

			continue
		}

		ignore.Add(pkg.Name)
	}

	return ignore
}
