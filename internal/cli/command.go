package cli

import (
	"strings"

	flag "github.com/spf13/pflag"
)

// Command describes the rmtree command line for help generation.
type Command struct {
	// Flags defines the accepted flags.
	Flags *flag.FlagSet

	// Usage is shown after the program name.
	Usage string

	// Short is a one-line description.
	Short string

	// Long is the full description. If empty, Short is used instead.
	Long string
}

// PrintHelp writes the full help text.
func (c *Command) PrintHelp(w func(a ...any)) {
	w("rmtree - " + c.Short)
	w()
	w("Usage: rmtree", c.Usage)
	w()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	w(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		w()
		w("Flags:")

		w(strings.TrimRight(c.Flags.FlagUsages(), "\n"))
	}
}

type options struct {
	workDir     string
	configPath  string
	database    string
	force       bool
	dryRun      bool
	quiet       bool
	printConfig bool
	help        bool
	ignore      []string
}

func newCommand(opts *options) *Command {
	flags := flag.NewFlagSet("rmtree", flag.ContinueOnError)
	flags.SortFlags = false

	flags.StringVarP(&opts.workDir, "cwd", "C", "", "Run as if started in `dir`")
	flags.StringVarP(&opts.configPath, "config", "c", "", "Use specified config `file`")
	flags.StringVar(&opts.database, "database", "", "Installed-package database `path` (.json or .yaml)")
	flags.BoolVar(&opts.force, "force", false, "Remove named packages even if other packages depend on them")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Show what would be removed without removing anything")
	flags.BoolVar(&opts.quiet, "quiet", false, "Suppress progress and report output")
	flags.StringSliceVar(&opts.ignore, "ignore", nil, "Keep `name...` installed; takes all remaining arguments")
	flags.BoolVar(&opts.printConfig, "print-config", false, "Show resolved configuration and exit")
	flags.BoolVarP(&opts.help, "help", "h", false, "Show this help")

	return &Command{
		Flags: flags,
		Usage: "[flags] name... [--ignore name...]",
		Short: "remove a package and its unused dependencies",
		Long: `Removes each named package together with the dependencies nothing else
installed still needs. Dependencies used by other packages are kept and
reported. Names after --ignore are never removed, even when orphaned.`,
	}
}
