package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/juju/naturalsort"

	"github.com/calvinalkan/rmtree/internal/rmtree"
)

func (o *IO) printSection(title string, lines []string) {
	o.Println()
	o.Println(title)
	o.Println(strings.Repeat("-", len(title)+1))

	for _, line := range lines {
		o.Println(line)
	}
}

// printPlan writes the removable and retained sections, plus the order of
// operations in a dry run.
func (o *IO) printPlan(plan rmtree.RemovalPlan, dryRun bool) {
	o.printSection("Can safely be removed", plan.Order)

	if len(plan.Retained) > 0 {
		o.printSection("Won't be removed", retainedLines(plan.Retained))
	}

	if dryRun {
		o.printSection("Order of operations", plan.Order)
	}
}

// retainedLines renders "dep is used by a, b", in natural order of dep.
func retainedLines(retained map[string]rmtree.BlockingSet) []string {
	names := make([]string, 0, len(retained))
	for name := range retained {
		names = append(names, name)
	}

	names = naturalsort.Sort(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		users := naturalsort.Sort(retained[name].Values())
		lines = append(lines, fmt.Sprintf("%s is used by %s", name, strings.Join(users, ", ")))
	}

	return lines
}

// printSummary renders the outcome of a real run as a table.
func (o *IO) printSummary(report rmtree.Report) {
	if report.DryRun || len(report.Outcomes) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(o.Out())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Package", "Status", "Reclaimed"})

	for _, outcome := range report.Outcomes {
		status := "removed"
		if outcome.Err != nil {
			status = "failed"
		}

		t.AppendRow(table.Row{outcome.Name, status, humanize.Bytes(uint64(outcome.Freed))})
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("%d removed", len(report.Removed())),
		fmt.Sprintf("%d failed", len(report.Failed())),
		humanize.Bytes(uint64(report.Freed())),
	})

	o.Println()
	t.Render()
}

// reporter prints executor events.
type reporter struct {
	io *IO
}

func (r reporter) WouldRemove(name string) {
	r.io.Println("Would have removed", name)
}

func (r reporter) Removed(name string, freed int64) {
	r.io.Printf("Removed %s (%s)\n", name, humanize.Bytes(uint64(freed)))
}

func (r reporter) Failed(_ string, err error) {
	r.io.ErrPrintln("error:", err)
}

var _ rmtree.Reporter = reporter{}
