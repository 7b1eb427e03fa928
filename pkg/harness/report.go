package harness

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	herrors "objmodel/pkg/errors"
)

var (
	passColor   = color.New(color.FgGreen).SprintfFunc()
	failColor   = color.New(color.FgRed).SprintfFunc()
	ignoreColor = color.New(color.FgYellow).SprintfFunc()
	panicColor  = color.New(color.FgHiMagenta, color.Bold).SprintfFunc()
)

// Colorable reports whether w is a terminal that should get colored output.
func Colorable(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

func printer(locale string) *message.Printer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag)
}

// PrintSummary writes per-suite counts and the overall conformance, with
// numbers formatted for locale.
func PrintSummary(w io.Writer, report Report, locale string) {
	p := printer(locale)
	for _, s := range report.Suites {
		fmt.Fprintf(w, "%s: %s, %s, %s, %s\n", s.Name,
			passColor("%s passed", p.Sprintf("%v", number.Decimal(s.Passed))),
			failColor("%s failed", p.Sprintf("%v", number.Decimal(s.Failed()))),
			ignoreColor("%s ignored", p.Sprintf("%v", number.Decimal(s.Ignored))),
			panicColor("%s panics", p.Sprintf("%v", number.Decimal(s.Panic))))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Results (%s):\n", report.Backend)
	fmt.Fprintf(w, "Total tests: %s\n", p.Sprintf("%v", number.Decimal(report.Total)))
	fmt.Fprintf(w, "Passed tests: %s\n", passColor("%s", p.Sprintf("%v", number.Decimal(report.Passed))))
	fmt.Fprintf(w, "Ignored tests: %s\n", ignoreColor("%s", p.Sprintf("%v", number.Decimal(report.Ignored))))
	fmt.Fprintf(w, "Failed tests: %s (%s)\n",
		failColor("%s", p.Sprintf("%v", number.Decimal(report.Failed()))),
		panicColor("%s panics", p.Sprintf("%v", number.Decimal(report.Panic))))
	fmt.Fprintf(w, "Conformance: %s\n", p.Sprintf("%v", number.Percent(report.Conformance(), number.MaxFractionDigits(2))))
}

// PrintFailures shows every failed test with the offending scenario line.
func PrintFailures(w io.Writer, report Report) {
	for _, s := range report.Suites {
		var errs []herrors.HarnessError
		for _, t := range s.Tests {
			switch {
			case t.Outcome == Failed && t.Err != nil:
				errs = append(errs, t.Err)
			case t.Outcome == Panicked:
				fmt.Fprintf(w, "%s\n", panicColor("%s/%s: %s", s.Name, t.Name, t.Error))
			}
		}
		herrors.DisplayErrors(w, s.Source, errs)
	}
}

// PrintComparison renders the difference between two runs as a table.
func PrintComparison(w io.Writer, cmp Comparison) {
	diff := func(base, next int) string {
		d := next - base
		if d > 0 {
			return "+" + strconv.Itoa(d)
		}
		return strconv.Itoa(d)
	}
	failedOf := func(r ReducedResultInfo) int { return r.Total - r.Passed - r.Ignored - r.Panic }

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Test result", "Base", "New", "Diff"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.Append([]string{"Total", strconv.Itoa(cmp.Base.Total), strconv.Itoa(cmp.New.Total), diff(cmp.Base.Total, cmp.New.Total)})
	table.Append([]string{"Passed", strconv.Itoa(cmp.Base.Passed), strconv.Itoa(cmp.New.Passed), diff(cmp.Base.Passed, cmp.New.Passed)})
	table.Append([]string{"Ignored", strconv.Itoa(cmp.Base.Ignored), strconv.Itoa(cmp.New.Ignored), diff(cmp.Base.Ignored, cmp.New.Ignored)})
	table.Append([]string{"Failed", strconv.Itoa(failedOf(cmp.Base)), strconv.Itoa(failedOf(cmp.New)), diff(failedOf(cmp.Base), failedOf(cmp.New))})
	table.Append([]string{"Panics", strconv.Itoa(cmp.Base.Panic), strconv.Itoa(cmp.New.Panic), diff(cmp.Base.Panic, cmp.New.Panic)})
	table.Render()

	if len(cmp.Changes) == 0 {
		return
	}
	fmt.Fprintln(w)
	changes := tablewriter.NewWriter(w)
	changes.SetHeader([]string{"Suite", "Test", "Base", "New"})
	changes.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, c := range cmp.Changes {
		changes.Append([]string{c.Suite, c.Test, c.Base.String(), c.New.String()})
	}
	changes.Render()
}
