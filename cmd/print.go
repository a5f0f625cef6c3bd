package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/validator-sim/validator-sim/scoring"
)

// stdoutIsTerminal reports whether winners printed to stdout should be colored.
func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// winnerPrinter writes category winners as indented text.
type winnerPrinter struct {
	w       io.Writer
	names   PubkeyMap
	heading func(a ...interface{}) string
	bucket  func(a ...interface{}) string
	none    func(a ...interface{}) string
}

func newWinnerPrinter(w io.Writer, names PubkeyMap, colored bool) *winnerPrinter {
	heading := color.New(color.FgCyan, color.Bold)
	bucket := color.New(color.Bold)
	none := color.New(color.FgHiBlack)
	for _, c := range []*color.Color{heading, bucket, none} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return &winnerPrinter{
		w:       w,
		names:   names,
		heading: heading.SprintFunc(),
		bucket:  bucket.SprintFunc(),
		none:    none.SprintFunc(),
	}
}

func (p *winnerPrinter) print(winners *scoring.Winners) {
	fmt.Fprintf(p.w, "\n%s:\n", p.heading(winners.Category))
	if winners.Label != "" {
		fmt.Fprintf(p.w, "  %s\n", winners.Label)
	}
	if len(winners.TopWinners) > 0 {
		fmt.Fprintf(p.w, "  %s\n", p.bucket("Top Three:"))
		for i, winner := range winners.TopWinners {
			fmt.Fprintf(p.w, "    %d. %-44s: %s\n", i+1, p.names.Display(winner.ID), winner.Display)
		}
	}
	for _, b := range winners.BucketWinners {
		fmt.Fprintf(p.w, "  %s\n", p.bucket(b.Name+":"))
		if len(b.Winners) == 0 {
			fmt.Fprintf(p.w, "    %s\n", p.none("None"))
			continue
		}
		for _, winner := range b.Winners {
			fmt.Fprintf(p.w, "    - %-44s: %s\n", p.names.Display(winner.ID), winner.Display)
		}
	}
}

// writeReport renders a report in the requested output format.
func writeReport(w io.Writer, report *scoring.Report, output string, names PubkeyMap, colored bool) error {
	switch output {
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		return enc.Close()
	case OutputText:
		p := newWinnerPrinter(w, names, colored)
		for _, winners := range report.Winners {
			p.print(winners)
		}
		if report.Summary != nil {
			s := report.Summary
			fmt.Fprintf(p.w, "\n%s:\n", p.heading("Trace Summary"))
			fmt.Fprintf(p.w, "  Checkpoints: %d (%d new votes, %d late)\n", s.TotalCheckpoints, s.TotalNewVotes, s.TotalLateVotes)
			fmt.Fprintf(p.w, "  Scored slots: %d (%d at finalization)\n", s.ScoredSlots, s.FinalizedSlots)
			fmt.Fprintf(p.w, "  Mean voters per slot: %.2f, max segments: %d\n", s.MeanVotersPerSlot, s.MaxSegmentsPerSlot)
			fmt.Fprintf(p.w, "  Low latency share: %.3f\n", s.LowLatencyShare)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}
