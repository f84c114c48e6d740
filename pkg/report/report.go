// Package report renders a run result as a plain-text analysis for console
// consumption.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/baditaflorin/go_timing_leak/internal/core/domain"
)

const rule = 70

// Write renders the full analysis of a run to w.
func Write(w io.Writer, res domain.RunResult) error {
	var sb strings.Builder

	line := strings.Repeat("=", rule)
	sb.WriteString(line + "\n")
	sb.WriteString("TIMING SIDE-CHANNEL ANALYSIS\n")
	sb.WriteString(line + "\n")
	fmt.Fprintf(&sb, "Run:              %s\n", res.RunID)
	fmt.Fprintf(&sb, "Secret length:    %d characters\n", res.Params.SecretLength)
	fmt.Fprintf(&sb, "Alphabet size:    %d symbols\n", len(res.Params.Alphabet))
	fmt.Fprintf(&sb, "Samples per case: %d\n", res.Params.Iterations)
	for _, warn := range res.Warnings {
		fmt.Fprintf(&sb, "Warning:          %s\n", warn)
	}
	sb.WriteString("\n")

	writeComparator(&sb, "EARLY-EXIT implementation", res.Vulnerable)
	sb.WriteString("\n")
	writeComparator(&sb, "CONSTANT-TIME implementation", res.Secure)
	sb.WriteString(line + "\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeComparator(sb *strings.Builder, title string, a domain.ComparatorAnalysis) {
	fmt.Fprintf(sb, "%s (%s):\n", title, a.Comparator)
	fmt.Fprintf(sb, "  %-14s %-16s %-16s\n", "Correct chars", "Mean (ns)", "Std dev (ns)")
	fmt.Fprintf(sb, "  %s\n", strings.Repeat("-", 46))
	for _, cs := range a.Cases {
		fmt.Fprintf(sb, "  %-14d %-16.2f %-16.2f\n", cs.CorrectChars, cs.Mean, cs.StdDev)
	}

	if len(a.Cases) > 0 {
		first := a.Cases[0]
		last := a.Cases[len(a.Cases)-1]
		fmt.Fprintf(sb, "  Fastest case (k=%d): %.2f ns\n", first.CorrectChars, first.Mean)
		fmt.Fprintf(sb, "  Slowest case (k=%d): %.2f ns\n", last.CorrectChars, last.Mean)
	}
	fmt.Fprintf(sb, "  Time increase:      %s\n", pct(a.IncreasePct, a.IncreasePctDefined))
	fmt.Fprintf(sb, "  Correlation:        %s\n", corr(a.Correlation, a.CorrelationDefined))
	fmt.Fprintf(sb, "  Verdict:            %s\n", strings.ToUpper(string(a.Classification)))
}

func pct(v float64, defined bool) string {
	if !defined {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", v)
}

func corr(v float64, defined bool) string {
	if !defined {
		return "N/A (zero variance)"
	}
	return fmt.Sprintf("%.4f", v)
}
