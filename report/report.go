// Package report renders benchmark reports for people and for tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"gopkg.in/yaml.v3"

	"github.com/weiihann/tracebench/bench"
	"github.com/weiihann/tracebench/harness"
)

// Format names an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatTable, FormatMarkdown, FormatJSON, FormatYAML}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats() {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}

	return "", fmt.Errorf("unknown report format %q", s)
}

// Render writes r to w in the given format.
func Render(w io.Writer, format Format, r *bench.Report) error {
	if r == nil || len(r.Sections) == 0 {
		return fmt.Errorf("no results to report")
	}

	switch format {
	case FormatText:
		return Text(w, r)
	case FormatTable:
		return Table(w, r)
	case FormatMarkdown:
		return Markdown(w, r)
	case FormatJSON:
		return JSON(w, r)
	case FormatYAML:
		return YAML(w, r)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// Text writes one block per configuration in the layout of the original
// pmemtrace experiment script, followed by the overhead per size.
func Text(w io.Writer, r *bench.Report) error {
	for i, section := range r.Sections {
		if i > 0 {
			fmt.Fprintln(w)
		}

		header := sectionTitle(r, section.Config)
		fmt.Fprintln(w, header)
		fmt.Fprintln(w, strings.Repeat("-", len(header)))

		for _, row := range section.Rows {
			fmt.Fprintf(w, "%-8s %.3f (%.3f std. dev.)",
				row.Size.Label, row.Summary.Mean, row.Summary.StdDev)

			if row.ArtifactBytes != nil {
				fmt.Fprintf(w, " trace file size: %d", *row.ArtifactBytes)
			}

			fmt.Fprintln(w)
		}
	}

	overhead := r.Overhead()
	if len(overhead) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Overhead")
	fmt.Fprintln(w, "--------")

	for _, o := range overhead {
		fmt.Fprintf(w, "%-8s %+.3f s (%+.1f%%) trace bytes per byte: %.4f\n",
			o.Size.Label, o.Seconds, o.Ratio*100, o.TraceBytesPerByte)
	}

	return nil
}

// Table writes a boxed table per configuration.
func Table(w io.Writer, r *bench.Report) error {
	for _, section := range r.Sections {
		t := table.NewWriter()
		t.SetStyle(table.StyleLight)
		t.Style().Format.Header = text.FormatDefault
		t.SetTitle(sectionTitle(r, section.Config))

		header := table.Row{"Size", "Mean (s)", "Std Dev (s)", "Min (s)", "Max (s)"}
		if section.Config == harness.Traced {
			header = append(header, "Trace Size")
		}
		t.AppendHeader(header)

		for _, row := range section.Rows {
			cells := table.Row{
				row.Size.Label,
				fmt.Sprintf("%.3f", row.Summary.Mean),
				fmt.Sprintf("%.3f", row.Summary.StdDev),
				fmt.Sprintf("%.3f", row.Summary.Min),
				fmt.Sprintf("%.3f", row.Summary.Max),
			}
			if section.Config == harness.Traced {
				cells = append(cells, formatBytes(row.ArtifactBytes))
			}
			t.AppendRow(cells)
		}

		fmt.Fprintln(w, t.Render())
		fmt.Fprintln(w)
	}

	overhead := r.Overhead()
	if len(overhead) == 0 {
		return nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.SetTitle("Overhead")
	t.AppendHeader(table.Row{"Size", "Traced (s)", "Untraced (s)", "Overhead", "Trace/Workload"})

	for _, o := range overhead {
		t.AppendRow(table.Row{
			o.Size.Label,
			fmt.Sprintf("%.3f", o.TracedMean),
			fmt.Sprintf("%.3f", o.UntracedMean),
			formatOverhead(o),
			fmt.Sprintf("%.4f", o.TraceBytesPerByte),
		})
	}

	fmt.Fprintln(w, t.Render())

	return nil
}

// Markdown writes the report as markdown tables.
func Markdown(w io.Writer, r *bench.Report) error {
	fmt.Fprintln(w, "## Tracing Overhead Results")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Tracer: `%s` (sample rate %d, duty cycle %g), "+
		"%d repetitions per size.\n",
		r.Tracer, r.SampleRate, r.DutyCycle, r.Repetitions)

	for _, section := range r.Sections {
		traced := section.Config == harness.Traced

		fmt.Fprintln(w)
		fmt.Fprintf(w, "### %s\n", sectionTitle(r, section.Config))
		fmt.Fprintln(w)

		if traced {
			fmt.Fprintln(w, "| Size | Mean | Std Dev | Min | Max | Trace Size |")
			fmt.Fprintln(w, "|------|------|---------|-----|-----|------------|")
		} else {
			fmt.Fprintln(w, "| Size | Mean | Std Dev | Min | Max |")
			fmt.Fprintln(w, "|------|------|---------|-----|-----|")
		}

		for _, row := range section.Rows {
			fmt.Fprintf(w, "| %s | %s | %s | %s | %s |",
				row.Size.Label,
				formatSeconds(row.Summary.Mean),
				formatSeconds(row.Summary.StdDev),
				formatSeconds(row.Summary.Min),
				formatSeconds(row.Summary.Max),
			)

			if traced {
				fmt.Fprintf(w, " %s |", formatBytes(row.ArtifactBytes))
			}

			fmt.Fprintln(w)
		}
	}

	overhead := r.Overhead()
	if len(overhead) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "### Overhead")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Size | Traced | Untraced | Overhead | Trace/Workload |")
	fmt.Fprintln(w, "|------|--------|----------|----------|----------------|")

	for _, o := range overhead {
		fmt.Fprintf(w, "| %s | %s | %s | %s | %.4f |\n",
			o.Size.Label,
			formatSeconds(o.TracedMean),
			formatSeconds(o.UntracedMean),
			formatOverhead(o),
			o.TraceBytesPerByte,
		)
	}

	return nil
}

// document is the machine-readable form: the report plus its derived
// overhead comparison.
type document struct {
	*bench.Report `yaml:",inline"`
	Overhead      []bench.Overhead `json:"overhead" yaml:"overhead"`
}

// JSON writes the report as indented JSON.
func JSON(w io.Writer, r *bench.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(document{Report: r, Overhead: r.Overhead()})
}

// YAML writes the report as YAML.
func YAML(w io.Writer, r *bench.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(document{Report: r, Overhead: r.Overhead()}); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return enc.Close()
}

func sectionTitle(r *bench.Report, rc harness.RunConfig) string {
	tracer := r.Tracer
	if tracer == "" {
		tracer = "tracer"
	}

	if rc == harness.Traced {
		return "Running command with " + tracer + "..."
	}

	return "Running command without " + tracer + "..."
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3fs", s)
}

func formatOverhead(o bench.Overhead) string {
	return fmt.Sprintf("%+.3fs (%+.1f%%)", o.Seconds, o.Ratio*100)
}

func formatBytes(b *uint64) string {
	if b == nil {
		return "-"
	}

	return humanize.IBytes(*b)
}
