package bench

import (
	"github.com/weiihann/tracebench/harness"
	"github.com/weiihann/tracebench/workload"
)

// Row is the outcome of one workload size under one configuration.
type Row struct {
	Size    workload.Size `json:"size" yaml:"size"`
	Samples []float64     `json:"samples" yaml:"samples"`
	Summary Summary       `json:"summary" yaml:"summary"`
	// ArtifactBytes is only set for traced rows.
	ArtifactBytes *uint64 `json:"artifact_bytes,omitempty" yaml:"artifact_bytes,omitempty"`
}

// Section holds every row measured under one configuration, in size order.
type Section struct {
	Config harness.RunConfig `json:"config" yaml:"config"`
	Rows   []Row             `json:"rows" yaml:"rows"`
}

// Report is the complete result of a benchmark run.
type Report struct {
	Tracer      string    `json:"tracer" yaml:"tracer"`
	Repetitions int       `json:"repetitions" yaml:"repetitions"`
	SampleRate  int       `json:"sample_rate" yaml:"sample_rate"`
	DutyCycle   float64   `json:"duty_cycle" yaml:"duty_cycle"`
	Sections    []Section `json:"sections" yaml:"sections"`
}

// Section returns the section for rc, or nil.
func (r *Report) Section(rc harness.RunConfig) *Section {
	for i := range r.Sections {
		if r.Sections[i].Config == rc {
			return &r.Sections[i]
		}
	}

	return nil
}

// Overhead compares the traced and untraced mean of one workload size.
type Overhead struct {
	Size          workload.Size `json:"size" yaml:"size"`
	TracedMean    float64       `json:"traced_mean" yaml:"traced_mean"`
	UntracedMean  float64       `json:"untraced_mean" yaml:"untraced_mean"`
	Seconds       float64       `json:"seconds" yaml:"seconds"`
	Ratio         float64       `json:"ratio" yaml:"ratio"`
	ArtifactBytes uint64        `json:"artifact_bytes" yaml:"artifact_bytes"`
	// TraceBytesPerByte relates the artifact size to the bytes written.
	TraceBytesPerByte float64 `json:"trace_bytes_per_byte" yaml:"trace_bytes_per_byte"`
}

// Overhead pairs traced and untraced rows by size label, in traced order.
// Sizes missing from either section are skipped.
func (r *Report) Overhead() []Overhead {
	traced := r.Section(harness.Traced)
	untraced := r.Section(harness.Untraced)

	if traced == nil || untraced == nil {
		return nil
	}

	base := make(map[string]Row, len(untraced.Rows))
	for _, row := range untraced.Rows {
		base[row.Size.Label] = row
	}

	out := make([]Overhead, 0, len(traced.Rows))

	for _, row := range traced.Rows {
		u, ok := base[row.Size.Label]
		if !ok {
			continue
		}

		o := Overhead{
			Size:         row.Size,
			TracedMean:   row.Summary.Mean,
			UntracedMean: u.Summary.Mean,
			Seconds:      row.Summary.Mean - u.Summary.Mean,
		}

		if u.Summary.Mean > 0 {
			o.Ratio = row.Summary.Mean/u.Summary.Mean - 1
		}

		if row.ArtifactBytes != nil {
			o.ArtifactBytes = *row.ArtifactBytes
			if row.Size.Bytes > 0 {
				o.TraceBytesPerByte = float64(o.ArtifactBytes) / float64(row.Size.Bytes)
			}
		}

		out = append(out, o)
	}

	return out
}
