// Package workload describes the I/O workload whose cost is measured: a
// timed write of a fixed number of random bytes to a target path.
package workload

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"mvdan.cc/sh/v3/syntax"
)

// DefaultSizes is the workload size sequence used when none is configured.
var DefaultSizes = []string{"4M", "8M", "16M", "32M"}

// Size is a workload size as written by the user together with the byte
// count it stands for. The label is kept verbatim for reporting.
type Size struct {
	Label string `json:"label" yaml:"label"`
	Bytes uint64 `json:"bytes" yaml:"bytes"`
}

func (s Size) String() string {
	return s.Label
}

// ParseSize parses a size label. Bare single-letter suffixes (K, M, G, ...)
// are binary multiples, matching head -c; explicit units such as MB or MiB
// are accepted as written.
func ParseSize(label string) (Size, error) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return Size{}, fmt.Errorf("empty workload size")
	}

	n, err := humanize.ParseBytes(binarySuffix(trimmed))
	if err != nil {
		return Size{}, fmt.Errorf("parse workload size %q: %w", label, err)
	}

	if n == 0 {
		return Size{}, fmt.Errorf("workload size %q is zero", label)
	}

	return Size{Label: trimmed, Bytes: n}, nil
}

// ParseSizes parses labels in order.
func ParseSizes(labels []string) ([]Size, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("no workload sizes configured")
	}

	sizes := make([]Size, 0, len(labels))

	for _, label := range labels {
		size, err := ParseSize(label)
		if err != nil {
			return nil, err
		}

		sizes = append(sizes, size)
	}

	return sizes, nil
}

func binarySuffix(s string) string {
	last := s[len(s)-1]
	if !strings.ContainsRune("KMGTPE", rune(last)) || len(s) < 2 {
		return s
	}

	prev := s[len(s)-2]
	if prev < '0' || prev > '9' {
		return s
	}

	return s + "iB"
}

// Script is the timed write executed by the shell for every run.
type Script struct {
	Size   Size
	Source string
	Target string
}

// String renders the script with every interpolated value quoted for bash.
// The time keyword is what produces the "real XmY.YYYs" report.
func (s Script) String() (string, error) {
	if s.Source == "" || s.Target == "" {
		return "", fmt.Errorf("workload script needs a source and a target")
	}

	src, err := syntax.Quote(s.Source, syntax.LangBash)
	if err != nil {
		return "", fmt.Errorf("quote source %q: %w", s.Source, err)
	}

	dst, err := syntax.Quote(s.Target, syntax.LangBash)
	if err != nil {
		return "", fmt.Errorf("quote target %q: %w", s.Target, err)
	}

	return "time head -c " + strconv.FormatUint(s.Size.Bytes, 10) +
		" <" + src + " >" + dst, nil
}
