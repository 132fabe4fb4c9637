package output

import (
	"fmt"
	"io"
	"os"

	"github.com/mj1618/gridcheck/internal/report"
	"github.com/mj1618/gridcheck/internal/steps"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// OutputFormat is the current output format, set by the root command's --format flag.
var OutputFormat Format = FormatYAML

// PrettyOutput enables pretty-printing for JSON output.
var PrettyOutput bool

// Stdout is where Print writes.
var Stdout io.Writer = os.Stdout

// ParseFormat maps a --format value to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatYAML, "":
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (use yaml or json)", s)
	}
}

// RunResult is the output of a scenario run.
type RunResult struct {
	OK        bool           `yaml:"ok"              json:"ok"`
	Steps     int            `yaml:"steps"           json:"steps"`
	Completed int            `yaml:"completed"       json:"completed"`
	Error     string         `yaml:"error,omitempty" json:"error,omitempty"`
	Results   []steps.Result `yaml:"results"         json:"results"`
	Summary   report.Summary `yaml:"summary"         json:"summary"`
}

// Print serializes v to Stdout in the current output format.
func Print(v interface{}) error {
	return Write(Stdout, OutputFormat, PrettyOutput, v)
}

// Write serializes v to w in format f.
func Write(w io.Writer, f Format, pretty bool, v interface{}) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, v, pretty)
	case FormatYAML:
		return WriteYAML(w, v)
	default:
		return fmt.Errorf("unsupported output format: %s", f)
	}
}
