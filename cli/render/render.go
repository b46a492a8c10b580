// Package render provides centralized output rendering for the kodrdriv CLI.
//
// Format selection rules:
//   - If output is a TTY, default to table
//   - If output is not a TTY, default to json
//   - --format always overrides defaults
//   - Invalid formats are errors
//
// --no-color affects table output only; TUI mode uses its own styling.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string, returning an error for invalid formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	case "yaml":
		return FormatYAML, nil
	case "":
		return "", nil // Let caller decide default
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

// Renderer handles output formatting.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer creates a renderer from CLI context, applying the TTY-based
// format default.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	if format == "" {
		if isTTY(os.Stdout) {
			format = FormatTable
		} else {
			format = FormatJSON
		}
	}
	return &Renderer{format: format, noColor: c.Bool("no-color"), out: os.Stdout}, nil
}

// NewRendererWithWriter creates a renderer with a custom writer (for testing).
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{format: format, noColor: noColor, out: out}
}

// Format returns the resolved output format, defaults applied.
func (r *Renderer) Format() Format {
	return r.format
}

// Render outputs the data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		return enc.Encode(data)
	case FormatTable:
		return r.renderTable(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// Println writes a plain line in table mode and is a no-op otherwise,
// letting callers attach human-only context around structured output.
func (r *Renderer) Println(line string) {
	if r.format == FormatTable {
		fmt.Fprintln(r.out, line)
	}
}

// Statusln writes a styled status line in table mode: green when ok,
// red otherwise. Styling is dropped under --no-color.
func (r *Renderer) Statusln(ok bool, line string) {
	if r.format != FormatTable {
		return
	}
	if r.noColor {
		fmt.Fprintln(r.out, line)
		return
	}
	style := successStyle
	if !ok {
		style = errorStyle
	}
	fmt.Fprintln(r.out, style.Render(line))
}

// renderTable renders a slice as a header+rows table and anything else as
// a field:value listing, using struct json tags for names.
func (r *Renderer) renderTable(data any) error {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() == reflect.Slice {
		if v.Len() == 0 {
			fmt.Fprintln(r.out, "(no results)")
			return nil
		}
		w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintln(w, strings.Join(fieldNames(v.Index(0)), "\t"))
		for i := 0; i < v.Len(); i++ {
			fmt.Fprintln(w, strings.Join(fieldValues(v.Index(i)), "\t"))
		}
		return nil
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if v.Kind() == reflect.Struct {
		names := fieldNames(v)
		values := fieldValues(v)
		for i := range names {
			fmt.Fprintf(w, "%s:\t%s\n", names[i], values[i])
		}
		return nil
	}

	fmt.Fprintf(w, "%v\n", data)
	return nil
}

func fieldNames(v reflect.Value) []string {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	var names []string
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if name, ok := fieldName(t.Field(i)); ok {
			names = append(names, name)
		}
	}
	return names
}

func fieldValues(v reflect.Value) []string {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	var values []string
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if _, ok := fieldName(t.Field(i)); !ok {
			continue
		}
		values = append(values, fmt.Sprintf("%v", v.Field(i).Interface()))
	}
	return values
}

func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// fieldName resolves the display name of a struct field from its json tag,
// skipping unexported and json:"-" fields.
func fieldName(f reflect.StructField) (string, bool) {
	if f.PkgPath != "" {
		return "", false
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	if tag != "" {
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			return name, true
		}
	}
	return f.Name, true
}
