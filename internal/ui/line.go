package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dpshade/prompt-manager/internal/models"
	"github.com/dpshade/prompt-manager/internal/resolver"
)

// LineCollector reads one line per value. It is used when input is piped
// rather than typed at a terminal. Multiline values are read until a line
// holding a single ".". End of input skips the field.
type LineCollector struct {
	out     io.Writer
	scanner *bufio.Scanner
}

// NewLineCollector reads answers from in and writes prompts to out.
func NewLineCollector(in io.Reader, out io.Writer) *LineCollector {
	return &LineCollector{out: out, scanner: bufio.NewScanner(in)}
}

// Collect implements resolver.Collector.
func (l *LineCollector) Collect(ctx context.Context, req resolver.Request) (resolver.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return resolver.Outcome{}, err
	}

	fmt.Fprint(l.out, l.prompt(req))

	if req.Type == models.VariableMultiline {
		var lines []string
		for l.scanner.Scan() {
			line := l.scanner.Text()
			if line == "." {
				return resolver.Value(strings.Join(lines, "\n")), nil
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			return resolver.Value(strings.Join(lines, "\n")), l.scanner.Err()
		}
		return resolver.Skip(), l.scanner.Err()
	}

	if !l.scanner.Scan() {
		return resolver.Skip(), l.scanner.Err()
	}
	return resolver.Value(strings.TrimSpace(l.scanner.Text())), nil
}

func (l *LineCollector) prompt(req resolver.Request) string {
	var b strings.Builder
	if req.Problem != "" {
		fmt.Fprintf(&b, "%s\n", req.Problem)
	}
	b.WriteString(req.Name)
	if req.Required {
		b.WriteString(" *")
	}
	if req.Description != "" {
		fmt.Fprintf(&b, " - %s", req.Description)
	}
	if len(req.Options) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(req.Options, "|"))
	}
	if req.Default != "" {
		fmt.Fprintf(&b, " (default %s)", req.Default)
	}
	if req.Type == models.VariableMultiline {
		b.WriteString(", end with a line containing only \".\"")
	}
	b.WriteString(": ")
	return b.String()
}
