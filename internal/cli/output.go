package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/muesli/termenv"

	"github.com/vietddude/armctl/internal/core/domain"
)

// printer writes command results. Colour is used only on terminals.
type printer struct {
	w, errW io.Writer
	stdout  *termenv.Output
	stderr  *termenv.Output
}

func newPrinter(stdout, stderr io.Writer) *printer {
	return &printer{
		w:      stdout,
		errW:   stderr,
		stdout: termenv.NewOutput(stdout),
		stderr: termenv.NewOutput(stderr),
	}
}

// OK prints "OK: summary" and resp as indented JSON with sorted keys.
func (p *printer) OK(summary string, resp domain.Object) error {
	label := p.stdout.String("OK:").Foreground(p.stdout.Color("2")).Bold()
	if _, err := fmt.Fprintf(p.w, "%s %s\n", label, summary); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}

	// encoding/json sorts map keys.
	b, err := json.MarshalIndent(resp.Native(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	_, err = fmt.Fprintln(p.w, string(b))
	return err
}

// Fail prints "<Kind>: <message>" for err.
func (p *printer) Fail(err error) {
	msg := err.Error()
	if _, ok := domain.KindOf(err); !ok {
		msg = "Error: " + msg
	}
	_, _ = fmt.Fprintln(p.errW, p.stderr.String(msg).Foreground(p.stderr.Color("1")))
}

// Warn prints a non-fatal problem.
func (p *printer) Warn(msg string) {
	_, _ = fmt.Fprintln(p.errW, p.stderr.String("warning: "+msg).Foreground(p.stderr.Color("3")))
}

// Writer exposes stdout for tabular output.
func (p *printer) Writer() io.Writer {
	return p.w
}
