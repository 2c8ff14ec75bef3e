package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/njchilds90/spacetime/library"
	"github.com/njchilds90/spacetime/server"
	"github.com/njchilds90/spacetime/tensor"
	"github.com/njchilds90/spacetime/worldline"
)

var (
	colorAccent = lipgloss.Color("#2CD7C7")
	colorMuted  = lipgloss.Color("#2C4A54")
	colorError  = lipgloss.Color("#E74C3C")
)

var styles = struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Label:   lipgloss.NewStyle().Foreground(colorAccent),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
	Success: lipgloss.NewStyle().Foreground(colorAccent),
	Error:   lipgloss.NewStyle().Foreground(colorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorMuted).
		Padding(0, 1),
}

// printer writes command output, styled only when w is a terminal.
type printer struct {
	w      io.Writer
	styled bool
}

func newPrinter(w io.Writer) *printer {
	p := &printer{w: w}
	if f, ok := w.(*os.File); ok {
		p.styled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return p
}

func (p *printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

func (p *printer) title(text string) {
	fmt.Fprintln(p.w, p.render(styles.Title, text))
}

func (p *printer) value(label, v string) {
	if p.styled {
		fmt.Fprintln(p.w, styles.Box.Render(styles.Label.Render(label)+" = "+v))
		return
	}
	fmt.Fprintf(p.w, "%s = %s\n", label, v)
}

func (p *printer) success(msg string) {
	fmt.Fprintln(p.w, p.render(styles.Success, "✓ "+msg))
}

func (p *printer) errorLine(err error) {
	fmt.Fprintln(p.w, p.render(styles.Error, "✗ "+err.Error()))
}

func (p *printer) hits(results []library.Result) {
	if len(results) == 0 {
		fmt.Fprintln(p.w, p.render(styles.Muted, "no matches"))
		return
	}
	for _, r := range results {
		fmt.Fprintf(p.w, "%s  %s  %s\n",
			p.render(styles.Label, r.Entry.Name),
			p.render(styles.Muted, "("+string(r.Entry.Kind)+")"),
			p.render(styles.Muted, strings.Join(r.Entry.Tags, ", ")))
	}
}

// indexLabel renders name with its indices in the given representation:
// ricci_{01}, ricci^{01} or riemann^{0}_{123}.
func indexLabel(name string, v tensor.Variance, idx []int) string {
	digits := func(ix []int) string {
		var b strings.Builder
		for _, i := range ix {
			b.WriteString(strconv.Itoa(i))
		}
		return b.String()
	}
	switch {
	case v == tensor.Covariant:
		return name + "_{" + digits(idx) + "}"
	case v == tensor.Contravariant || len(idx) < 2:
		return name + "^{" + digits(idx) + "}"
	}
	return name + "^{" + digits(idx[:1]) + "}_{" + digits(idx[1:]) + "}"
}

func (p *printer) components(name string, v tensor.Variance, rows []server.ReportRow, latex bool) {
	p.title(fmt.Sprintf("%s (%s)", name, v))
	if len(rows) == 0 {
		fmt.Fprintln(p.w, p.render(styles.Muted, "all components vanish"))
		return
	}
	for _, r := range rows {
		expr := r.String
		if latex {
			expr = r.LaTeX
		}
		fmt.Fprintf(p.w, "%s = %s\n", p.render(styles.Label, indexLabel(name, v, r.Indices)), expr)
	}
}

func (p *printer) states(coords []string, states []worldline.State) {
	header := append([]string{"tau"}, coords...)
	p.title(strings.Join(header, "\t"))
	for _, s := range states {
		cols := []string{strconv.FormatFloat(s.Tau, 'g', 8, 64)}
		for _, x := range s.Position {
			cols = append(cols, strconv.FormatFloat(x, 'g', 8, 64))
		}
		fmt.Fprintln(p.w, strings.Join(cols, "\t"))
	}
}
