package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/TobiSchelling/ContentMachine/internal/pipeline"
	"github.com/TobiSchelling/ContentMachine/internal/topics"
)

var (
	indexStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33")).Width(4).Align(lipgloss.Right)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).PaddingLeft(5)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
)

func printSteps(w io.Writer, r *pipeline.Result) {
	if r == nil {
		return
	}
	for i, step := range r.Steps {
		fmt.Fprintf(w, "Step %d/4: %s\n", i+1, step.Name)
		if step.Summary != "" {
			fmt.Fprintf(w, "  %s\n", step.Summary)
		}
		if step.Err != nil {
			fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("  Error: %v", step.Err)))
		}
	}
}

func printTopics(w io.Writer, list []topics.Topic) {
	fmt.Fprintln(w, titleStyle.Render("Trending Topics"))
	for _, t := range list {
		fmt.Fprintf(w, "%s %s\n", indexStyle.Render(fmt.Sprintf("%d.", t.Index)), titleStyle.Render(t.Title))
		if t.Reason != "" {
			fmt.Fprintln(w, detailStyle.Render(t.Reason))
		}
	}
}

// renderPost prints a post body, as styled markdown when w is a terminal.
func renderPost(w io.Writer, body string) {
	if isTerminal(w) {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
		if err == nil {
			if out, err := r.Render(body); err == nil {
				fmt.Fprint(w, out)
				return
			}
		}
	}
	fmt.Fprintln(w, body)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
