// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package render formats ethers-build results for the terminal.
//
// A [Renderer] is bound to one output stream. Colors follow the stream:
// in "auto" mode a terminal gets the richest profile it advertises
// (respecting NO_COLOR and CLICOLOR_FORCE) and anything else gets plain
// text, so piped output is stable and grep-able. Diffs from git are
// syntax-highlighted with chroma when color is on.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/slug/lib/generator"
	"github.com/bureau-foundation/slug/lib/versions"
)

// Theme is the color palette for command output, in ANSI 256-color
// codes.
type Theme struct {
	Added     lipgloss.Color
	Removed   lipgloss.Color
	Modified  lipgloss.Color
	Untracked lipgloss.Color
	Warning   lipgloss.Color
	Heading   lipgloss.Color
	Faint     lipgloss.Color

	// DiffStyle is the chroma style name for highlighted diffs.
	DiffStyle string
}

// DefaultTheme targets dark-background terminals.
var DefaultTheme = Theme{
	Added:     lipgloss.Color("114"), // green
	Removed:   lipgloss.Color("196"), // red
	Modified:  lipgloss.Color("220"), // amber
	Untracked: lipgloss.Color("245"), // gray
	Warning:   lipgloss.Color("208"), // orange
	Heading:   lipgloss.Color("255"),
	Faint:     lipgloss.Color("241"),
	DiffStyle: "monokai",
}

// Renderer writes styled output to one stream.
type Renderer struct {
	out     io.Writer
	profile termenv.Profile
	lip     *lipgloss.Renderer
	theme   Theme
}

// New returns a Renderer for out. mode is "auto", "always" or "never";
// anything else behaves as "auto".
func New(out io.Writer, mode string) *Renderer {
	var profile termenv.Profile
	switch mode {
	case "always":
		profile = termenv.ANSI256
	case "never":
		profile = termenv.Ascii
	default:
		profile = termenv.NewOutput(out).EnvColorProfile()
	}

	lip := lipgloss.NewRenderer(out, termenv.WithProfile(profile))
	lip.SetColorProfile(profile)
	return &Renderer{out: out, profile: profile, lip: lip, theme: DefaultTheme}
}

// Colored reports whether output carries ANSI styling.
func (r *Renderer) Colored() bool {
	return r.profile != termenv.Ascii
}

func (r *Renderer) style(color lipgloss.Color) lipgloss.Style {
	return r.lip.NewStyle().Foreground(color)
}

func (r *Renderer) println(text string) {
	fmt.Fprintln(r.out, text)
}

// changeLabels pads each change kind to a common width so filenames
// line up.
var changeLabels = map[versions.ChangeKind]string{
	versions.Added:    "added:     ",
	versions.Removed:  "removed:   ",
	versions.Modified: "modified:  ",
}

func (r *Renderer) changeColor(kind versions.ChangeKind) lipgloss.Color {
	switch kind {
	case versions.Added:
		return r.theme.Added
	case versions.Removed:
		return r.theme.Removed
	default:
		return r.theme.Modified
	}
}

// Status writes the status listing for a diff between from and to.
func (r *Renderer) Status(from, to string, result versions.Result) {
	heading := r.lip.NewStyle().Bold(true).Foreground(r.theme.Heading)
	r.println(r.style(r.theme.Faint).Render(fmt.Sprintf("Comparing %s to %s", from, to)))

	if len(result.Changes) == 0 {
		r.println("No files changed.")
	} else {
		r.println(heading.Render("File Status:"))
		for _, change := range result.Changes {
			label := r.style(r.changeColor(change.Kind)).Render(changeLabels[change.Kind])
			r.println("    " + label + change.Filename)
		}
	}

	if len(result.Untracked) > 0 {
		r.println(heading.Render("Untracked Files:"))
		untracked := r.style(r.theme.Untracked)
		for _, filename := range result.Untracked {
			r.println("    " + untracked.Render(filename))
		}
	}
}

// Change writes the one-line form of an added or removed file used by
// the diff command.
func (r *Renderer) Change(change versions.Change) {
	var label string
	switch change.Kind {
	case versions.Added:
		label = "Added: "
	case versions.Removed:
		label = "Removed: "
	default:
		label = "Modified: "
	}
	r.println(r.style(r.changeColor(change.Kind)).Render(label) + change.Filename)
}

// Diff writes unified diff text, highlighted when color is on.
func (r *Renderer) Diff(text string) error {
	if text == "" {
		return nil
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if !r.Colored() {
		_, err := io.WriteString(r.out, text)
		return err
	}
	formatter := "terminal256"
	if r.profile == termenv.TrueColor {
		formatter = "terminal16m"
	}
	if err := quick.Highlight(r.out, text, "diff", formatter, r.theme.DiffStyle); err != nil {
		_, err = io.WriteString(r.out, text)
		return err
	}
	return nil
}

// Warnings writes generator warnings, one per line.
func (r *Renderer) Warnings(warnings []generator.Warning) {
	if len(warnings) == 0 {
		return
	}
	r.println(r.lip.NewStyle().Bold(true).Foreground(r.theme.Warning).Render("WARNING:"))
	for _, warning := range warnings {
		r.println("  " + r.style(r.theme.Warning).Render(warning.String()))
	}
}

// List writes a heading and an indented list of lines.
func (r *Renderer) List(heading string, lines []string) {
	r.println(r.lip.NewStyle().Bold(true).Foreground(r.theme.Heading).Render(heading))
	for _, line := range lines {
		r.println("  " + line)
	}
}

// Field writes "name: value" with the name faint.
func (r *Renderer) Field(name, value string) {
	r.println(r.style(r.theme.Faint).Render(name+":") + " " + value)
}

// Note writes an indented aside in the faint color.
func (r *Renderer) Note(text string) {
	r.println("  " + r.style(r.theme.Faint).Render("("+text+")"))
}

// Success writes a line in the added color.
func (r *Renderer) Success(text string) {
	r.println(r.style(r.theme.Added).Render(text))
}

// Line writes unstyled text.
func (r *Renderer) Line(text string) {
	r.println(text)
}
