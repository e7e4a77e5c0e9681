// Package ui is the terminal front end: it renders the character grid, the
// recording progress and the response panel, and turns typed commands into
// app calls.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/dooshek/voiceassist/internal/catalog"
	"github.com/dooshek/voiceassist/internal/recording"
	"github.com/dooshek/voiceassist/internal/state"
	"github.com/dooshek/voiceassist/internal/submit"
	"github.com/fatih/color"
)

const barWidth = 30

var (
	selectedStyle = color.New(color.FgGreen, color.Bold)
	labelStyle    = color.New(color.FgCyan)
	dimStyle      = color.New(color.Faint)
	errorStyle    = color.New(color.FgRed)
	recordStyle   = color.New(color.FgRed, color.Bold)
)

// RenderGrid writes one box per character in catalog order
func RenderGrid(w io.Writer, v state.View) {
	cat := v.Catalog()
	if cat.Len() == 0 {
		fmt.Fprintln(w, "No characters available.")
		return
	}
	for _, ch := range cat.Characters() {
		renderBox(w, v, ch)
	}
}

func renderBox(w io.Writer, v state.View, ch catalog.Character) {
	selected := v.SelectedBox() == ch.Name
	marker := " "
	name := ch.Name
	if selected {
		marker = "*"
		name = selectedStyle.Sprint(ch.Name)
	}

	fmt.Fprintf(w, "%s %s %s\n", marker, catalog.Icon(ch.Name), name)
	if ch.Description != "" {
		fmt.Fprintf(w, "    %s\n", dimStyle.Sprint(ch.Description))
	}

	arrow := "▾"
	if v.OpenDropdown() == ch.Name {
		arrow = "▴"
	}
	fmt.Fprintf(w, "    %s %s %s\n", labelStyle.Sprint("Language:"), v.DropdownLabel(ch.Name), arrow)

	if v.OpenDropdown() != ch.Name {
		return
	}
	current := v.Selection()
	for _, l := range ch.Languages {
		mark := " "
		if selected && current.Language == l.Name {
			mark = "›"
		}
		fmt.Fprintf(w, "      %s %s (%s)\n", mark, l.Name, l.Code)
	}
}

// RenderSelection is the one-line summary shown after each selection change
func RenderSelection(v state.View) string {
	sel := v.Selection()
	if sel.Character == "" {
		return "No character selected"
	}
	lang := sel.Language
	if lang == "" {
		lang = state.NoLanguageLabel
	}
	line := fmt.Sprintf("%s %s, %s", catalog.Icon(sel.Character), sel.Character, lang)
	if src, ok := v.SourceLanguage(); ok {
		line += fmt.Sprintf(" (you speak %s)", src)
	}
	return line
}

// RenderProgress draws the recording progress bar. level is the input level
// in [0,1] and is only shown while recording.
func RenderProgress(p recording.Progress, level float64) string {
	switch p.State {
	case recording.Recording:
		return fmt.Sprintf("%s %s %s / %s %s",
			recordStyle.Sprint("●"),
			bar(p.Fraction()),
			clock(p.Elapsed), clock(p.Max),
			meter(level))
	case recording.Processing:
		return fmt.Sprintf("  %s %s", bar(1), p.Label)
	default:
		return ""
	}
}

// RenderResponse formats the response panel
func RenderResponse(r submit.Response) string {
	if r.Error != "" {
		return errorStyle.Sprint(r.Error)
	}
	if r.Pending {
		return dimStyle.Sprint(r.String())
	}
	rows := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		if l.Label == "" {
			rows = append(rows, l.Text)
			continue
		}
		rows = append(rows, labelStyle.Sprint(l.Label)+" "+l.Text)
	}
	return strings.Join(rows, "\n")
}

func bar(fraction float64) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*barWidth + 0.5)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
}

func meter(level float64) string {
	const width = 8
	n := int(level*width + 0.5)
	if n > width {
		n = width
	}
	if n < 0 {
		n = 0
	}
	return strings.Repeat("▮", n) + strings.Repeat("▯", width-n)
}

func clock(secs int) string {
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
