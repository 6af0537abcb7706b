package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

// Status output for headless commands runs outside the TUI.
var (
	okMark   = color.New(color.FgGreen, color.Bold).SprintFunc()
	failMark = color.New(color.FgRed, color.Bold).SprintFunc()
)

func printOK(w io.Writer, msg string) {
	fmt.Fprintf(w, "  %s %s\n", okMark("✓"), msg)
}

func printFail(w io.Writer, msg string) {
	fmt.Fprintf(w, "  %s %s\n", failMark("✗"), msg)
}

func printHelp(w io.Writer) {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4ade80")).
		Bold(true).
		Render("M U R M U R")

	tagline := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		Render("A quiet room to talk to your AI.")

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	commands := []struct{ cmd, desc string }{
		{"murmur", "Open the chat room (interactive TUI)"},
		{"murmur export [dir]", "Write the room's conversation to a JSON file"},
		{"murmur clear", "Delete every stored message in the room"},
		{"murmur doctor", "Check the backend, store and preferences"},
		{"murmur --version", "Show version"},
		{"murmur help", "You are here"},
	}

	fmt.Fprintf(w, "\n  %s\n\n  %s\n\n  Commands:\n", title, tagline)
	for _, c := range commands {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", c.cmd)), descStyle.Render(c.desc))
	}

	env := descStyle.Render("Configure with MURMUR_* environment variables or a .env file.")
	fmt.Fprintf(w, "\n  %s\n\n", env)
}
