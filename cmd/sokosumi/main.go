package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sokosumi/cli/internal/config"
	"github.com/sokosumi/cli/internal/tui"
)

func main() {
	envPath := flag.String("env", ".env", "Path to the .env file holding SOKOSUMI_API_URL and SOKOSUMI_API_KEY")
	altScreen := flag.Bool("alt-screen", true, "Run in the terminal's alternate screen")
	flag.Parse()

	cfg := config.Load(*envPath)

	opts := []tea.ProgramOption{}
	if *altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(tui.New(cfg), opts...)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "sokosumi fatal error: %v\n", err)
		os.Exit(1)
	}
}
