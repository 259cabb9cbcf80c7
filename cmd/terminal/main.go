package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/viper"

	"github.com/sevigo/diffwarden/internal/config"
)

func main() {
	// Log lines would corrupt the alternate screen.
	viper.Set("logging.output", "file")

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	themeFlag := flag.String("theme", "", "UI theme (cyan, matrix, amber, cyberpunk, ice, dracula, fire)")
	listThemes := flag.Bool("list-themes", false, "List all available themes")
	noReview := flag.Bool("no-review", false, "Do not review the staged changes on startup")
	flag.Parse()

	if *listThemes {
		fmt.Println("Available themes:")
		for _, theme := range ListThemes() {
			fmt.Printf("  - %s\n", theme)
		}
		os.Exit(0)
	}

	selectedTheme := *themeFlag
	if selectedTheme == "" {
		selectedTheme = os.Getenv("DIFFWARDEN_THEME")
	}
	if selectedTheme == "" {
		selectedTheme = cfg.Terminal.Theme
	}
	if selectedTheme == "" {
		selectedTheme = string(ThemeCyan)
	}

	theme, err := ParseTheme(selectedTheme)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	repoPath := "."
	if flag.NArg() > 0 {
		repoPath = flag.Arg(0)
	}

	m := initialModel(theme, repoPath, !*noReview)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	m.shutdown()
	if err != nil {
		slog.Error("error running program", "error", err)
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
