// Interview - terminal client for the chef interview server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ashureev/chef-interview/internal/client"
	"github.com/ashureev/chef-interview/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	defaultServer := os.Getenv("INTERVIEW_SERVER_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	server := flag.String("server", defaultServer, "interview server base URL")
	pdfPath := flag.String("pdf", "generated_note.pdf", "where ctrl+s saves the PDF")
	flag.Parse()

	model := tui.New(client.NewAPI(*server), *pdfPath)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "interview: %v\n", err)
		os.Exit(1)
	}
}
