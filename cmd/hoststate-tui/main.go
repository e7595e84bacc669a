package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/hoststate/hoststate/internal/observer"
	"github.com/hoststate/hoststate/internal/tui"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var wsURL, logFile string
	flagSet := pflag.NewFlagSet("hoststate-tui", pflag.ContinueOnError)
	flagSet.StringVarP(&wsURL, "url", "u", "ws://127.0.0.1:9061/ws", "websocket URL of the hoststated server")
	flagSet.StringVar(&logFile, "log-file", "", "write client logs to this file (discarded otherwise)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	// Log lines would corrupt the alt screen.
	log.SetOutput(io.Discard)
	if logFile != "" {
		f, err := tea.LogToFile(logFile, "hoststate-tui")
		if err != nil {
			return err
		}
		defer f.Close()
	}

	m := tui.New(observer.NewClient(wsURL))
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
