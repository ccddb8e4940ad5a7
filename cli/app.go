package cli

import (
	"github.com/brunoscheufler/quicknotes/notebook"
	"github.com/brunoscheufler/quicknotes/telemetry"
)

// AppConfig groups common application dependencies to reduce parameter lists
type AppConfig struct {
	Notebook  *notebook.Notebook
	Telemetry *telemetry.Telemetry
	Backend   string
}

type CLIOptions struct {
	Theme string
	View  string
}

// RunCLI starts the terminal UI and blocks until the user quits
func RunCLI(appConfig *AppConfig, options CLIOptions) error {
	cliApp := NewCLIApp(appConfig, options)
	cliApp.Setup()

	return cliApp.Start()
}
