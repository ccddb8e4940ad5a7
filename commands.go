package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/brunoscheufler/quicknotes/cli"
	"github.com/brunoscheufler/quicknotes/notebook"
	"github.com/brunoscheufler/quicknotes/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newInitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Prepare the note storage, adding a sample note to an empty local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Store.Initialize(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s note storage\n", app.Store.Backend())
			return nil
		},
	}
}

func newListCmd(app *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list [query]",
		Short: "List notes, most recently updated first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			notes := app.Store.List(cmd.Context(), query)
			return writeNotes(cmd.OutOrStdout(), notes, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json or yaml)")
	return cmd
}

func newCreateCmd(app *App) *cobra.Command {
	var title, content string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readContent(cmd.InOrStdin(), content)
			if err != nil {
				return err
			}

			note := app.Store.Create(cmd.Context(), title, body)
			fmt.Fprintln(cmd.OutOrStdout(), note.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Note title")
	cmd.Flags().StringVar(&content, "content", "", "Note content, or - to read it from stdin")
	return cmd
}

func newEditCmd(app *App) *cobra.Command {
	var title, content string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace the title or content of a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]

			current, ok := findNote(app.Store.List(ctx, ""), id)
			if !ok {
				return fmt.Errorf("note %s: %w", id, store.ErrNoteNotFound)
			}

			if cmd.Flags().Changed("title") {
				current.Title = title
			}
			if cmd.Flags().Changed("content") {
				body, err := readContent(cmd.InOrStdin(), content)
				if err != nil {
					return err
				}
				current.Content = body
			}

			updated := app.Store.Update(ctx, id, current.Title, current.Content)
			if updated == nil {
				return fmt.Errorf("failed to update note %s", id)
			}

			fmt.Fprintln(cmd.OutOrStdout(), updated.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&content, "content", "", "New content, or - to read it from stdin")
	return cmd
}

func newDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.Store.Delete(cmd.Context(), args[0]) {
				return fmt.Errorf("failed to delete note %s", args[0])
			}
			return nil
		},
	}
}

func addTUIFlags(cmd *cobra.Command) {
	cmd.Flags().String("theme", "dark", "Theme for the terminal UI (dark or light)")
	cmd.Flags().String("view", "grid", "Initial notes layout (grid or list)")
}

func newTUICmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse and edit notes in the terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}

	addTUIFlags(cmd)
	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	nb := notebook.New(app.Store, app.Telemetry.GetLogger())

	return cli.RunCLI(&cli.AppConfig{
		Notebook:  nb,
		Telemetry: app.Telemetry,
		Backend:   app.Store.Backend(),
	}, cli.CLIOptions{
		Theme: app.Config.UI.Theme,
		View:  app.Config.UI.View,
	})
}

func findNote(notes []store.Note, id string) (store.Note, bool) {
	for _, note := range notes {
		if note.ID == id {
			return note, true
		}
	}
	return store.Note{}, false
}

// readContent returns value, or all of stdin when value is "-".
func readContent(stdin io.Reader, value string) (string, error) {
	if value != "-" {
		return value, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read content from stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

var errUnknownFormat = errors.New("unknown output format")

func writeNotes(w io.Writer, notes []store.Note, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(notes)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(notes); err != nil {
			return fmt.Errorf("failed to encode notes: %w", err)
		}
		return enc.Close()
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tUPDATED\tCONTENT")
		for _, note := range notes {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				note.ID,
				note.Title,
				note.UpdatedAt.Local().Format(time.DateTime),
				summarize(note.Content, 60),
			)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("%w %q: must be table, json or yaml", errUnknownFormat, format)
	}
}

// summarize flattens content onto one line of at most max runes.
func summarize(content string, max int) string {
	flat := []rune(strings.Join(strings.Fields(content), " "))
	if len(flat) <= max {
		return string(flat)
	}
	return string(flat[:max-3]) + "..."
}
