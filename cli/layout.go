package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bep/debounce"
	"github.com/brunoscheufler/quicknotes/constants"
	"github.com/brunoscheufler/quicknotes/notebook"
	"github.com/brunoscheufler/quicknotes/store"
	"github.com/brunoscheufler/quicknotes/telemetry"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	pageMain    = "main"
	pageEditor  = "editor"
	pageConfirm = "confirm"
)

type CLIApp struct {
	app        *tview.Application
	pages      *tview.Pages
	body       *tview.Flex
	headerView *tview.TextView
	searchView *tview.InputField
	notesTable *tview.Table
	statusView *tview.TextView
	logView    *tview.TextView

	notebook  *notebook.Notebook
	telemetry *telemetry.Telemetry
	backend   string
	options   CLIOptions
	theme     Theme

	view      ViewMode
	showLogs  bool
	lastWidth int
	// shown is the snapshot currently rendered in notesTable.
	shown   []store.Note
	columns int

	search func(func())

	ctx    context.Context
	cancel context.CancelFunc
}

func NewCLIApp(appConfig *AppConfig, options CLIOptions) *CLIApp {
	ctx, cancel := context.WithCancel(context.Background())

	return &CLIApp{
		app:       tview.NewApplication(),
		notebook:  appConfig.Notebook,
		telemetry: appConfig.Telemetry,
		backend:   appConfig.Backend,
		options:   options,
		theme:     GetTheme(options.Theme),
		view:      ParseViewMode(options.View),
		columns:   1,
		search:    debounce.New(constants.SearchDebounce),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (c *CLIApp) Setup() {
	theme := c.theme
	ApplyTheme(theme)

	c.headerView = tview.NewTextView()
	c.headerView.SetDynamicColors(true)
	c.headerView.SetText(fmt.Sprintf("%s quicknotes %s· %s", theme.TitleTag, theme.MutedTag, c.backend))
	ApplyThemeToTextView(c.headerView, theme)

	c.searchView = tview.NewInputField()
	c.searchView.SetLabel(" Search: ")
	c.searchView.SetFieldBackgroundColor(tcell.ColorDefault)
	c.searchView.SetFieldTextColor(theme.Foreground)
	c.searchView.SetLabelColor(theme.Accent)
	c.searchView.SetChangedFunc(func(text string) {
		c.search(func() {
			c.notebook.Refresh(c.ctx, text)
		})
	})
	c.searchView.SetDoneFunc(func(key tcell.Key) {
		c.app.SetFocus(c.notesTable)
	})

	c.notesTable = tview.NewTable()
	c.notesTable.SetBorder(true)
	c.notesTable.SetTitleAlign(tview.AlignLeft)
	c.notesTable.SetBorderColor(theme.Border)
	c.notesTable.SetTitleColor(theme.Title)
	c.notesTable.SetSelectedStyle(selectedStyle(theme))
	c.notesTable.SetSelectedFunc(func(row, col int) {
		c.editSelected()
	})
	c.notesTable.SetInputCapture(c.handleTableKey)

	c.statusView = tview.NewTextView()
	c.statusView.SetDynamicColors(true)
	ApplyThemeToTextView(c.statusView, theme)

	c.logView = tview.NewTextView()
	c.logView.SetBorder(true)
	c.logView.SetTitle(" Logs ")
	c.logView.SetTitleAlign(tview.AlignLeft)
	c.logView.SetDynamicColors(true)
	c.logView.SetScrollable(true)
	ApplyThemeToTextView(c.logView, theme)

	header := tview.NewFlex()
	header.SetDirection(tview.FlexColumn)
	header.AddItem(c.headerView, 0, 1, false)
	header.AddItem(c.searchView, 0, 2, false)

	c.body = tview.NewFlex()
	c.body.SetDirection(tview.FlexRow)
	c.body.AddItem(header, 1, 0, false)
	c.body.AddItem(c.notesTable, 0, 3, true)
	c.body.AddItem(c.statusView, 1, 0, false)

	c.pages = tview.NewPages()
	c.pages.AddPage(pageMain, c.body, true, true)

	c.app.SetRoot(c.pages, true)
	c.app.EnableMouse(true)
	c.app.SetFocus(c.notesTable)

	c.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			c.Stop()
			return nil
		}
		return event
	})

	// Grid layout depends on the terminal width
	c.app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		width, _ := screen.Size()
		if width != c.lastWidth {
			c.lastWidth = width
			c.renderNotes()
		}
		return false
	})

	c.notebook.OnChange(func() {
		c.app.QueueUpdateDraw(c.renderNotes)
	})

	if c.telemetry != nil {
		c.telemetry.LogCapture.SetLogCallback(func(entry telemetry.LogEntry) {
			c.appendLog(FormatLogEntryWithTheme(entry, theme))
		})
	}

	c.renderNotes()
}

func (c *CLIApp) Start() error {
	go c.notebook.Start(c.ctx)
	go c.loadExistingLogs()

	// Start the TUI
	return c.app.Run()
}

func (c *CLIApp) Stop() {
	c.cancel()
	if c.telemetry != nil {
		c.telemetry.LogCapture.SetLogCallback(nil)
	}
	c.app.Stop()
}

func (c *CLIApp) handleTableKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEscape:
		c.Stop()
		return nil
	case tcell.KeyDelete:
		c.confirmDeleteSelected()
		return nil
	}

	switch event.Rune() {
	case 'q':
		c.Stop()
		return nil
	case '/':
		c.app.SetFocus(c.searchView)
		return nil
	case 'n':
		c.showEditor(nil)
		return nil
	case 'e':
		c.editSelected()
		return nil
	case 'd':
		c.confirmDeleteSelected()
		return nil
	case 'v':
		c.view = c.view.Toggle()
		c.renderNotes()
		return nil
	case 'l':
		c.toggleLogs()
		return nil
	case 'r':
		go c.notebook.Refresh(c.ctx, c.notebook.Query())
		return nil
	}

	return event
}

func (c *CLIApp) toggleLogs() {
	c.showLogs = !c.showLogs
	if c.showLogs {
		c.body.AddItem(c.logView, 0, 1, false)
		c.logView.ScrollToEnd()
	} else {
		c.body.RemoveItem(c.logView)
	}
}

// renderNotes redraws the note table from the notebook. It must run on the
// UI goroutine.
func (c *CLIApp) renderNotes() {
	c.shown = c.notebook.Notes()
	c.statusView.SetText(c.theme.MutedTag + " " + statusText(c.notebook.Loading(), len(c.shown), c.notebook.Query()) +
		"   [n]ew [e]dit [d]elete [v]iew [/]search [l]ogs [q]uit")

	selected := c.selectedIndex()
	c.notesTable.Clear()

	if len(c.shown) == 0 {
		c.notesTable.SetTitle(" Notes ")
		c.notesTable.SetSelectable(false, false)
		message := "No notes yet. Press n to create one."
		if strings.TrimSpace(c.notebook.Query()) != "" {
			message = "No notes match your search."
		}
		c.notesTable.SetCell(0, 0, tview.NewTableCell(message).
			SetTextColor(c.theme.Secondary).
			SetSelectable(false))
		return
	}

	now := time.Now()
	switch c.view {
	case ViewList:
		c.renderList(now)
	default:
		c.renderGrid(now)
	}

	if selected >= len(c.shown) {
		selected = len(c.shown) - 1
	}
	if selected < 0 {
		selected = 0
	}
	c.selectIndex(selected)
}

func (c *CLIApp) renderList(now time.Time) {
	c.columns = 1
	c.notesTable.SetTitle(" Notes (list) ")
	c.notesTable.SetSelectable(true, false)

	for i, note := range c.shown {
		c.notesTable.SetCell(i, 0, tview.NewTableCell(displayTitle(note.Title)).
			SetTextColor(c.theme.Title).
			SetMaxWidth(30))
		c.notesTable.SetCell(i, 1, tview.NewTableCell(excerpt(note.Content, constants.ExcerptLength)).
			SetTextColor(c.theme.Foreground).
			SetExpansion(1))
		c.notesTable.SetCell(i, 2, tview.NewTableCell(relativeTime(note.UpdatedAt, now)).
			SetTextColor(c.theme.Secondary).
			SetAlign(tview.AlignRight))
	}
}

func (c *CLIApp) renderGrid(now time.Time) {
	_, _, width, _ := c.notesTable.GetInnerRect()
	if width <= 0 {
		width = c.lastWidth
	}
	c.columns = gridColumns(width, constants.MinCardWidth)
	cardWidth := constants.MinCardWidth
	if c.columns > 0 && width > 0 {
		cardWidth = width/c.columns - 1
	}

	c.notesTable.SetTitle(" Notes (grid) ")
	c.notesTable.SetSelectable(true, true)

	for i, note := range c.shown {
		row, col := gridCell(i, c.columns)
		c.notesTable.SetCell(row, col, tview.NewTableCell(displayTitle(note.Title)).
			SetTextColor(c.theme.Title).
			SetMaxWidth(cardWidth).
			SetExpansion(1))
		c.notesTable.SetCell(row+1, col, tview.NewTableCell(excerpt(note.Content, cardWidth)).
			SetTextColor(c.theme.Foreground).
			SetMaxWidth(cardWidth).
			SetExpansion(1))
		c.notesTable.SetCell(row+2, col, tview.NewTableCell(relativeTime(note.UpdatedAt, now)).
			SetTextColor(c.theme.Secondary).
			SetExpansion(1))
		c.notesTable.SetCell(row+3, col, tview.NewTableCell("").
			SetSelectable(false))
	}
}

func (c *CLIApp) selectedIndex() int {
	row, col := c.notesTable.GetSelection()
	if c.view == ViewList {
		return row
	}
	return gridIndex(row, col, c.columns)
}

func (c *CLIApp) selectIndex(i int) {
	if c.view == ViewList {
		c.notesTable.Select(i, 0)
		return
	}
	row, col := gridCell(i, c.columns)
	c.notesTable.Select(row, col)
}

func (c *CLIApp) selectedNote() (store.Note, bool) {
	i := c.selectedIndex()
	if i < 0 || i >= len(c.shown) {
		return store.Note{}, false
	}
	return c.shown[i], true
}

func (c *CLIApp) editSelected() {
	if note, ok := c.selectedNote(); ok {
		c.showEditor(&note)
	}
}

func (c *CLIApp) confirmDeleteSelected() {
	note, ok := c.selectedNote()
	if !ok {
		return
	}

	modal := tview.NewModal()
	modal.SetText(fmt.Sprintf("Delete %q?\nThis cannot be undone.", displayTitle(note.Title)))
	modal.AddButtons([]string{"Delete", "Cancel"})
	modal.SetDoneFunc(func(buttonIndex int, buttonLabel string) {
		c.closePage(pageConfirm)
		if buttonLabel != "Delete" {
			return
		}
		go func() {
			if !c.notebook.RemoveNote(c.ctx, note.ID) && c.telemetry != nil {
				c.telemetry.GetLogger().Warn("Could not delete note", "id", note.ID)
			}
		}()
	})

	c.pages.AddPage(pageConfirm, modal, true, true)
}

// showEditor opens the editor page for note, or for a new note when note is nil.
func (c *CLIApp) showEditor(note *store.Note) {
	title, content := "", ""
	heading := " New note "
	if note != nil {
		title, content = note.Title, note.Content
		heading = " Edit note "
	}

	titleField := tview.NewInputField().
		SetLabel("Title").
		SetText(title).
		SetFieldWidth(0)
	contentArea := tview.NewTextArea().
		SetLabel("Content").
		SetText(content, false)

	form := tview.NewForm()
	form.AddFormItem(titleField)
	form.AddFormItem(contentArea)
	form.AddButton("Save", func() {
		newTitle, newContent := titleField.GetText(), contentArea.GetText()
		c.closePage(pageEditor)

		go func() {
			if note == nil {
				c.notebook.AddNote(c.ctx, newTitle, newContent)
				return
			}
			if c.notebook.EditNote(c.ctx, note.ID, newTitle, newContent) == nil && c.telemetry != nil {
				c.telemetry.GetLogger().Warn("Could not save note", "id", note.ID)
			}
		}()
	})
	form.AddButton("Cancel", func() {
		c.closePage(pageEditor)
	})
	form.SetCancelFunc(func() {
		c.closePage(pageEditor)
	})
	form.SetBorder(true)
	form.SetTitle(heading)
	form.SetTitleAlign(tview.AlignLeft)
	form.SetBorderColor(c.theme.Border)
	form.SetTitleColor(c.theme.Title)
	form.SetFieldBackgroundColor(tcell.ColorDefault)
	form.SetFieldTextColor(c.theme.Foreground)
	form.SetLabelColor(c.theme.Accent)
	form.SetButtonBackgroundColor(c.theme.Border)

	// Center the form on top of the note list
	modal := tview.NewGrid().
		SetColumns(0, 80, 0).
		SetRows(0, 20, 0).
		AddItem(form, 1, 1, 1, 1, 0, 0, true)

	c.pages.AddPage(pageEditor, modal, true, true)
	c.app.SetFocus(form)
}

func (c *CLIApp) closePage(name string) {
	c.pages.RemovePage(name)
	c.app.SetFocus(c.notesTable)
}

func (c *CLIApp) appendLog(message string) {
	c.app.QueueUpdateDraw(func() {
		fmt.Fprint(c.logView, message)
		c.logView.ScrollToEnd()
	})
}

func (c *CLIApp) loadExistingLogs() {
	if c.telemetry == nil {
		return
	}
	logs := c.telemetry.LogCapture.GetAllLogs()

	if len(logs) == 0 {
		c.appendLog(c.theme.MutedTag + "Waiting for logs...[-]\n")
		return
	}

	var logText strings.Builder
	for _, entry := range logs {
		logText.WriteString(FormatLogEntryWithTheme(entry, c.theme))
	}

	c.app.QueueUpdateDraw(func() {
		c.logView.SetText(logText.String())
		c.logView.ScrollToEnd()
	})
}
