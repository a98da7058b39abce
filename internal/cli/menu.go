package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/cache"
)

// MenuOption represents a menu choice
type MenuOption struct {
	Number  int
	Title   string
	Hint    func() string
	Handler func() error
}

// MenuUI is the interactive numbered menu.
type MenuUI struct {
	app     *App
	scanner *bufio.Scanner
	out     io.Writer
	options []MenuOption
}

// NewMenuUI creates a menu reading choices from in.
func NewMenuUI(app *App, in io.Reader, out io.Writer) *MenuUI {
	ui := &MenuUI{
		app:     app,
		scanner: bufio.NewScanner(in),
		out:     out,
	}

	ui.options = []MenuOption{
		{Number: 1, Title: "Trend summary", Handler: ui.handleTrend},
		{Number: 2, Title: "Search ARIMA parameters", Hint: ui.searchHint, Handler: ui.handleSearch},
		{Number: 3, Title: "Predict purchase and redeem", Handler: ui.handlePredict},
		{Number: 4, Title: "Export prediction CSV", Hint: ui.exportHint, Handler: ui.handleExport},
		{Number: 5, Title: "Stationarity tests", Handler: ui.handleStationarity},
		{Number: 6, Title: "Cache management", Handler: ui.handleCacheMenu},
		{Number: 0, Title: "Exit"},
	}
	return ui
}

// Run shows the menu until the user exits or input ends.
func (ui *MenuUI) Run() error {
	ui.printWelcome()

	for {
		ui.printMenu()

		choice, ok := ui.prompt("Choose an option (0-6): ")
		if !ok {
			return nil
		}
		if choice == "" {
			continue
		}

		n, err := strconv.Atoi(choice)
		if err != nil {
			fmt.Fprintf(ui.out, "Invalid input: %s\n\n", choice)
			continue
		}
		if n == 0 {
			fmt.Fprintln(ui.out, "Bye")
			return nil
		}

		option, found := ui.option(n)
		if !found {
			fmt.Fprintf(ui.out, "Invalid choice: %d\n\n", n)
			continue
		}

		fmt.Fprintf(ui.out, "\n=== %s ===\n", option.Title)
		if err := option.Handler(); err != nil {
			fmt.Fprintf(ui.out, "Error: %v\n", err)
			ui.app.log.Error().Err(err).Str("menu_option", option.Title).Msg("menu handler failed")
		}
		fmt.Fprintln(ui.out)
	}
}

func (ui *MenuUI) option(n int) (MenuOption, bool) {
	for _, o := range ui.options {
		if o.Number == n && o.Handler != nil {
			return o, true
		}
	}
	return MenuOption{}, false
}

func (ui *MenuUI) prompt(label string) (string, bool) {
	fmt.Fprint(ui.out, label)
	if !ui.scanner.Scan() {
		fmt.Fprintln(ui.out)
		return "", false
	}
	return strings.TrimSpace(ui.scanner.Text()), true
}

func (ui *MenuUI) confirm(question string) bool {
	answer, ok := ui.prompt(question + " [y/N]: ")
	if !ok {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

func (ui *MenuUI) printWelcome() {
	fmt.Fprintln(ui.out, "Fund Flow ARIMA Workbench")
	fmt.Fprintln(ui.out, rule("="))
	fmt.Fprintf(ui.out, "Data:  %s\n", ui.app.cfg.Data.File)
	fmt.Fprintf(ui.out, "Cache: %s\n\n", ui.app.cfg.Cache.File)
}

func (ui *MenuUI) printMenu() {
	fmt.Fprintln(ui.out, "Main Menu:")
	fmt.Fprintln(ui.out, rule("-"))
	for _, o := range ui.options {
		line := fmt.Sprintf("%d. %s", o.Number, o.Title)
		if o.Hint != nil {
			if hint := o.Hint(); hint != "" {
				line += "  [" + hint + "]"
			}
		}
		fmt.Fprintln(ui.out, line)
	}
}

func (ui *MenuUI) searchHint() string {
	if s, ok := ui.app.CacheSummaries()[cache.Purchase]; ok {
		return s
	}
	return ""
}

func (ui *MenuUI) exportHint() string {
	a, res := ui.app.store.GetArtifact(ui.app.cfg.Data.File, cache.KindCSV, "prediction")
	if !res.OK() || !a.Exists {
		return ""
	}
	return "cached: " + a.Path
}

func (ui *MenuUI) chooseSeries() (cache.Discriminator, bool) {
	answer, ok := ui.prompt("Series (1=purchase, 2=redeem) [1]: ")
	if !ok {
		return "", false
	}
	switch answer {
	case "", "1", "purchase":
		return cache.Purchase, true
	case "2", "redeem":
		return cache.Redeem, true
	}
	fmt.Fprintf(ui.out, "Invalid series: %s\n", answer)
	return "", false
}

func (ui *MenuUI) handleTrend() error {
	_, err := ui.app.Trend()
	return err
}

func (ui *MenuUI) handleSearch() error {
	disc, ok := ui.chooseSeries()
	if !ok {
		return nil
	}
	force := false
	if ui.app.store.IsValid(ui.app.cfg.Data.File) {
		force = ui.confirm("A cached result exists. Search again anyway?")
	}
	_, err := ui.app.Search(disc, force)
	return err
}

func (ui *MenuUI) handlePredict() error {
	_, err := ui.app.Predict()
	return err
}

func (ui *MenuUI) handleExport() error {
	_, err := ui.app.Export()
	return err
}

func (ui *MenuUI) handleStationarity() error {
	disc, ok := ui.chooseSeries()
	if !ok {
		return nil
	}
	_, err := ui.app.Stationarity(disc, 2)
	return err
}

func (ui *MenuUI) handleCacheMenu() error {
	for {
		fmt.Fprintln(ui.out, "1. List all records")
		fmt.Fprintln(ui.out, "2. Show current file artifacts")
		fmt.Fprintln(ui.out, "3. Clear current file record")
		fmt.Fprintln(ui.out, "4. Clear all records")
		fmt.Fprintln(ui.out, "0. Back")

		choice, ok := ui.prompt("Choose an option (0-4): ")
		if !ok {
			return nil
		}
		switch choice {
		case "0":
			return nil
		case "1":
			ui.app.store.Refresh()
			if err := ui.app.store.Render(ui.out); err != nil {
				return err
			}
		case "2":
			if err := ui.app.ShowRecord(); err != nil {
				return err
			}
		case "3":
			if ui.confirm("Clear the cache record for " + ui.app.cfg.Data.File + "?") {
				if err := ui.app.ClearCache(false); err != nil {
					return err
				}
			}
		case "4":
			if ui.confirm("Clear ALL cache records?") {
				if err := ui.app.ClearCache(true); err != nil {
					return err
				}
			}
		default:
			fmt.Fprintf(ui.out, "Invalid choice: %s\n", choice)
		}
		fmt.Fprintln(ui.out)
	}
}
