package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/unklstewy/ads-bcoverage/internal/loader"
	"github.com/unklstewy/ads-bcoverage/pkg/coverage"
)

// App is the station browser: a table of loaded stations, a detail panel
// with the selected station's bearing samples and a log panel.
type App struct {
	refresher *loader.Refresher
	store     *coverage.Store
	logger    *zap.Logger

	tviewApp   *tview.Application
	table      *tview.Table
	details    *tview.TextView
	logs       *LogPanel
	rootLayout *tview.Flex

	mu       sync.RWMutex
	set      *coverage.StationSet
	selected string
}

// NewApp wires the UI. logger should come from logs.Tee so entries reach the
// log panel.
func NewApp(refresher *loader.Refresher, store *coverage.Store, logs *LogPanel, logger *zap.Logger) *App {
	a := &App{
		refresher: refresher,
		store:     store,
		logs:      logs,
		logger:    logger,
	}
	a.setupUI()
	return a
}

func (a *App) setupUI() {
	a.tviewApp = tview.NewApplication()
	a.logs.View().SetChangedFunc(func() {
		a.tviewApp.Draw()
	})

	a.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	a.table.SetBorder(true).SetTitle(" Stations ")
	a.table.SetSelectionChangedFunc(func(row, _ int) {
		a.selectRow(row)
	})

	a.details = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	a.details.SetBorder(true).SetTitle(" Bearing samples ")

	controls := tview.NewTextView().
		SetDynamicColors(true).
		SetText("[white]↑/↓[-] select  [white]r[-] reload  [white]q/Esc[-] quit")

	sidebar := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.details, 0, 7, false).
		AddItem(a.logs.View(), 0, 3, false)

	a.rootLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexColumn).
			AddItem(a.table, 0, 6, true).
			AddItem(sidebar, 0, 4, false), 0, 1, true).
		AddItem(controls, 1, 0, false)

	a.tviewApp.SetRoot(a.rootLayout, true)
	a.tviewApp.SetInputCapture(a.handleKeyboard)
	a.setTable(nil)
}

func (a *App) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	switch {
	case event.Key() == tcell.KeyEscape || event.Rune() == 'q':
		a.tviewApp.Stop()
		return nil
	case event.Rune() == 'r':
		go a.reload()
		return nil
	}
	return event
}

func (a *App) reload() {
	ctx, cancel := context.WithTimeout(context.Background(), loaderTimeout)
	defer cancel()
	if _, err := a.refresher.TryReload(ctx); err != nil {
		a.logger.Warn("Reload failed", zap.Error(err))
	}
}

// Run shows the UI until the user quits or ctx is cancelled. Station sets
// published to the store are rendered as they arrive.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, unsubscribe := a.store.Subscribe()
	defer unsubscribe()

	go func() {
		for {
			select {
			case <-ctx.Done():
				a.tviewApp.Stop()
				return
			case set := <-updates:
				a.tviewApp.QueueUpdateDraw(func() {
					a.setTable(set)
				})
			}
		}
	}()

	go a.refresher.Run(ctx)

	a.logger.Info("Station browser started")
	return a.tviewApp.Run()
}

// setTable replaces the table contents, keeping the selected station when it
// is still present.
func (a *App) setTable(set *coverage.StationSet) {
	a.mu.Lock()
	a.set = set
	selected := a.selected
	a.mu.Unlock()

	a.table.Clear()
	for col, h := range tableHeader {
		a.table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false).
			SetExpansion(columnExpansion(col)))
	}

	if set == nil {
		a.table.SetTitle(" Stations (loading) ")
		a.details.SetText("[gray]No stations loaded[-]")
		return
	}
	a.table.SetTitle(fmt.Sprintf(" Stations (%d, generation %d) ", set.Len(), set.Generation()))

	row := 1
	for i, cells := range stationRows(set) {
		for col, text := range cells {
			cell := tview.NewTableCell(text).SetExpansion(columnExpansion(col))
			if col > 1 {
				cell.SetAlign(tview.AlignRight)
			}
			a.table.SetCell(i+1, col, cell)
		}
		if set.Stations()[i].ID == selected {
			row = i + 1
		}
	}
	if set.Len() > 0 {
		a.table.Select(row, 0)
		a.selectRow(row)
	} else {
		a.details.SetText("[gray]No stations online[-]")
	}
}

func (a *App) selectRow(row int) {
	a.mu.Lock()
	set := a.set
	if set == nil || row < 1 || row > set.Len() {
		a.mu.Unlock()
		return
	}
	st := set.Stations()[row-1]
	a.selected = st.ID
	a.mu.Unlock()

	a.details.SetText(stationDetails(st))
	a.details.ScrollToBeginning()
}

var tableHeader = []string{"ID", "Name", "Mean ave", "Peak ave", "Mean max", "Peak max"}

func columnExpansion(col int) int {
	if col == 1 {
		return 3
	}
	return 1
}

// stationRows renders one table row per station in set order.
func stationRows(set *coverage.StationSet) [][]string {
	rows := make([][]string, 0, set.Len())
	for _, st := range set.Stations() {
		sum := st.Summary()
		rows = append(rows, []string{
			st.ID,
			st.Name,
			fmt.Sprintf("%.0f", sum.MeanAverageNM),
			fmt.Sprintf("%.0f", sum.PeakAverageNM),
			fmt.Sprintf("%.0f", sum.MeanMaximumNM),
			fmt.Sprintf("%.0f", sum.PeakMaximumNM),
		})
	}
	return rows
}

// stationDetails lists the station's bearing samples with tview colour tags.
func stationDetails(st *coverage.Station) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]%s[-] [gray](%s)[-]\n", tview.Escape(st.Name), tview.Escape(st.ID))
	fmt.Fprintf(&b, "[gray]Pos:[-] [white]%s[-]\n\n", st.Origin)
	fmt.Fprintf(&b, "[gray]%7s %8s %8s[-]\n", "Bearing", "Ave nm", "Max nm")
	for _, s := range st.Samples {
		fmt.Fprintf(&b, "%6.0f° %8.0f %8.0f\n", s.BearingDeg, s.AverageNM, s.MaximumNM)
	}
	return b.String()
}
