// Command coverage-tui is an interactive terminal view of station coverage:
// a station list, a radar-style plot of the selected station's coverage
// polygons and a point coverage query prompt.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/ads-bcoverage/internal/loader"
	"github.com/unklstewy/ads-bcoverage/internal/logging"
	"github.com/unklstewy/ads-bcoverage/pkg/config"
	"github.com/unklstewy/ads-bcoverage/pkg/coordinates"
	"github.com/unklstewy/ads-bcoverage/pkg/coverage"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	averageStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	maximumStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

const listWidth = 34

type loadedMsg struct {
	set *coverage.StationSet
	err error
}

type tickMsg time.Time

type model struct {
	refresher *loader.Refresher
	interval  time.Duration
	ringRadii []float64
	segments  int

	set      *coverage.StationSet
	selected int
	loading  bool
	err      error

	inputMode   bool
	inputBuffer string
	probe       *coordinates.Geographic
	result      *coverage.Result

	width, height int
}

func (m model) reload() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		set, err := m.refresher.Reload(ctx)
		return loadedMsg{set: set, err: err}
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.reload(), m.tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case loadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.keepSelection(msg.set)
			m.set = msg.set
			if m.probe != nil {
				m.runQuery(*m.probe)
			}
		}
		return m, nil

	case tickMsg:
		m.loading = true
		return m, tea.Batch(m.reload(), m.tick())

	case tea.KeyMsg:
		if m.inputMode {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.set != nil && m.selected < m.set.Len()-1 {
				m.selected++
			}
		case "pgup":
			m.selected = max(0, m.selected-10)
		case "pgdown":
			if m.set != nil {
				m.selected = min(m.set.Len()-1, m.selected+10)
			}
		case "/", "c":
			m.inputMode = true
			m.inputBuffer = ""
		case "r":
			m.loading = true
			return m, m.reload()
		case "x":
			m.probe = nil
			m.result = nil
		}
	}
	return m, nil
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.inputMode = false
		point, err := parseLatLng(m.inputBuffer)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.probe = &point
		m.runQuery(point)
	case tea.KeyEsc:
		m.inputMode = false
	case tea.KeyBackspace:
		if len(m.inputBuffer) > 0 {
			m.inputBuffer = m.inputBuffer[:len(m.inputBuffer)-1]
		}
	case tea.KeySpace:
		m.inputBuffer += " "
	case tea.KeyRunes:
		m.inputBuffer += string(msg.Runes)
	}
	return m, nil
}

// keepSelection keeps the cursor on the same station across reloads.
func (m *model) keepSelection(next *coverage.StationSet) {
	if m.set == nil || next == nil || m.selected >= m.set.Len() {
		m.selected = 0
		return
	}
	id := m.set.Stations()[m.selected].ID
	for i, st := range next.Stations() {
		if st.ID == id {
			m.selected = i
			return
		}
	}
	m.selected = 0
}

func (m *model) runQuery(point coordinates.Geographic) {
	if m.set == nil {
		return
	}
	res, err := m.set.FindCoverage(point)
	if err != nil {
		m.err = err
		m.result = nil
		return
	}
	m.result = &res
}

// parseLatLng accepts "lat,lng" or "lat lng".
func parseLatLng(s string) (coordinates.Geographic, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) != 2 {
		return coordinates.Geographic{}, fmt.Errorf("enter a point as lat,lng")
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return coordinates.Geographic{}, fmt.Errorf("bad latitude %q", fields[0])
	}
	lng, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return coordinates.Geographic{}, fmt.Errorf("bad longitude %q", fields[1])
	}
	p := coordinates.Geographic{Latitude: lat, Longitude: lng}
	return p, p.Validate()
}

func (m model) View() string {
	if m.set == nil {
		if m.err != nil {
			return errorStyle.Render("Failed to load stations: "+m.err.Error()) + "\n\nPress r to retry, q to quit.\n"
		}
		return "Loading stations...\n"
	}

	header := titleStyle.Render("ADS-B station coverage") +
		dimStyle.Render(fmt.Sprintf("  %d stations · generation %d · %s",
			m.set.Len(), m.set.Generation(), m.set.LoadedAt().Format("15:04:05")))
	if m.loading {
		header += dimStyle.Render(" · reloading")
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderList(), m.renderStation())

	var footer strings.Builder
	if m.inputMode {
		footer.WriteString("Coverage at (lat,lng): " + m.inputBuffer + "█\n")
	} else if m.result != nil {
		footer.WriteString(titleStyle.Render("Coverage at "+m.result.Point.String()) + "\n")
		footer.WriteString(m.result.String())
		footer.WriteString("\n")
	}
	if m.err != nil {
		footer.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	}
	footer.WriteString(dimStyle.Render("↑/↓ select · / query point · x clear · r reload · q quit"))

	return header + "\n" + body + "\n" + footer.String() + "\n"
}

func (m model) listHeight() int {
	h := m.height - 12
	if h < 10 {
		h = 10
	}
	return h
}

func (m model) renderList() string {
	stations := m.set.Stations()
	h := m.listHeight()

	start := 0
	if m.selected >= h {
		start = m.selected - h + 1
	}
	end := min(len(stations), start+h)

	var b strings.Builder
	for i := start; i < end; i++ {
		st := stations[i]
		name := st.Name
		if r := []rune(name); len(r) > listWidth-8 {
			name = string(r[:listWidth-9]) + "…"
		}
		line := fmt.Sprintf("%-*s %5.0f", listWidth-8, name, st.Summary().MeanAverageNM)
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return panelStyle.Width(listWidth).Render(strings.TrimRight(b.String(), "\n"))
}

func (m model) renderStation() string {
	stations := m.set.Stations()
	if len(stations) == 0 {
		return panelStyle.Render("No stations online")
	}
	st := stations[min(m.selected, len(stations)-1)]

	rings := coverage.ReferenceRings(st.Origin, m.ringRadii, m.segments)
	width := max(m.width-listWidth-8, 40)
	height := max(m.listHeight()-4, 16)
	view := radarView{width: width, height: height, center: st.Origin, radiusNM: radarRadius(st, rings)}

	var b strings.Builder
	sum := st.Summary()
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%s)", st.Name, st.ID)) + dimStyle.Render("  "+st.Origin.String()) + "\n")
	b.WriteString(averageStyle.Render(fmt.Sprintf("# average %.0f/%.0f nm", sum.MeanAverageNM, sum.PeakAverageNM)) + "  ")
	b.WriteString(maximumStyle.Render(fmt.Sprintf("+ maximum %.0f/%.0f nm", sum.MeanMaximumNM, sum.PeakMaximumNM)) + "  ")
	b.WriteString(dimStyle.Render(fmt.Sprintf("· rings %v nm", m.ringRadii)) + "\n")

	for _, line := range renderRadar(view, st, rings, m.probe) {
		b.WriteString(colorize(line) + "\n")
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func colorize(line string) string {
	var b strings.Builder
	for _, ch := range line {
		switch ch {
		case glyphAverage:
			b.WriteString(averageStyle.Render(string(ch)))
		case glyphMaximum:
			b.WriteString(maximumStyle.Render(string(ch)))
		case glyphRing:
			b.WriteString(dimStyle.Render(string(ch)))
		case glyphProbe:
			b.WriteString(errorStyle.Render(string(ch)))
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	file := flag.String("file", "", "Read stations from a saved feed document instead of the network")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *file != "" {
		cfg.Feed.File = *file
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := logging.NewFile(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialise logging: %v", err)
	}
	defer logger.Sync()

	source, err := loader.SourceFromConfig(cfg.Feed, logger)
	if err != nil {
		log.Fatalf("Failed to open feed: %v", err)
	}
	defer source.Close()

	refresher, err := loader.New(loader.Config{
		Source:   source,
		Store:    coverage.NewStore(),
		Logger:   logger,
		Interval: cfg.Feed.RefreshInterval(),
		Build: coverage.BuildOptions{
			Workers:     cfg.Coverage.BuildWorkers,
			Containment: cfg.Coverage.ContainmentMode(),
		},
	})
	if err != nil {
		log.Fatalf("Failed to create loader: %v", err)
	}

	m := model{
		refresher: refresher,
		interval:  cfg.Feed.RefreshInterval(),
		ringRadii: cfg.Coverage.RingRadiiNM,
		segments:  cfg.Coverage.RingSegments,
		loading:   true,
		width:     120,
		height:    40,
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
