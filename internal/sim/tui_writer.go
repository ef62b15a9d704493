package sim

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"swarmops-sim/internal/config"
	"swarmops-sim/internal/telemetry"
	"swarmops-sim/internal/world"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a telemetry log line for the viewport.
type logMsg struct{ line string }

// eventMsg carries an event log line and the row data.
type eventMsg struct {
	line string
	row  telemetry.EventRow
}

// stateMsg carries an engine state update.
type stateMsg struct{ telemetry.StateRow }

// apiMsg reports API server status.
type apiMsg struct{ active bool }

type setSpawnMsg struct {
	fn func(config.HostileSpec) (string, error)
}
type setControlsMsg struct{ controls ClockControls }
type telemetryMsg struct{ telemetry.TelemetryRow }

const (
	fallbackHostileInput = "circular,500,500,80"
	hostileOffset        = 25.0
	maxSectionHeightPct  = 0.2
)

// TUIWriter renders telemetry using a bubbletea TUI.
type TUIWriter struct {
	program     teaProgram
	groupColors map[int64]string
	colorIdx    int
	done        chan struct{}
	sendSignal  atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.Config) *TUIWriter {
	gc := make(map[int64]string)
	w := &TUIWriter{groupColors: gc, done: make(chan struct{})}
	w.sendSignal.Store(true)
	m := newTUIModel(cfg, gc)
	p := tea.NewProgram(m, tea.WithAltScreen())
	w.program = p
	go func() {
		_ = p.Start()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

func (w *TUIWriter) getGroupColor(id int64) string {
	if c, ok := w.groupColors[id]; ok {
		return c
	}
	c := groupPalette[w.colorIdx%len(groupPalette)]
	w.groupColors[id] = c
	w.colorIdx++
	return c
}

// Write implements TelemetryWriter.
func (w *TUIWriter) Write(row telemetry.TelemetryRow) error {
	teamColor := colorGreen
	if row.Team == string(world.TeamEnemy) {
		teamColor = colorRed
	}
	modeColor, ok := modeColors[row.Mode]
	if !ok {
		modeColor = colorGray
	}

	line := fmt.Sprintf("%s[%s]%s %stick=%d%s %sdrone=%s%s %steam=%s%s %spos=(%.1f,%.1f)%s %svel=(%.1f,%.1f)%s %smode=%s%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, row.Tick, colorReset,
		colorWhite(), row.DroneID, colorReset,
		teamColor, row.Team, colorReset,
		colorGreen, row.X, row.Y, colorReset,
		colorYellow, row.VX, row.VY, colorReset,
		modeColor, row.Mode, colorReset,
	)
	if row.GroupID != nil {
		line += fmt.Sprintf(" %sgroup=%d%s", w.getGroupColor(*row.GroupID), *row.GroupID, colorReset)
	}
	if row.TargetX != nil && row.TargetY != nil {
		line += fmt.Sprintf(" %starget=(%.1f,%.1f)%s", colorCyan, *row.TargetX, *row.TargetY, colorReset)
	}
	if row.Direction == string(world.DirectionReverse) {
		line += fmt.Sprintf(" %sreverse%s", colorMagenta, colorReset)
	}
	w.program.Send(logMsg{line: line})
	w.program.Send(telemetryMsg{row})
	return nil
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(e telemetry.EventRow) error {
	line := fmt.Sprintf("%s[%s]%s %sEVENT%s %stype=%s%s %sdrones=%v%s",
		colorGray, e.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, colorReset,
		colorMagenta, e.Type, colorReset,
		colorWhite(), e.DroneIDs, colorReset)
	if e.TargetID != "" {
		line += fmt.Sprintf(" %starget=%s%s", colorBlue, e.TargetID, colorReset)
	}
	if e.GroupID != nil {
		line += fmt.Sprintf(" %sgroup=%d%s", w.getGroupColor(*e.GroupID), *e.GroupID, colorReset)
	}
	if e.Detail != "" {
		line += fmt.Sprintf(" %sdetail=%q%s", colorGray, e.Detail, colorReset)
	}
	w.program.Send(eventMsg{line: line, row: e})
	return nil
}

// WriteState implements StateWriter.
func (w *TUIWriter) WriteState(row telemetry.StateRow) error {
	w.program.Send(stateMsg{StateRow: row})
	return nil
}

// WriteBatch outputs multiple telemetry rows.
func (w *TUIWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteEvents outputs multiple event rows.
func (w *TUIWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, e := range rows {
		_ = w.WriteEvent(e)
	}
	return nil
}

// WriteStates outputs multiple state rows.
func (w *TUIWriter) WriteStates(rows []telemetry.StateRow) error {
	for _, r := range rows {
		_ = w.WriteState(r)
	}
	return nil
}

// SetAPIStatus updates the API server indicator.
func (w *TUIWriter) SetAPIStatus(listening bool) {
	w.program.Send(apiMsg{active: listening})
}

// SetSpawner registers a callback to spawn hostiles.
func (w *TUIWriter) SetSpawner(fn func(config.HostileSpec) (string, error)) {
	w.program.Send(setSpawnMsg{fn: fn})
}

// SetControls registers the clock control callbacks.
func (w *TUIWriter) SetControls(c ClockControls) {
	w.program.Send(setControlsMsg{controls: c})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg          *config.Config
	table        table.Model
	vp           viewport.Model
	eventVP      viewport.Model
	logs         []string
	eventLogs    []string
	state        telemetry.StateRow
	api          bool
	wrap         bool
	autoscroll   bool
	header       string
	headerHeight int
	height       int
	groupColors  map[int64]string
	spawn        func(config.HostileSpec) (string, error)
	controls     ClockControls
	spawnInput   textinput.Model
	spawnDialog  bool
	lastDrone    world.Vec2
	haveDrone    bool
	summary      bool
	help         bool
	showFleets   bool
	showHostiles bool

	// drones keeps the latest telemetry row per live drone; collision
	// events prune destroyed IDs.
	drones map[string]telemetry.TelemetryRow

	showMap         bool
	mapCenterX      float64
	mapCenterY      float64
	mapXSpan        float64
	mapYSpan        float64
	mapInitialized  bool
	mapShowDrones   bool
	mapShowHostiles bool
	mapShowBases    bool

	eventCounts   map[string]int
	totalEvents   int
	eventHistory  []int
	lastEvtSecond time.Time
}

func newTUIModel(cfg *config.Config, groupColors map[int64]string) tuiModel {
	cols := []table.Column{
		{Title: "Config", Width: 20},
		{Title: "Value", Width: 10},
		{Title: "Config", Width: 20},
		{Title: "Value", Width: 10},
	}
	rows := []table.Row{
		{"World", fmt.Sprintf("%.0fx%.0f", cfg.World.Width, cfg.World.Height), "Drone Radius", fmt.Sprintf("%.0f", cfg.World.DroneRadius)},
		{"Timestep (s)", fmt.Sprintf("%g", cfg.Sim.DT), "History Ticks", fmt.Sprintf("%d", cfg.Sim.HistoryCapacity)},
		{"Jump Back Ticks", fmt.Sprintf("%d", cfg.Sim.JumpBackTicks), "Arrival Threshold", fmt.Sprintf("%.0f", cfg.Sim.ArrivalThreshold)},
		{"Intercept Horizon", fmt.Sprintf("%.0fs", cfg.Intercept.HorizonS), "Tail Standoff", fmt.Sprintf("%.0f", cfg.Tail.Standoff)},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	vp := viewport.New(0, 0)
	eventVP := viewport.New(0, 0)
	m := tuiModel{
		cfg:             cfg,
		table:           t,
		vp:              vp,
		eventVP:         eventVP,
		groupColors:     groupColors,
		autoscroll:      true,
		showFleets:      true,
		showHostiles:    true,
		mapShowDrones:   true,
		mapShowHostiles: true,
		mapShowBases:    true,
		drones:          make(map[string]telemetry.TelemetryRow),
		eventCounts:     make(map[string]int),
	}
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		tableWidth := msg.Width
		if m.showFleets {
			tableWidth = msg.Width / 2
		}
		m.table.SetWidth(tableWidth)
		m.vp.Width = msg.Width
		m.eventVP.Width = msg.Width
		m.height = msg.Height
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
		m.refreshEvents()
	case tea.KeyMsg:
		if m.spawnDialog {
			switch msg.Type {
			case tea.KeyEnter:
				spec, err := parseHostileInput(m.spawnInput.Value())
				if err == nil && m.spawn != nil {
					go m.spawn(spec)
				}
				m.spawnDialog = false
				m.updateViewportHeight()
			case tea.KeyEsc:
				m.spawnDialog = false
				m.updateViewportHeight()
			default:
				var cmd tea.Cmd
				m.spawnInput, cmd = m.spawnInput.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		if m.showMap {
			switch msg.String() {
			case "+", "=":
				m.mapXSpan *= 0.8
				m.mapYSpan *= 0.8
				if m.mapXSpan < 1 {
					m.mapXSpan = 1
				}
				if m.mapYSpan < 1 {
					m.mapYSpan = 1
				}
				return m, nil
			case "-":
				m.mapXSpan *= 1.25
				m.mapYSpan *= 1.25
				return m, nil
			case "left":
				m.mapCenterX -= m.mapXSpan * 0.1
				return m, nil
			case "right":
				m.mapCenterX += m.mapXSpan * 0.1
				return m, nil
			case "up":
				m.mapCenterY -= m.mapYSpan * 0.1
				return m, nil
			case "down":
				m.mapCenterY += m.mapYSpan * 0.1
				return m, nil
			case "1":
				m.mapShowDrones = !m.mapShowDrones
				return m, nil
			case "2":
				m.mapShowHostiles = !m.mapShowHostiles
				return m, nil
			case "3":
				m.mapShowBases = !m.mapShowBases
				return m, nil
			}
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "space":
			if m.controls.SetPaused != nil {
				paused := !m.state.Paused
				go m.controls.SetPaused(paused)
			}
			return m, nil
		case "r":
			if m.controls.SetDirection != nil {
				dir := world.DirectionReverse
				if m.state.Direction == string(world.DirectionReverse) {
					dir = world.DirectionForward
				}
				go m.controls.SetDirection(dir)
			}
			return m, nil
		case "b":
			if m.controls.JumpBack != nil {
				go m.controls.JumpBack()
			}
			return m, nil
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			m.header = m.renderHeader()
			m.headerHeight = lipgloss.Height(m.header)
			m.updateViewportHeight()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
				m.eventVP.GotoBottom()
			}
			return m, nil
		case "e":
			m.spawnInput = textinput.New()
			m.spawnInput.Placeholder = "pattern,x,y[,min,max|radius]"
			val := fallbackHostileInput
			if m.haveDrone {
				val = fmt.Sprintf("circular,%.0f,%.0f,80", m.lastDrone.X+hostileOffset, m.lastDrone.Y+hostileOffset)
			}
			m.spawnInput.SetValue(val)
			m.spawnInput.CursorEnd()
			m.spawnInput.Focus()
			m.spawnDialog = true
			m.updateViewportHeight()
			return m, nil
		case "p":
			m.showFleets = !m.showFleets
			width := m.vp.Width
			if m.showFleets {
				m.table.SetWidth(width / 2)
			} else {
				m.table.SetWidth(width)
			}
			m.header = m.renderHeader()
			m.headerHeight = lipgloss.Height(m.header)
			m.updateViewportHeight()
			return m, nil
		case "n":
			m.showHostiles = !m.showHostiles
			m.updateViewportHeight()
			return m, nil
		case "m":
			m.showMap = !m.showMap
			if m.showMap && !m.mapInitialized {
				m.initMapViewport()
			}
			m.updateViewportHeight()
			return m, nil
		case "t":
			m.summary = !m.summary
			m.updateViewportHeight()
			return m, nil
		case "h", "?":
			m.help = !m.help
			m.updateViewportHeight()
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
				m.eventVP.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
				m.eventVP.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
				m.eventVP.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
				m.eventVP.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				m.eventVP, _ = m.eventVP.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		return m, nil
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > 1000 {
			m.logs = m.logs[len(m.logs)-1000:]
		}
		m.refreshViewport()
	case eventMsg:
		m.eventLogs = append(m.eventLogs, msg.line)
		if len(m.eventLogs) > 1000 {
			m.eventLogs = m.eventLogs[len(m.eventLogs)-1000:]
		}
		m.totalEvents++
		if m.eventCounts == nil {
			m.eventCounts = make(map[string]int)
		}
		m.eventCounts[msg.row.Type]++
		second := msg.row.Timestamp.Truncate(time.Second)
		if m.lastEvtSecond.IsZero() {
			m.lastEvtSecond = second
			m.eventHistory = append(m.eventHistory, 1)
		} else if !second.After(m.lastEvtSecond) {
			if len(m.eventHistory) == 0 {
				m.eventHistory = append(m.eventHistory, 1)
			} else {
				m.eventHistory[len(m.eventHistory)-1]++
			}
		} else {
			diff := int(second.Sub(m.lastEvtSecond).Seconds())
			for i := 0; i < diff-1; i++ {
				m.eventHistory = append(m.eventHistory, 0)
			}
			m.eventHistory = append(m.eventHistory, 1)
			m.lastEvtSecond = second
		}
		if len(m.eventHistory) > 5 {
			m.eventHistory = m.eventHistory[len(m.eventHistory)-5:]
		}
		if msg.row.Type == telemetry.EventCollision {
			for _, id := range msg.row.DroneIDs {
				delete(m.drones, id)
			}
		}
		m.updateViewportHeight()
		m.refreshEvents()
		m.refreshViewport()
	case telemetryMsg:
		m.lastDrone = world.Vec2{X: msg.X, Y: msg.Y}
		m.haveDrone = true
		if m.drones == nil {
			m.drones = make(map[string]telemetry.TelemetryRow)
		}
		m.drones[msg.DroneID] = msg.TelemetryRow
	case stateMsg:
		m.state = msg.StateRow
	case apiMsg:
		m.api = msg.active
	case setSpawnMsg:
		m.spawn = msg.fn
	case setControlsMsg:
		m.controls = msg.controls
	}
	return m, nil
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())

	maxLines := m.maxSectionLines()

	evtLines := len(m.eventLogs)
	if evtLines == 0 {
		evtLines = 1
	}
	if evtLines > maxLines {
		evtLines = maxLines
	}
	m.eventVP.Height = evtLines

	eventHeight := 1 + m.eventVP.Height
	hostileHeight := 0
	if m.showHostiles || m.spawnDialog {
		hostileHeight = lipgloss.Height(m.renderHostiles())
	}
	h := m.height - m.headerHeight - bottomHeight - eventHeight - hostileHeight - 5
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.eventVP.GotoBottom()
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshEvents() {
	content := "none"
	if len(m.eventLogs) > 0 {
		content = strings.Join(m.eventLogs, "\n")
	}
	m.eventVP.SetContent(content)
	if m.autoscroll {
		m.eventVP.GotoBottom()
	}
}

func (m tuiModel) maxSectionLines() int {
	h := int(float64(m.height) * maxSectionHeightPct)
	if h < 1 {
		h = 1
	}
	return h
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	bottom := m.renderBottom()
	divider := strings.Repeat("─", m.vp.Width)
	if m.showMap {
		sections := []string{
			m.header,
			divider,
			m.renderMap(),
			divider,
			bottom,
		}
		return strings.Join(sections, "\n")
	}
	sections := []string{
		m.header,
		divider,
		m.vp.View(),
		divider,
		"Events:",
		m.eventVP.View(),
	}
	if m.showHostiles || m.spawnDialog {
		sections = append(sections, divider, m.renderHostiles())
	}
	sections = append(sections, divider, bottom)
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	tableView := m.table.View()
	if !m.showFleets {
		return tableView
	}
	fleetsWidth := m.vp.Width/2 - 1
	fleets := renderFleetTree(m.cfg, m.wrap, fleetsWidth)
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, tableView, sep, fleets)
}

func renderFleetTree(cfg *config.Config, wrap bool, width int) string {
	var b strings.Builder
	b.WriteString("Fleets\n")
	for i, f := range cfg.Fleets {
		prefix := "├─"
		if i == len(cfg.Fleets)-1 {
			prefix = "└─"
		}
		line := fmt.Sprintf("%s %s%s%s drones=%d origin=(%.0f,%.0f) speed=%.0f", prefix, colorGreen, f.Name, colorReset, f.Count, f.OriginX, f.OriginY, f.Speed)
		if f.BaseID != "" {
			line += fmt.Sprintf(" base=%s", f.BaseID)
		}
		if wrap && width > 0 {
			line = wordwrap.String(line, width)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m tuiModel) renderSummary() string {
	friendlies, hostiles := 0, 0
	for _, r := range m.drones {
		if r.Team == string(world.TeamEnemy) {
			hostiles++
		} else {
			friendlies++
		}
	}
	types := make([]string, 0, len(m.eventCounts))
	for k := range m.eventCounts {
		types = append(types, k)
	}
	sort.Strings(types)
	var evtParts []string
	for _, k := range types {
		evtParts = append(evtParts, fmt.Sprintf("%s%s%s=%d", colorWhite(), k, colorReset, m.eventCounts[k]))
	}
	events := strings.Join(evtParts, " ")
	var trendParts []string
	for _, v := range m.eventHistory {
		trendParts = append(trendParts, fmt.Sprintf("%d", v))
	}
	trend := strings.Join(trendParts, ",")
	summary := fmt.Sprintf("%sSUMMARY%s %stick=%d%s %sdrones=%d%s %shostiles=%d%s %sgroups=%d%s %sevents=%d%s",
		colorBlue, colorReset,
		colorGreen, m.state.Tick, colorReset,
		colorCyan, friendlies, colorReset,
		colorRed, hostiles, colorReset,
		colorYellow, m.state.Groups, colorReset,
		colorMagenta, m.totalEvents, colorReset)
	if events != "" {
		summary = fmt.Sprintf("%s [%s]", summary, events)
	}
	if trend != "" {
		summary = fmt.Sprintf("%s %strend=[%s]%s", summary, colorYellow, trend, colorReset)
	}
	return summary
}

func (m tuiModel) renderBottom() string {
	apiColor := lipgloss.Color("9")
	if m.api {
		apiColor = lipgloss.Color("10")
	}
	wrapColor := lipgloss.Color("9")
	if m.wrap {
		wrapColor = lipgloss.Color("10")
	}
	scrollColor := lipgloss.Color("10")
	if !m.autoscroll {
		scrollColor = lipgloss.Color("9")
	}
	apiIndicator := lipgloss.NewStyle().Foreground(apiColor).Render("●")
	wrapIndicator := lipgloss.NewStyle().Foreground(wrapColor).Render("●")
	scrollIndicator := lipgloss.NewStyle().Foreground(scrollColor).Render("●")
	summaryColor := lipgloss.Color("9")
	if m.summary {
		summaryColor = lipgloss.Color("10")
	}
	summaryIndicator := lipgloss.NewStyle().Foreground(summaryColor).Render("●")
	helpColor := lipgloss.Color("9")
	if m.help {
		helpColor = lipgloss.Color("10")
	}
	helpIndicator := lipgloss.NewStyle().Foreground(helpColor).Render("●")
	fleetsColor := lipgloss.Color("10")
	if !m.showFleets {
		fleetsColor = lipgloss.Color("9")
	}
	fleetsIndicator := lipgloss.NewStyle().Foreground(fleetsColor).Render("●")
	hostilesColor := lipgloss.Color("10")
	if !m.showHostiles {
		hostilesColor = lipgloss.Color("9")
	}
	hostilesIndicator := lipgloss.NewStyle().Foreground(hostilesColor).Render("●")
	state := fmt.Sprintf("%sSTATE%s %stick=%d%s %spaused=%t%s %sdir=%s%s %sdrones=%d%s %shostiles=%d%s %sgroups=%d%s %shistory=%d%s",
		colorBlue, colorReset,
		colorGreen, m.state.Tick, colorReset,
		colorYellow, m.state.Paused, colorReset,
		colorMagenta, m.state.Direction, colorReset,
		colorGreen, m.state.Drones, colorReset,
		colorRed, m.state.Hostiles, colorReset,
		colorCyan, m.state.Groups, colorReset,
		colorGray, m.state.HistoryLen, colorReset)
	line := fmt.Sprintf("%s | API %s | Wrap %s | Scroll %s | Summary %s | Help %s | Fleets %s | Hostiles %s", state, apiIndicator, wrapIndicator, scrollIndicator, summaryIndicator, helpIndicator, fleetsIndicator, hostilesIndicator)
	if m.summary {
		return fmt.Sprintf("%s\n%s", m.renderSummary(), line)
	}
	return line
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" space  pause/resume the clock",
		" r  reverse/forward time",
		" b  jump back and replay",
		" w  toggle wrap for fleet list",
		" s  toggle auto-scroll",
		" e  spawn hostile (pattern,x,y[,min,max|radius])",
		" t  toggle summary footer",
		" m  toggle map view",
		" +  zoom in map",
		" -  zoom out map",
		" ←→↑↓ pan map",
		" 1  toggle drone layer",
		" 2  toggle hostile layer",
		" 3  toggle base layer",
		" p  toggle fleet tree",
		" n  toggle hostiles section",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}

// headingIcon picks a glyph from the dominant velocity component. The
// map renders y growing downward, so positive vy points the icon down.
func headingIcon(v world.Vec2) string {
	if v.X == 0 && v.Y == 0 {
		return "•"
	}
	if math.Abs(v.X) >= math.Abs(v.Y) {
		if v.X > 0 {
			return ">"
		}
		return "<"
	}
	if v.Y > 0 {
		return "v"
	}
	return "^"
}

func (m *tuiModel) initMapViewport() {
	m.mapCenterX = m.cfg.World.Width / 2
	m.mapCenterY = m.cfg.World.Height / 2
	m.mapXSpan = m.cfg.World.Width
	m.mapYSpan = m.cfg.World.Height
	if m.mapXSpan == 0 {
		m.mapXSpan = 1
	}
	if m.mapYSpan == 0 {
		m.mapYSpan = 1
	}
	m.mapInitialized = true
}

func (m tuiModel) renderMap() string {
	width := m.vp.Width
	bottomHeight := lipgloss.Height(m.renderBottom())
	mapHeight := m.height - m.headerHeight - bottomHeight - 4
	if mapHeight < 1 {
		mapHeight = 1
	}
	if width < 1 || (len(m.drones) == 0 && len(m.cfg.Bases) == 0) {
		return "No position data"
	}
	minX := m.mapCenterX - m.mapXSpan/2
	maxX := m.mapCenterX + m.mapXSpan/2
	minY := m.mapCenterY - m.mapYSpan/2
	maxY := m.mapCenterY + m.mapYSpan/2
	grid := make([][]string, mapHeight)
	for i := range grid {
		row := make([]string, width)
		for j := range row {
			row[j] = "."
		}
		grid[i] = row
	}
	// overlay simple x/y gridlines
	const divisions = 4
	for i := 1; i < divisions; i++ {
		x := int(float64(width-1) * float64(i) / divisions)
		for y := 0; y < mapHeight; y++ {
			if grid[y][x] == "-" {
				grid[y][x] = "+"
			} else if grid[y][x] == "." {
				grid[y][x] = "|"
			}
		}
		y := int(float64(mapHeight-1) * float64(i) / divisions)
		for x2 := 0; x2 < width; x2++ {
			if grid[y][x2] == "|" {
				grid[y][x2] = "+"
			} else if grid[y][x2] == "." {
				grid[y][x2] = "-"
			}
		}
	}
	cell := func(px, py float64) (int, int, bool) {
		x := int((px - minX) / (maxX - minX) * float64(width-1))
		y := int((py - minY) / (maxY - minY) * float64(mapHeight-1))
		if y < 0 || y >= mapHeight || x < 0 || x >= width {
			return 0, 0, false
		}
		return x, y, true
	}
	if m.mapShowBases {
		for _, b := range m.cfg.Bases {
			if x, y, ok := cell(b.X, b.Y); ok {
				grid[y][x] = fmt.Sprintf("%sB%s", colorCyan, colorReset)
			}
		}
	}
	ids := make([]string, 0, len(m.drones))
	for id := range m.drones {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if m.mapShowHostiles {
		for _, id := range ids {
			r := m.drones[id]
			if r.Team != string(world.TeamEnemy) {
				continue
			}
			if x, y, ok := cell(r.X, r.Y); ok {
				grid[y][x] = fmt.Sprintf("%sX%s", colorRed, colorReset)
			}
		}
	}
	if m.mapShowDrones {
		for _, id := range ids {
			r := m.drones[id]
			if r.Team == string(world.TeamEnemy) {
				continue
			}
			x, y, ok := cell(r.X, r.Y)
			if !ok {
				continue
			}
			col, known := modeColors[r.Mode]
			if !known {
				col = colorWhite()
			}
			if r.GroupID != nil {
				if c, ok := m.groupColors[*r.GroupID]; ok {
					col = c
				}
			}
			icon := headingIcon(world.Vec2{X: r.VX, Y: r.VY})
			grid[y][x] = fmt.Sprintf("%s%s%s", col, icon, colorReset)
		}
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("x %.0f..%.0f y %.0f..%.0f y↓\n", minX, maxX, minY, maxY))
	for _, row := range grid {
		b.WriteString(strings.Join(row, ""))
		b.WriteByte('\n')
	}
	// simple horizontal scale bar based on the x range
	unitsPerChar := (maxX - minX) / float64(width)
	barChars := int(math.Min(10, float64(width)/3))
	scaleUnits := unitsPerChar * float64(barChars)
	b.WriteString(fmt.Sprintf("Scale: |%s| %.0fu\n", strings.Repeat("-", barChars), scaleUnits))
	legendParts := []string{
		fmt.Sprintf("%s>^v<%s=friendly", colorGreen, colorReset),
		"•=idle",
		fmt.Sprintf("%sX%s=hostile", colorRed, colorReset),
		fmt.Sprintf("%sB%s=base", colorCyan, colorReset),
	}
	b.WriteString(strings.Join(legendParts, " "))
	return strings.TrimRight(b.String(), "\n")
}

func (m tuiModel) renderHostiles() string {
	if m.spawnDialog {
		return fmt.Sprintf("Spawn Hostile (pattern,x,y[,min,max|radius]) - Enter to spawn, Esc to cancel: %s", m.spawnInput.View())
	}
	ids := make([]string, 0, len(m.drones))
	for id, r := range m.drones {
		if r.Team == string(world.TeamEnemy) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "Hostiles: none"
	}
	sort.Strings(ids)
	maxLines := m.maxSectionLines()
	if len(ids) > maxLines {
		ids = ids[len(ids)-maxLines:]
	}
	var b strings.Builder
	b.WriteString("Hostiles:\n")
	for _, id := range ids {
		r := m.drones[id]
		b.WriteString(fmt.Sprintf("%s pos=(%.1f,%.1f) vel=(%.1f,%.1f) mode=%s\n", id, r.X, r.Y, r.VX, r.VY, r.Mode))
	}
	return strings.TrimRight(b.String(), "\n")
}

func parseHostileInput(val string) (config.HostileSpec, error) {
	parts := strings.Split(val, ",")
	if len(parts) < 3 {
		return config.HostileSpec{}, fmt.Errorf("expected pattern,x,y[,min,max|radius]")
	}
	pattern := strings.TrimSpace(parts[0])
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return config.HostileSpec{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return config.HostileSpec{}, err
	}
	spec := config.HostileSpec{Pattern: pattern, X: x, Y: y}
	switch world.PatternKind(pattern) {
	case world.PatternBounceX, world.PatternBounceY:
		if len(parts) < 5 {
			return config.HostileSpec{}, fmt.Errorf("bounce pattern needs min,max")
		}
		min, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return config.HostileSpec{}, err
		}
		max, err := strconv.ParseFloat(strings.TrimSpace(parts[4]), 64)
		if err != nil {
			return config.HostileSpec{}, err
		}
		spec.Min, spec.Max = min, max
	case world.PatternCircular:
		if len(parts) < 4 {
			return config.HostileSpec{}, fmt.Errorf("circular pattern needs radius")
		}
		radius, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return config.HostileSpec{}, err
		}
		spec.Radius = radius
	}
	return spec, nil
}
