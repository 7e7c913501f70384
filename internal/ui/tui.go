package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/FriedrichWeinmann/sendping/internal/domain"
)

var (
	colorActiveBlue = lipgloss.Color("39")  // Bright Cyan/Blue for active elements
	colorDimGray    = lipgloss.Color("240") // Faded text for timestamps, logs
	colorGreen      = lipgloss.Color("42")  // Success
	colorRed        = lipgloss.Color("196") // Failure
	colorYellow     = lipgloss.Color("220") // Running/Pending
	colorWhite      = lipgloss.Color("255")
	colorLightGray  = lipgloss.Color("250") // Slightly brighter gray for keys

	styleBoldWhite = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	styleDim       = lipgloss.NewStyle().Foreground(colorDimGray)
	styleActive    = lipgloss.NewStyle().Foreground(colorActiveBlue).Bold(true)
	styleSuccess   = lipgloss.NewStyle().Foreground(colorGreen)
	styleFailure   = lipgloss.NewStyle().Foreground(colorRed)
	stylePending   = lipgloss.NewStyle().Foreground(colorDimGray)
	styleRunning   = lipgloss.NewStyle().Foreground(colorYellow)

	styleHelpKey  = lipgloss.NewStyle().Foreground(colorLightGray)
	styleHelpText = lipgloss.NewStyle().Foreground(colorDimGray)

	styleSidebar = lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
	styleMain    = lipgloss.NewStyle().PaddingLeft(4)
	styleFooter  = lipgloss.NewStyle().PaddingTop(1).PaddingLeft(1).PaddingBottom(1)
	styleScreen  = lipgloss.NewStyle().Margin(1, 2)
)

const (
	statusPending = "pending"
	statusRunning = "running"
	statusDone    = "done"
)

type TUIFormatter struct {
	model   *Model
	program *tea.Program
	ready   chan struct{}
	once    sync.Once
}

type startMsg struct {
	target string
	seq    int
}

type completeMsg struct {
	target  string
	attempt domain.Attempt
}

type reportMsg struct{ report domain.RunReport }
type allCompleteMsg struct{}
type tickMsg time.Time

type streamMsg struct {
	text   string
	target string
}

type tuiWriter struct {
	formatter *TUIFormatter
	target    string
}

// targetState is the live view of one run, rebuilt from attempt events.
type targetState struct {
	target     string
	status     string
	opts       domain.RunOptions
	seq        int
	sent       int
	received   int
	lastRTT    int64
	minRTT     int64
	maxRTT     int64
	sumRTT     int64
	lastFailed bool
	startedAt  time.Time
	report     *domain.RunReport
}

type logLine struct {
	timestamp time.Time
	text      string // Pre-styled text with timestamp
}

type Model struct {
	cfg                 *domain.RunConfig
	completed           int
	finished            bool
	quit                bool
	width               int
	height              int
	targets             []targetState
	index               map[string]int
	selected            int
	logs                map[string][]logLine
	maxLinesPerTarget   int
	scrollOffset        int
	sidebarScrollOffset int
	autoScroll          bool
	spinner             spinner.Model
	progress            progress.Model
	mu                  sync.Mutex
}

func NewModel(cfg *domain.RunConfig) *Model {
	targets := make([]targetState, len(cfg.Requests))
	index := make(map[string]int, len(cfg.Requests))
	for i, req := range cfg.Requests {
		targets[i] = targetState{
			target: req.Target,
			status: statusPending,
			opts:   req,
		}
		if _, ok := index[req.Target]; !ok {
			index[req.Target] = i
		}
	}

	return &Model{
		cfg:               cfg,
		targets:           targets,
		index:             index,
		logs:              make(map[string][]logLine),
		maxLinesPerTarget: 10000,
		autoScroll:        true,
		spinner:           spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styleRunning)),
		progress:          progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage()),
	}
}

func NewTUIFormatter(cfg *domain.RunConfig) *TUIFormatter {
	return &TUIFormatter{model: NewModel(cfg), ready: make(chan struct{})}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.spinner.Tick)
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/10, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) state(target string) *targetState {
	i, ok := m.index[target]
	if !ok {
		return nil
	}
	return &m.targets[i]
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case startMsg:
		m.mu.Lock()
		if st := m.state(msg.target); st != nil {
			if st.status == statusPending {
				st.startedAt = time.Now()
			}
			st.status = statusRunning
			st.seq = msg.seq
		}
		m.mu.Unlock()

	case completeMsg:
		m.mu.Lock()
		if st := m.state(msg.target); st != nil {
			st.record(msg.attempt)
		}
		m.mu.Unlock()

	case reportMsg:
		m.mu.Lock()
		if st := m.state(msg.report.Target); st != nil {
			report := msg.report
			st.report = &report
			st.status = statusDone
			// an attempt abandoned by cancellation was started but never counted
			st.seq = report.AttemptsTotal
			m.completed++
		}
		m.mu.Unlock()

	case streamMsg:
		m.appendLog(msg)
		return m, nil

	case spinner.TickMsg:
		m.mu.Lock()
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.mu.Unlock()
		return m, cmd

	case tickMsg:
		m.mu.Lock()
		active := !m.finished
		m.mu.Unlock()

		if active {
			return m, tick()
		}
		return m, nil

	case allCompleteMsg:
		m.mu.Lock()
		m.finished = true
		m.mu.Unlock()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quit = true
			return m, tea.Quit
		case "up", "k":
			m.mu.Lock()
			if m.selected > 0 {
				m.selected--
				m.autoScroll = true
				if m.selected < m.sidebarScrollOffset {
					m.sidebarScrollOffset = m.selected
				}
			}
			m.mu.Unlock()
		case "down", "j":
			m.mu.Lock()
			if m.selected < len(m.targets)-1 {
				m.selected++
				m.autoScroll = true
			}
			m.mu.Unlock()
		case "home":
			m.mu.Lock()
			m.scrollOffset = 0
			m.autoScroll = false
			m.mu.Unlock()
		case "end":
			m.mu.Lock()
			m.autoScroll = true
			m.mu.Unlock()
		case "pgup":
			m.mu.Lock()
			m.scrollOffset = max(0, m.scrollOffset-10)
			m.autoScroll = false
			m.mu.Unlock()
		case "pgdown":
			m.mu.Lock()
			m.scrollOffset += 10
			m.autoScroll = false
			m.mu.Unlock()
		}

	case tea.WindowSizeMsg:
		m.mu.Lock()
		m.width = msg.Width
		m.height = msg.Height
		m.mu.Unlock()
	}

	return m, nil
}

func (st *targetState) record(a domain.Attempt) {
	st.sent++
	st.seq = a.Seq
	if !a.Outcome.Succeeded {
		st.lastFailed = true
		return
	}
	rtt := a.Outcome.RoundTripMillis
	if st.received == 0 {
		st.minRTT, st.maxRTT = rtt, rtt
	}
	st.received++
	st.lastFailed = false
	st.lastRTT = rtt
	st.sumRTT += rtt
	st.minRTT = min(st.minRTT, rtt)
	st.maxRTT = max(st.maxRTT, rtt)
}

func (m *Model) View() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.width == 0 {
		return "Initializing..."
	}

	availWidth := max(20, m.width-4)
	availHeight := max(10, m.height-2)
	sidebarW := max(30, availWidth/4)
	mainW := availWidth - sidebarW - 1
	footerHeight := 3
	contentH := max(10, availHeight-footerHeight)

	sidebar := m.renderSidebar(sidebarW, contentH)
	mainPanel := m.renderMainPanel(mainW, contentH)
	footer := m.renderFooter(availWidth)

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, mainPanel)
	screen := lipgloss.JoinVertical(lipgloss.Left, body, footer)

	return styleScreen.Render(screen)
}

func (m *Model) renderSidebar(width, height int) string {
	var sb strings.Builder

	sb.WriteString(styleBoldWhite.Render("TARGETS"))
	sb.WriteString("\n\n")

	visibleLines := height - 4

	if m.selected >= m.sidebarScrollOffset+visibleLines {
		m.sidebarScrollOffset = m.selected - visibleLines + 1
	}

	startIdx := m.sidebarScrollOffset
	endIdx := min(len(m.targets), startIdx+visibleLines)

	if startIdx > 0 {
		sb.WriteString(styleDim.Render("  ▲ more above"))
		sb.WriteString("\n")
	}

	for i := startIdx; i < endIdx; i++ {
		sb.WriteString(m.renderTargetLine(i, width))
		sb.WriteString("\n")
	}

	if endIdx < len(m.targets) {
		sb.WriteString(styleDim.Render("  ▼ more below"))
	}

	return styleSidebar.Width(width).MaxWidth(width).Height(height).Render(sb.String())
}

func (m *Model) renderTargetLine(index, width int) string {
	st := m.targets[index]
	icon, style := m.targetStatusDisplay(st)

	name := st.target
	if limit := width - 14; limit > 3 && len(name) > limit {
		name = name[:limit-3] + "..."
	}
	row := fmt.Sprintf("%s %s %d/%d", icon, name, st.received, st.sent)

	if index == m.selected {
		return styleActive.Render("┃ " + row)
	}
	return style.Render("  " + row)
}

func (m *Model) targetStatusDisplay(st targetState) (string, lipgloss.Style) {
	switch st.status {
	case statusDone:
		if st.report != nil && st.report.SuccessCount > 0 {
			return "✓", styleSuccess
		}
		return "✗", styleFailure
	case statusRunning:
		if st.lastFailed {
			return "!", styleFailure
		}
		return m.spinner.View(), styleRunning
	default:
		return "-", stylePending
	}
}

func (m *Model) renderMainPanel(width, height int) string {
	var main strings.Builder

	if m.selected >= len(m.targets) {
		return styleMain.Width(width).Render("")
	}

	st := m.targets[m.selected]

	main.WriteString(styleBoldWhite.Render("TARGET: " + st.target))
	main.WriteString("\n\n")

	m.renderOptionsSection(&main, st)
	m.renderProgressSection(&main, st)
	m.renderLiveSection(&main, st)
	m.renderStatisticsSection(&main, st)
	m.renderLogsSection(&main, st, height)

	return styleMain.Width(width).Height(height).Render(main.String())
}

func (m *Model) renderOptionsSection(w *strings.Builder, st targetState) {
	count := fmt.Sprintf("%d", st.opts.Count)
	if st.opts.Unbounded() {
		count = "continuous"
	}
	w.WriteString(styleBoldWhite.Render("Options") + "\n")
	fmt.Fprintf(w, "  count %s  timeout %s  wait %s  sound %s\n\n",
		count, st.opts.Timeout, st.opts.Delay, st.opts.SoundPolicy)
}

func (m *Model) renderProgressSection(w *strings.Builder, st targetState) {
	w.WriteString(styleBoldWhite.Render("Progress") + "\n")

	switch {
	case st.status == statusPending:
		w.WriteString("  Pending\n\n")
	case st.opts.Unbounded():
		state := styleRunning.Render(m.spinner.View() + " running, q to stop")
		if st.status == statusDone {
			state = styleDim.Render("stopped")
		}
		fmt.Fprintf(w, "  attempt %d  %s\n\n", st.seq, state)
	default:
		ratio := float64(st.sent) / float64(st.opts.Count)
		fmt.Fprintf(w, "  %s %d/%d\n\n", m.progress.ViewAs(ratio), st.sent, st.opts.Count)
	}
}

func (m *Model) renderLiveSection(w *strings.Builder, st targetState) {
	w.WriteString(styleBoldWhite.Render("Live") + "\n")
	if st.sent == 0 {
		w.WriteString("  -\n\n")
		return
	}

	loss := float64(st.sent-st.received) / float64(st.sent) * 100
	fmt.Fprintf(w, "  sent %d  received %d  loss %.0f%%\n", st.sent, st.received, loss)
	if st.received == 0 {
		w.WriteString("  " + styleFailure.Render("no replies") + "\n\n")
		return
	}
	avg := float64(st.sumRTT) / float64(st.received)
	fmt.Fprintf(w, "  last %dms  min %dms  avg %.1fms  max %dms\n\n", st.lastRTT, st.minRTT, avg, st.maxRTT)
}

func (m *Model) renderStatisticsSection(w *strings.Builder, st targetState) {
	w.WriteString(styleBoldWhite.Render("Statistics") + "\n")
	if st.report == nil {
		w.WriteString("  " + styleDim.Render("available when the run ends") + "\n\n")
		return
	}

	r := st.report
	s := r.Statistics
	statText := fmt.Sprintf("%s%% success (%d/%d)", formatFloat(r.SuccessPercent), r.SuccessCount, r.AttemptsTotal)
	if r.SuccessCount > 0 {
		statText = styleSuccess.Render(statText)
	} else {
		statText = styleFailure.Render(statText)
	}
	w.WriteString("  " + statText + "\n")
	fmt.Fprintf(w, "  min/avg/max %s/%s/%s ms\n", formatStat(s.Min), formatStat(s.Average), formatStat(s.Max))
	fmt.Fprintf(w, "  std dev %s ms (%s%%)  mean abs dev %s ms (%s%%)\n",
		formatStat(s.StandardDeviation), formatStat(s.StandardDeviationPercent),
		formatStat(s.MeanAbsoluteDeviation), formatStat(s.MeanAbsoluteDeviationPercent))
	if r.ResolvedName != nil {
		fmt.Fprintf(w, "  name %s\n", *r.ResolvedName)
	}
	w.WriteString("\n")
}

func (m *Model) renderLogsSection(w *strings.Builder, st targetState, contentHeight int) {
	w.WriteString(styleBoldWhite.Render("ATTEMPTS"))
	w.WriteString("\n")

	entries := m.logs[st.target]
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, entry.text)
	}
	if len(lines) == 0 && !st.opts.Announce {
		lines = append(lines, styleDim.Render("per-attempt lines are shown with --announce"))
	}

	// title, blank line and the sections above take about 18 lines
	logAreaHeight := max(5, contentHeight-18)
	total := len(lines)

	if m.autoScroll && total > logAreaHeight {
		m.scrollOffset = total - logAreaHeight
	}

	start := max(0, min(m.scrollOffset, total-logAreaHeight))
	end := min(total, start+logAreaHeight)

	rendered := 0
	for i := start; i < end; i++ {
		w.WriteString(lines[i] + "\n")
		rendered++
	}
	for rendered < logAreaHeight {
		w.WriteString("\n")
		rendered++
	}

	if end < total {
		w.WriteString(styleDim.Render("... (scroll down for more) ..."))
	} else {
		w.WriteString(" ")
	}
}

func (m *Model) renderFooter(width int) string {
	progressStr := fmt.Sprintf("%d/%d", m.completed, len(m.targets))
	stateStr := "Active"
	if m.finished {
		stateStr = "Complete"
	}
	leftSection := styleHelpText.Render(progressStr + " " + stateStr)

	var helpItems []string
	helpItems = append(helpItems, styleHelpKey.Render("↑/k")+styleHelpText.Render(" navigate"))
	helpItems = append(helpItems, styleHelpKey.Render("pgup/pgdn")+styleHelpText.Render(" scroll"))
	helpItems = append(helpItems, styleHelpKey.Render("q")+styleHelpText.Render(" quit"))

	rightSection := strings.Join(helpItems, "   ")

	leftWidth := lipgloss.Width(leftSection)
	rightWidth := lipgloss.Width(rightSection)
	spacerWidth := max(2, width-leftWidth-rightWidth-4)
	spacer := strings.Repeat(" ", spacerWidth)

	return styleFooter.Width(width).Render(leftSection + spacer + rightSection)
}

func (m *Model) appendLog(msg streamMsg) {
	m.mu.Lock()
	defer m.mu.Unlock()

	timestamp := time.Now()
	for _, line := range strings.Split(strings.TrimRight(msg.text, "\n"), "\n") {
		if line == "" {
			continue
		}

		ts := styleDim.Render("[" + timestamp.Format("15:04:05") + "] ")
		styled := styleDim.Render(line)
		if strings.Contains(line, "request failed") {
			styled = styleFailure.Render(line)
		}

		m.logs[msg.target] = append(m.logs[msg.target], logLine{timestamp: timestamp, text: ts + styled})

		if n := len(m.logs[msg.target]); n > m.maxLinesPerTarget {
			m.logs[msg.target] = m.logs[msg.target][n-m.maxLinesPerTarget:]
		}
	}
}

func (f *TUIFormatter) Run(ctx context.Context) error {
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if ctx != nil {
		opts = append(opts, tea.WithContext(ctx))
	}

	f.program = tea.NewProgram(f.model, opts...)
	f.once.Do(func() { close(f.ready) })

	_, err := f.program.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func (f *TUIFormatter) WaitReady(ctx context.Context) error {
	select {
	case <-f.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *TUIFormatter) send(msg tea.Msg) {
	if f.program != nil {
		f.program.Send(msg)
	}
}

func (f *TUIFormatter) OnStart(target string, seq int) {
	f.send(startMsg{target: target, seq: seq})
}

func (f *TUIFormatter) OnComplete(target string, attempt domain.Attempt) {
	f.send(completeMsg{target: target, attempt: attempt})
}

func (f *TUIFormatter) OnReport(report domain.RunReport) {
	f.send(reportMsg{report: report})
}

func (f *TUIFormatter) OnFinish() {
	f.send(allCompleteMsg{})
}

func (f *TUIFormatter) AnnounceWriter(target string) io.Writer {
	return &tuiWriter{formatter: f, target: target}
}

func (w *tuiWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		w.formatter.send(streamMsg{text: string(p), target: w.target})
	}
	return len(p), nil
}
