package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/depfuse/depfuse/pkg/analyzer"
)

// =============================================================================
// Live analysis progress
// =============================================================================

// maxEventLines bounds the scrollback shown under the spinner.
const maxEventLines = 8

type (
	// progressMsg carries one runner log line.
	progressMsg string

	// runDoneMsg carries the finished run (or its error).
	runDoneMsg struct {
		run *analyzer.Run
		err error
	}

	// frameMsg advances the spinner.
	frameMsg time.Time
)

// analyzeModel is the bubbletea model for live analysis progress.
type analyzeModel struct {
	root   string
	cancel context.CancelFunc

	frame  int
	frames []string
	events []string
	seen   int

	run *analyzer.Run
	err error
}

func newAnalyzeModel(root string, cancel context.CancelFunc) analyzeModel {
	return analyzeModel{
		root:   root,
		cancel: cancel,
		frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	}
}

func tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m analyzeModel) Init() tea.Cmd {
	return tick()
}

func (m analyzeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			return m, nil
		}
	case frameMsg:
		m.frame++
		return m, tick()
	case progressMsg:
		m.seen++
		m.events = append(m.events, string(msg))
		if len(m.events) > maxEventLines {
			m.events = m.events[len(m.events)-maxEventLines:]
		}
	case runDoneMsg:
		m.run = msg.run
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m analyzeModel) View() string {
	if m.run != nil || m.err != nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(StyleTitle.Render("depfuse analyze"))
	b.WriteString("\n")
	frame := m.frames[m.frame%len(m.frames)]
	b.WriteString(styleIconSpinner.Render(frame))
	b.WriteString(" ")
	b.WriteString(StyleDim.Render(fmt.Sprintf("Analyzing %s (%d events)", m.root, m.seen)))
	b.WriteString("\n\n")
	for _, e := range m.events {
		b.WriteString("  " + StyleDim.Render(e) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("q cancel"))
	b.WriteString("\n")
	return b.String()
}

// runWithTUI runs the analyzer while showing a live progress display.
// Runner log lines stream into the display; q cancels the run.
func runWithTUI(ctx context.Context, plugins []analyzer.Plugin, workers int, root string) (*analyzer.Run, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newAnalyzeModel(root, cancel), tea.WithOutput(os.Stderr))

	runner := analyzer.NewRunner(plugins, analyzer.Options{
		Workers: workers,
		Logger: func(format string, args ...any) {
			p.Send(progressMsg(fmt.Sprintf(format, args...)))
		},
	})

	go func() {
		run, err := runner.Run(ctx, root)
		p.Send(runDoneMsg{run: run, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(analyzeModel)
	if m.err != nil {
		return nil, m.err
	}
	if m.run == nil {
		return nil, context.Canceled
	}
	return m.run, nil
}
