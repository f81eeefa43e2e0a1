// Package display provides the terminal UI using Bubble Tea.
//
// The [UI] type keeps a status bar (active slot, category, online voice,
// say/stop) and an input prompt at the bottom of the terminal. All other
// output is printed above the rendered area via Program.Println, so
// concurrent writes never garble the display.
package display

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/distype/internal/compose"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	speakingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a")).
			Bold(true)

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	offStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a")).
			Italic(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// BannerStyle is used for the startup banner and intro lines.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	chatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	urgentOutputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fca5a5"))

	userInputEchoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a1a1aa"))
)

// promptText is plain so textinput width math stays correct; styled
// prompts add ANSI bytes that break its offset calculations.
const promptText = "say> "

// Status is a snapshot of what the bar shows.
type Status struct {
	Slot         int // 0-based
	Slots        int
	Category     string
	PreferOnline bool
	Online       bool
	Speaking     bool
	WordEcho     bool
}

// Hooks are callbacks the UI invokes from key bindings. Nil hooks are
// skipped.
type Hooks struct {
	// Stop runs on Esc.
	Stop func()
	// Word runs when a word is completed in the prompt.
	Word func(word string)
}

// ── UI ───────────────────────────────────────────────────────────

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). Other goroutines may call the
// print helpers, [UI.SetInput] and read [UI.InputChan] after
// [UI.WaitReady] returns.
type UI struct {
	program *tea.Program
	inputCh chan string
	readyCh chan struct{}
	quitCh  chan struct{}
	slots   *compose.Slots
	status  func() Status
	hooks   Hooks
	done    atomic.Bool
}

// NewUI creates the display. status is polled for the bar; slots backs
// the Alt+1..9 slot switching.
func NewUI(slots *compose.Slots, status func() Status, hooks Hooks) *UI {
	if status == nil {
		status = func() Status { return Status{} }
	}
	return &UI{
		slots:   slots,
		status:  status,
		hooks:   hooks,
		inputCh: make(chan string, 16),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// Println prints a line above the prompt. Thread-safe. Falls back to
// fmt.Println before the program starts or after it ends.
func (u *UI) Println(a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// Printf prints formatted text above the prompt. Thread-safe.
func (u *UI) Printf(format string, a ...interface{}) {
	if u.program != nil && !u.done.Load() {
		u.program.Printf(format, a...)
	} else {
		fmt.Printf(format+"\n", a...)
	}
}

// InputChan returns completed user-input lines.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// SetInput replaces the prompt's text, e.g. after a slot switch or
// dictation.
func (u *UI) SetInput(text string) {
	if u.program != nil && !u.done.Load() {
		u.program.Send(setInputMsg(text))
	}
}

// ── Styled print helpers ─────────────────────────────────────────

// PrintChat prints a line that was spoken.
func (u *UI) PrintChat(text string) {
	u.Println(chatStyle.Render("  " + text))
}

// PrintHeader prints a section header like "Categories:".
func (u *UI) PrintHeader(text string) {
	u.Println(headerStyle.Render("  " + text))
}

// PrintItem prints a numbered list entry.
func (u *UI) PrintItem(n int, text, meta string) {
	line := primaryStyle.Render(fmt.Sprintf("  %3d. %s", n, text))
	if meta != "" {
		line += secondaryStyle.Render("  " + meta)
	}
	u.Println(line)
}

// PrintHint prints a dimmed line.
func (u *UI) PrintHint(text string) {
	u.Println(secondaryStyle.Render("  " + text))
}

// PrintUrgent prints an error line.
func (u *UI) PrintUrgent(text string) {
	u.Println(urgentOutputStyle.Render("  " + text))
}

// PrintVoice prints a dictated input line.
func (u *UI) PrintVoice(text string) {
	u.Println(secondaryStyle.Render("[voice] ") + primaryStyle.Render(text))
}

// PrintUserInput echoes a typed line into the scrollback.
func (u *UI) PrintUserInput(text string) {
	u.Println(promptStyle.Render("say") + secondaryStyle.Render("> ") + userInputEchoStyle.Render(text))
}

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	m := newModel(u.slots, u.status, u.hooks, u.inputCh, u.readyCh, u.PrintUserInput)
	u.program = tea.NewProgram(m)
	_, err := u.program.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	slots   *compose.Slots
	statusF func() Status
	hooks   Hooks
	input   textinput.Model
	inputCh chan<- string
	readyCh chan struct{}
	echoFn  func(string)
	status  Status
	width   int
}

// Messages.
type (
	tickMsg     time.Time
	setInputMsg string
)

// refreshEvery is short enough for the say/stop flag to feel immediate.
const refreshEvery = 150 * time.Millisecond

func newModel(slots *compose.Slots, status func() Status, hooks Hooks, inputCh chan<- string, readyCh chan struct{}, echo func(string)) model {
	ti := textinput.New()
	ti.Prompt = promptText
	ti.PromptStyle = promptStyle
	ti.TextStyle = userInputEchoStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.Focus()
	ti.CharLimit = 1000
	ti.Width = 60 // updated on first WindowSizeMsg

	return model{
		slots:   slots,
		statusF: status,
		hooks:   hooks,
		input:   ti,
		inputCh: inputCh,
		readyCh: readyCh,
		echoFn:  echo,
		status:  status(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
		signalReady(m.readyCh),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		close(ch)
		return nil
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			if stop := m.hooks.Stop; stop != nil {
				return m, func() tea.Msg { stop(); return nil }
			}
			return m, nil
		case tea.KeyEnter:
			v := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(v) != "" {
				m.inputCh <- v
				// Echo from a Cmd so Println does not deadlock Update.
				echoFn := m.echoFn
				return m, func() tea.Msg {
					echoFn(v)
					return nil
				}
			}
			return m, nil
		case tea.KeyRunes:
			if n, ok := slotKey(msg); ok && m.slots != nil {
				if text, err := m.slots.Switch(n, m.input.Value()); err == nil {
					m.input.SetValue(text)
					m.input.CursorEnd()
					m.status = m.statusF()
				}
				return m, nil
			}
		}

	case setInputMsg:
		m.input.SetValue(string(msg))
		m.input.CursorEnd()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > len(promptText) {
			m.input.Width = msg.Width - len(promptText)
		}
		return m, nil

	case tickMsg:
		m.status = m.statusF()
		return m, tea.Batch(tickCmd(), tea.SetWindowTitle(m.titleStr()))
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.hooks.Word != nil && len(m.input.Value()) > len(before) {
		if w := compose.LastWord(m.input.Value()); w != "" && compose.LastWord(before) == "" {
			word := m.hooks.Word
			cmd = tea.Batch(cmd, func() tea.Msg { word(w); return nil })
		}
	}
	return m, cmd
}

// slotKey maps Alt+1..Alt+9 to a 0-based slot index.
func slotKey(msg tea.KeyMsg) (int, bool) {
	if !msg.Alt || len(msg.Runes) != 1 {
		return 0, false
	}
	r := msg.Runes[0]
	if r < '1' || r > '9' {
		return 0, false
	}
	return int(r - '1'), true
}

func (m model) titleStr() string {
	if m.status.Speaking {
		return "distype: speaking"
	}
	return "distype"
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.renderBar())
	b.WriteByte('\n')
	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}

func (m model) renderBar() string {
	s := m.status
	var parts []string

	if s.Slots > 0 {
		parts = append(parts, labelStyle.Render(fmt.Sprintf("slot %d/%d", s.Slot+1, s.Slots)))
	}
	cat := s.Category
	if cat == "" {
		cat = "-"
	}
	parts = append(parts, labelStyle.Render("category: ")+primaryStyle.Render(cat))

	switch {
	case !s.PreferOnline:
		parts = append(parts, offStyle.Render("online voice off"))
	case s.Online:
		parts = append(parts, idleStyle.Render("online voice"))
	default:
		parts = append(parts, offStyle.Render("offline"))
	}
	if s.WordEcho {
		parts = append(parts, labelStyle.Render("word echo"))
	}
	if s.Speaking {
		parts = append(parts, speakingStyle.Render("■ stop (esc)"))
	} else {
		parts = append(parts, idleStyle.Render("▶ say (enter)"))
	}

	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "

	w := m.width
	if w <= 0 {
		w = 80
	}
	return barBg.Width(w).Render(content)
}
