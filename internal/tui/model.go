// Package tui provides the interactive terminal translator.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MeKo-Tech/lotra/internal/lang"
	"github.com/MeKo-Tech/lotra/internal/route"
)

// DefaultTimeout bounds a single translation started from the UI.
const DefaultTimeout = 2 * time.Minute

// Translator routes and translates a single text. *route.Router implements it.
type Translator interface {
	RouteAndTranslate(ctx context.Context, text string, p route.Policy) (*route.Result, error)
}

// Options configures the interactive model.
type Options struct {
	Translator Translator
	Policy     route.Policy
	Timeout    time.Duration
	// Clipboard writes the translation to the system clipboard. Defaults to
	// clipboard.WriteAll.
	Clipboard func(string) error
}

type translationDoneMsg struct {
	result *route.Result
	err    error
}

type clearStatusMsg struct {
	seq int
}

// Model is the bubbletea model for the interactive translator.
type Model struct {
	ctx        context.Context
	translator Translator
	timeout    time.Duration
	copyText   func(string) error

	source textarea.Model
	spin   spinner.Model
	keys   keyMap

	policy      route.Policy
	translation string
	lastDir     *route.Direction
	pending     bool
	status      string
	statusSeq   int
	err         error

	width  int
	height int
}

// New creates the model. ctx bounds every translation it starts.
func New(ctx context.Context, opts Options) *Model {
	ta := textarea.New()
	ta.Placeholder = "Enter text to translate…"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetWidth(80)
	ta.SetHeight(6)
	ta.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	copyText := opts.Clipboard
	if copyText == nil {
		copyText = clipboard.WriteAll
	}

	return &Model{
		ctx:        ctx,
		translator: opts.Translator,
		timeout:    timeout,
		copyText:   copyText,
		source:     ta,
		spin:       spin,
		keys:       defaultKeyMap(),
		policy:     opts.Policy,
		width:      80,
		height:     24,
	}
}

func (m *Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.source.SetWidth(max(msg.Width-4, 20))
		return m, nil

	case translationDoneMsg:
		m.pending = false
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
			return m, nil
		}
		m.err = nil
		m.translation = msg.result.Translation
		m.lastDir = &route.Direction{
			Source:   msg.result.Source,
			Target:   msg.result.Target,
			Detected: msg.result.Detected,
		}
		return m, m.setStatus("Translation completed")

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.source, cmd = m.source.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit, true
	case key.Matches(msg, m.keys.Translate):
		return m.startTranslation(), true
	case key.Matches(msg, m.keys.Swap):
		m.swap()
		return nil, true
	case key.Matches(msg, m.keys.Copy):
		return m.copyTranslation(), true
	case key.Matches(msg, m.keys.Clear):
		m.source.Reset()
		m.translation = ""
		m.lastDir = nil
		m.err = nil
		return nil, true
	case key.Matches(msg, m.keys.ToggleDetect):
		m.policy.AutoDetect = !m.policy.AutoDetect
		if !m.policy.AutoDetect && m.policy.Source == lang.Unknown {
			m.policy.Source = lang.English
			if m.lastDir != nil {
				m.policy.Source = m.lastDir.Source
			}
		}
		return nil, true
	case key.Matches(msg, m.keys.CycleSource):
		m.policy.AutoDetect = false
		m.policy.Source = nextCode(m.policy.Source, false)
		return nil, true
	case key.Matches(msg, m.keys.CycleTarget):
		m.policy.Target = nextCode(m.policy.Target, true)
		return nil, true
	}
	return nil, false
}

func (m *Model) startTranslation() tea.Cmd {
	if m.pending {
		return nil
	}
	text := strings.TrimSpace(m.source.Value())
	if text == "" {
		m.err = nil
		return m.setStatus("Please enter text to translate")
	}
	if m.translator == nil {
		m.err = errors.New("translator is not ready")
		return nil
	}

	m.pending = true
	m.err = nil
	m.status = "Translating…"

	tr, p, ctx, timeout := m.translator, m.policy, m.ctx, m.timeout
	run := func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		res, err := tr.RouteAndTranslate(ctx, text, p)
		return translationDoneMsg{result: res, err: err}
	}
	return tea.Batch(m.spin.Tick, run)
}

// swap exchanges source text and translation along with the language pair.
func (m *Model) swap() {
	src, tgt := m.policy.Source, m.policy.Target
	if m.lastDir != nil {
		src, tgt = m.lastDir.Source, m.lastDir.Target
	}
	text := m.source.Value()
	m.source.SetValue(m.translation)
	m.translation = text
	m.policy.Source, m.policy.Target = tgt, src
	if m.lastDir != nil {
		m.lastDir = &route.Direction{Source: tgt, Target: src}
	}
}

func (m *Model) copyTranslation() tea.Cmd {
	if m.translation == "" {
		return m.setStatus("No translation to copy")
	}
	if err := m.copyText(m.translation); err != nil {
		m.err = fmt.Errorf("copy failed: %w", err)
		return nil
	}
	return m.setStatus("Translation copied to clipboard")
}

func (m *Model) setStatus(s string) tea.Cmd {
	m.status = s
	m.statusSeq++
	seq := m.statusSeq
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

// nextCode cycles through the supported codes. When allowUnset is true the
// cycle includes lang.Unknown, which means "default partner".
func nextCode(c lang.Code, allowUnset bool) lang.Code {
	codes := lang.Supported()
	if allowUnset {
		codes = append([]lang.Code{lang.Unknown}, codes...)
	}
	for i, code := range codes {
		if code == c {
			return codes[(i+1)%len(codes)]
		}
	}
	return codes[0]
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("lotra") + " " + subtitleStyle.Render("local translator (en · ko · ja · zh)"))
	b.WriteString("\n\n")
	b.WriteString(m.directionLine())
	b.WriteString("\n")

	b.WriteString(panelStyle.Width(max(m.width-2, 20)).Render(m.source.View()))
	b.WriteString("\n")

	out := m.translation
	if out == "" {
		out = helpStyle.Render("Translation appears here")
	} else {
		out = outputStyle.Render(out)
	}
	b.WriteString(panelStyle.Width(max(m.width-2, 20)).Render(out))
	b.WriteString("\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.helpLine())
	return b.String()
}

func (m *Model) directionLine() string {
	src := "auto"
	if !m.policy.AutoDetect {
		src = m.policy.Source.Name()
	}
	if m.lastDir != nil && m.lastDir.Detected != lang.Unknown {
		src += " (detected: " + m.lastDir.Detected.Name() + ")"
	}
	tgt := "default"
	if m.policy.Target != lang.Unknown {
		tgt = m.policy.Target.Name()
	} else if m.lastDir != nil {
		tgt = m.lastDir.Target.Name() + " (default)"
	}
	return labelStyle.Render("From ") + langStyle.Render(src) + labelStyle.Render("  to ") + langStyle.Render(tgt)
}

func (m *Model) statusLine() string {
	count := helpStyle.Render(fmt.Sprintf("%d characters", utf8.RuneCountInString(m.source.Value())))
	switch {
	case m.pending:
		return m.spin.View() + " " + m.status + "  " + count
	case m.err != nil:
		return errorStyle.Render("Error: "+m.err.Error()) + "  " + count
	case m.status != "":
		return successStyle.Render(m.status) + "  " + count
	}
	return count
}

func (m *Model) helpLine() string {
	parts := make([]string, 0, len(m.keys.bindings()))
	for _, b := range m.keys.bindings() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}

// Translation returns the current translation text.
func (m *Model) Translation() string {
	return m.translation
}

// Policy returns the current direction policy.
func (m *Model) Policy() route.Policy {
	return m.policy
}
