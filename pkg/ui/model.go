package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/lexflow/pkg/booking"
	"github.com/go-go-golems/lexflow/pkg/chat"
	"github.com/go-go-golems/lexflow/pkg/session"
	"github.com/go-go-golems/lexflow/pkg/webhook"
)

const helpText = "enter enviar · ctrl+x cancelar · /file <ruta> · /book [AAAA-MM-DD] · /clear · ctrl+c salir"

// ModelOptions configures the chat model.
type ModelOptions struct {
	Title    string
	Subtitle string
	BotName  string
	// Booking is optional; /book is disabled without it.
	Booking *booking.Client
}

type slotsMsg struct {
	date  time.Time
	slots []booking.Slot
	err   error
}

type clearedMsg struct{ err error }

// Model is the bubbletea model of the terminal chat client.
type Model struct {
	ctx     context.Context
	backend *SessionBackend
	opts    ModelOptions

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	md       markdownRenderer

	messages []chat.Message
	state    chat.State
	status   string
	slotDate time.Time
	slots    []booking.Slot
	width    int
	ready    bool
	quitting bool
}

func NewModel(ctx context.Context, backend *SessionBackend, opts ModelOptions) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	in := textinput.New()
	in.Placeholder = "Escribe tu consulta..."
	in.Prompt = "› "
	in.CharLimit = 4000
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:     ctx,
		backend: backend,
		opts:    opts,
		input:   in,
		spinner: sp,
		state:   chat.StateIdle,
	}
	if mgr := backend.Manager(); mgr != nil {
		m.messages = mgr.Messages()
		m.state = mgr.State()
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		headerHeight := 2
		footerHeight := 4
		h := msg.Height - headerHeight - footerHeight
		if h < 3 {
			h = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = h
		}
		m.input.Width = msg.Width - 4
		m.md = newMarkdownRenderer(msg.Width - 4)
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.quitting = true
			m.backend.Interrupt()
			return m, tea.Quit
		case tea.KeyCtrlX:
			m.backend.Interrupt()
			return m, nil
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			return m.handleLine(line)
		}

	case SendFinishedMsg:
		m.syncFromManager()
		if msg.Result.Err != nil && msg.Result.Outcome != session.OutcomeDelivered {
			m.status = msg.Result.Err.Error()
		}

	case SessionEventMsg:
		m.syncFromManager()

	case slotsMsg:
		if msg.err != nil {
			m.status = "No se pudo consultar la disponibilidad"
			m.slots = nil
		} else {
			m.slotDate = msg.date
			m.slots = msg.slots
			m.status = ""
		}
		m.refreshViewport()

	case clearedMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		m.slots = nil
		m.syncFromManager()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleLine(line string) (tea.Model, tea.Cmd) {
	c := parseInput(line, lastBot(m.messages), m.slots)
	m.status = ""

	switch c.kind {
	case cmdNone:
		return m, nil
	case cmdQuit:
		m.quitting = true
		return m, tea.Quit
	case cmdHelp:
		m.status = helpText
		return m, nil
	case cmdAbort:
		m.backend.Interrupt()
		return m, nil
	case cmdClear:
		mgr := m.backend.Manager()
		ctx := m.ctx
		return m, func() tea.Msg { return clearedMsg{err: mgr.ClearHistory(ctx)} }
	case cmdBook:
		if m.opts.Booking == nil {
			m.status = "La agenda no está habilitada"
			return m, nil
		}
		if len(m.slots) > 0 && strings.Contains(c.arg, ":") {
			text := booking.ConfirmationText(m.slotDate, c.arg)
			m.slots = nil
			return m.send(text, nil)
		}
		return m, m.fetchSlots(c.arg)
	case cmdFile:
		f, err := webhook.FileFromPath(c.arg)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		return m.send(c.text, f)
	default:
		m.slots = nil
		return m.send(c.text, nil)
	}
}

func (m Model) send(text string, f *webhook.File) (tea.Model, tea.Cmd) {
	cmd, err := m.backend.Start(m.ctx, text, f)
	if err != nil {
		m.status = "Espera la respuesta actual o presiona ctrl+x para cancelar"
		return m, nil
	}
	m.state = chat.StateSending
	if f != nil {
		m.state = chat.StateAnalyzing
	}
	return m, cmd
}

func (m Model) fetchSlots(arg string) tea.Cmd {
	client := m.opts.Booking
	ctx := m.ctx
	sid := m.backend.Manager().Session().SessionID
	return func() tea.Msg {
		date := time.Now()
		if strings.TrimSpace(arg) != "" {
			d, err := booking.ParseDate(arg, time.Local)
			if err != nil {
				return slotsMsg{err: err}
			}
			date = d
		} else {
			for _, d := range booking.Window(date, booking.WindowDays) {
				if client.Hours.IsBusinessDay(d) {
					date = d
					break
				}
			}
		}
		slots, err := client.Availability(ctx, date, sid)
		if err != nil {
			log.Warn().Err(err).Msg("slot lookup failed")
		}
		return slotsMsg{date: date, slots: slots, err: err}
	}
}

func (m *Model) syncFromManager() {
	if mgr := m.backend.Manager(); mgr != nil {
		m.messages = mgr.Messages()
		m.state = mgr.State()
	}
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	content := renderTranscript(m.messages, m.opts.BotName, m.md)
	if len(m.slots) > 0 {
		content += "\n" + renderSlots(booking.FormatDate(m.slotDate), m.slots) + "\n"
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Cargando..."
	}
	header := titleStyle.Render(m.opts.Title)
	if m.opts.Subtitle != "" {
		header += " " + subtitleStyle.Render(m.opts.Subtitle)
	}

	status := m.status
	switch m.state {
	case chat.StateSending:
		status = m.spinner.View() + " Escribiendo..."
	case chat.StateAnalyzing:
		status = m.spinner.View() + " Analizando documento..."
	}
	statusLine := statusStyle.Render(status)
	if m.status != "" && !m.state.Busy() {
		statusLine = errorStyle.Render(m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		statusLine,
		m.input.View(),
		metaStyle.Render(helpText),
	)
}
