// Package tui draws the card list, the detail panel and the status lines
// and maps key presses onto builder operations.
package tui

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tx-composer/lib/logger"
	"tx-composer/modules/builder"
	"tx-composer/modules/chain"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/moznion/go-optional"
)

// Chain is the view of the chain watcher the editor needs.
type Chain interface {
	Tip() (chain.Tip, bool)
	Nonce(account [32]byte) optional.Option[uint64]
	Submit(extrinsic []byte)
	Status() string
}

const (
	tickInterval  = time.Second
	defaultWidth  = 100
	defaultHeight = 30
	// header, block and log lines
	statusLines = 3
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Background(lipgloss.Color("62"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("252"))
	blockStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("240"))
	logStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	editStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type Model struct {
	logger  *slog.Logger
	builder *builder.Builder
	chain   optional.Option[Chain]
	ring    *logger.Ring
	title   string

	width  int
	height int
}

var _ tea.Model = Model{}

func New(logger *slog.Logger, b *builder.Builder, c optional.Option[Chain], ring *logger.Ring, title string) Model {
	return Model{
		logger:  logger.With("sub-service", "tui"),
		builder: b,
		chain:   c,
		ring:    ring,
		title:   title,
		width:   defaultWidth,
		height:  defaultHeight,
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.autofill()
		return m, tick()
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	b := m.builder
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		return tea.Quit
	case tea.KeyUp:
		b.MoveCursor(-1)
	case tea.KeyDown:
		b.MoveCursor(1)
	case tea.KeyLeft:
		b.Cycle(-1)
	case tea.KeyRight:
		b.Cycle(1)
	case tea.KeyEnter:
		b.ToggleEdit()
	case tea.KeyBackspace:
		b.PopChar()
	case tea.KeyTab:
		m.submit()
	case tea.KeySpace:
		b.PushChar(' ')
	case tea.KeyRunes:
		if msg.Paste {
			b.Paste(string(msg.Runes))
			break
		}
		for _, r := range msg.Runes {
			b.PushChar(r)
		}
	}
	return nil
}

// autofill runs on every tick with whatever the watcher has seen so far.
func (m Model) autofill() {
	if m.chain.IsNone() {
		return
	}
	c := m.chain.Unwrap()
	tip, ok := c.Tip()
	if !ok {
		return
	}

	nonce := optional.None[uint64]()
	if author := m.builder.Author(); author.IsSome() {
		nonce = c.Nonce(author.Unwrap())
	}
	m.builder.Autofill(builder.Tip(tip), nonce)
}

func (m Model) submit() {
	payload := m.builder.FinalizedPayload()
	if payload.IsNone() {
		m.logger.Warn("nothing to submit, sign the transaction first")
		return
	}
	if m.chain.IsNone() {
		m.logger.Warn("offline, transaction not submitted", "extrinsic", "0x"+hex.EncodeToString(payload.Unwrap()))
		return
	}
	m.chain.Unwrap().Submit(payload.Unwrap())
}

// ===== view =====

func (m Model) header() string {
	return fmt.Sprintf("=====%s===== %s | ss58 %d", m.title, m.builder.Mode(), m.builder.SS58Prefix())
}

func (m Model) blockLine() string {
	if m.chain.IsNone() {
		return "Offline"
	}
	c := m.chain.Unwrap()
	line := "Waiting for the first block"
	if tip, ok := c.Tip(); ok {
		line = fmt.Sprintf("Last block: #%d 0x%s", tip.Number, hex.EncodeToString(tip.Hash[:]))
	}
	if status := c.Status(); status != "" {
		line += " | " + status
	}
	return line
}

func render(lines []string, selected int, width int, height int, highlight lipgloss.Style) string {
	lines, selected = scroll(lines, selected, height)
	out := make([]string, len(lines))
	for i, l := range lines {
		if i == selected {
			out[i] = highlight.Render(l)
		} else {
			out[i] = l
		}
	}
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		MaxHeight(height).
		Render(strings.Join(out, "\n"))
}

func (m Model) View() string {
	body := max(m.height-statusLines, 1)
	left := m.width / 2
	right := m.width - left

	highlight := selectedStyle
	if m.builder.Mode() == builder.Edit {
		highlight = editStyle.Reverse(true)
	}
	cards := cardLines(m.builder.Cards(), m.builder.Cursor(), body)
	detail, selected := detailLines(m.builder.Details(), body)

	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Width(m.width).Render(m.header()),
		lipgloss.JoinHorizontal(lipgloss.Top,
			render(cards, m.builder.Cursor(), left, body, highlight),
			render(detail, selected, right, body, selectedStyle),
		),
		blockStyle.Width(m.width).MaxHeight(1).Render(m.blockLine()),
		logStyle.Width(m.width).MaxHeight(1).Render(m.ring.Last()),
	)
}
