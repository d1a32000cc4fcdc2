package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/blackjackforbots/internal/server"
)

// phase tracks what the TUI is showing.
type phase int

const (
	phaseNamePrompt phase = iota
	phaseLobby
	phaseSeated
)

// serverMsg wraps an incoming protocol message as a tea.Msg.
type serverMsg struct {
	msg *server.Message
}

// disconnectedMsg is emitted when the receive channel closes.
type disconnectedMsg struct{}

// Conn is the slice of the websocket client the TUI needs. Tests substitute
// a fake.
type Conn interface {
	Receive() <-chan *server.Message
	Hello(name string) error
	CreateTable(name string) error
	JoinTable(tableID string) error
	ListTables() error
	StartGame() error
	Hit() error
	Stand() error
	StopGame() error
	Disconnect() error
}

// Model is the bubbletea model for a blackjack table.
type Model struct {
	conn  Conn
	phase phase

	nameInput textinput.Model
	playerID  int64
	name      string

	tables []server.TableInfo
	state  *server.TableStateData
	result *server.RoundResultData

	log    []string
	errMsg string
	width  int
}

// NewModel creates the TUI model. The connection must already be dialled.
func NewModel(conn Conn) Model {
	input := textinput.New()
	input.Placeholder = "your name"
	input.Focus()
	input.CharLimit = 32

	return Model{
		conn:      conn,
		phase:     phaseNamePrompt,
		nameInput: input,
	}
}

// Init starts listening for server messages.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.listen())
}

// listen waits for the next server message.
func (m Model) listen() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.conn.Receive()
		if !ok {
			return disconnectedMsg{}
		}
		return serverMsg{msg: msg}
	}
}

// Update handles key presses and server messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case serverMsg:
		m = m.handleServer(msg.msg)
		return m, m.listen()

	case disconnectedMsg:
		return m, tea.Quit
	}

	if m.phase == phaseNamePrompt {
		var cmd tea.Cmd
		m.nameInput, cmd = m.nameInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		_ = m.conn.Disconnect()
		return m, tea.Quit
	}

	if m.phase == phaseNamePrompt {
		if msg.Type == tea.KeyEnter {
			name := strings.TrimSpace(m.nameInput.Value())
			if name == "" {
				return m, nil
			}
			m.name = name
			if err := m.conn.Hello(name); err != nil {
				m.errMsg = err.Error()
				return m, nil
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.nameInput, cmd = m.nameInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		_ = m.conn.Disconnect()
		return m, tea.Quit
	case "l":
		m.send(m.conn.ListTables)
	case "c":
		if m.phase == phaseLobby {
			m.send(func() error { return m.conn.CreateTable(m.name + "'s table") })
		}
	case "j":
		if m.phase == phaseLobby && len(m.tables) > 0 {
			m.send(func() error { return m.conn.JoinTable(m.tables[0].ID) })
		}
	case "n":
		if m.phase == phaseSeated {
			m.send(m.conn.StartGame)
		}
	case "h":
		if m.phase == phaseSeated {
			m.send(m.conn.Hit)
		}
	case "s":
		if m.phase == phaseSeated {
			m.send(m.conn.Stand)
		}
	case "x":
		if m.phase == phaseSeated {
			m.send(m.conn.StopGame)
		}
	}
	return m, nil
}

func (m *Model) send(fn func() error) {
	if err := fn(); err != nil {
		m.errMsg = err.Error()
	}
}

// handleServer folds a protocol message into the model.
func (m Model) handleServer(msg *server.Message) Model {
	m.errMsg = ""

	switch msg.Type {
	case server.TypeWelcome:
		var data server.WelcomeData
		if decode(msg.Data, &data, &m) {
			m.playerID = data.PlayerID
			m.phase = phaseLobby
			m.addLog(fmt.Sprintf("Welcome, %s", m.name))
			m.send(m.conn.ListTables)
		}

	case server.TypeTableList:
		var data server.TableListData
		if decode(msg.Data, &data, &m) {
			m.tables = data.Tables
		}

	case server.TypeTableCreated:
		var data server.TableCreatedData
		if decode(msg.Data, &data, &m) {
			m.send(func() error { return m.conn.JoinTable(data.TableID) })
		}

	case server.TypeTableJoined:
		var data server.TableJoinedData
		if decode(msg.Data, &data, &m) {
			if data.PlayerID == m.playerID {
				m.phase = phaseSeated
			}
			m.addLog(fmt.Sprintf("%s sat down", data.Name))
		}

	case server.TypeGameStarted, server.TypeTableState:
		var data server.TableStateData
		if decode(msg.Data, &data, &m) {
			m.state = &data
			m.result = nil
			if msg.Type == server.TypeGameStarted {
				m.addLog("Round started")
			}
		}

	case server.TypeTurn:
		var data server.TurnData
		if decode(msg.Data, &data, &m) {
			if data.PlayerID == m.playerID {
				m.addLog("Your turn")
			} else {
				m.addLog(fmt.Sprintf("%s is up", data.Name))
			}
		}

	case server.TypeRoundResult:
		var data server.RoundResultData
		if decode(msg.Data, &data, &m) {
			m.result = &data
			m.state = nil
		}

	case server.TypeGameStopped:
		m.addLog("Game over")

	case server.TypeError:
		var data server.ErrorData
		if decode(msg.Data, &data, &m) {
			m.errMsg = data.Message
		}
	}
	return m
}

func decode(raw json.RawMessage, v interface{}, m *Model) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		m.errMsg = "bad message from server: " + err.Error()
		return false
	}
	return true
}

func (m *Model) addLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > 8 {
		m.log = m.log[len(m.log)-8:]
	}
}

// View renders the table.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(" blackjackforbots "))
	b.WriteString("\n\n")

	switch m.phase {
	case phaseNamePrompt:
		b.WriteString("What's your name?\n")
		b.WriteString(m.nameInput.View())
		b.WriteString("\n")

	case phaseLobby:
		b.WriteString("Tables:\n")
		if len(m.tables) == 0 {
			b.WriteString(InfoStyle.Render("  none yet — press c to create one"))
			b.WriteString("\n")
		}
		for _, t := range m.tables {
			status := "waiting"
			if t.Running {
				status = "playing"
			}
			b.WriteString(fmt.Sprintf("  %s (%d/%d, %s)\n", t.Name, t.PlayerCount, t.MaxPlayers, status))
		}
		b.WriteString("\n")
		b.WriteString(ActionsStyle.Render("j join first · c create · l refresh · q quit"))
		b.WriteString("\n")

	case phaseSeated:
		m.viewTable(&b)
	}

	for _, line := range m.log {
		b.WriteString(InfoStyle.Render(line))
		b.WriteString("\n")
	}
	if m.errMsg != "" {
		b.WriteString(ErrorStyle.Render("error: " + m.errMsg))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewTable(b *strings.Builder) {
	switch {
	case m.result != nil:
		b.WriteString(SuccessStyle.Render("Round result"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Dealer: %s (%d)\n\n", renderCards(m.result.Dealer.Cards), m.result.Dealer.Value))
		writeOutcomes(b, "Won", m.result.Won)
		writeOutcomes(b, "Push", m.result.Tie)
		writeOutcomes(b, "Lost", m.result.Lost)
		b.WriteString("\n")
		b.WriteString(ActionsStyle.Render("n next round · q quit"))
		b.WriteString("\n")

	case m.state != nil:
		dealer := m.state.Dealer
		hole := strings.Repeat(" ??", dealer.Hidden)
		b.WriteString(fmt.Sprintf("Dealer: %s%s\n\n", renderCards(dealer.Cards), hole))
		for _, p := range m.state.Players {
			marker := "  "
			if p.PlayerID == m.state.CurrentPlayerID {
				marker = ActionsStyle.Render("▶ ")
			}
			line := fmt.Sprintf("%s%s: %s %s", marker, p.Name, renderCards(p.Cards), HandValueStyle.Render(fmt.Sprintf("(%d)", p.Value)))
			if p.Busted {
				line += " " + ErrorStyle.Render("BUST")
			}
			if p.Blackjack {
				line += " " + SuccessStyle.Render("BLACKJACK")
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.state.CurrentPlayerID == m.playerID {
			b.WriteString(ActionsStyle.Render("h hit · s stand · x stop · q quit"))
		} else {
			b.WriteString(InfoStyle.Render("waiting for the table…"))
		}
		b.WriteString("\n")

	default:
		b.WriteString(InfoStyle.Render("Seated. Press n to start a round."))
		b.WriteString("\n")
		b.WriteString(ActionsStyle.Render("n start · q quit"))
		b.WriteString("\n")
	}
}

func writeOutcomes(b *strings.Builder, label string, outcomes []server.Outcome) {
	if len(outcomes) == 0 {
		return
	}
	parts := make([]string, len(outcomes))
	for i, o := range outcomes {
		parts[i] = fmt.Sprintf("%s (%d, x%.1f)", o.Name, o.Value, o.Factor)
	}
	b.WriteString(fmt.Sprintf("%s: %s\n", label, strings.Join(parts, ", ")))
}
