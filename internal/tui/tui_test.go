package tui

import (
	"encoding/json"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackforbots/internal/server"
)

type fakeConn struct {
	receive chan *server.Message
	calls   []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{receive: make(chan *server.Message, 16)}
}

func (f *fakeConn) Receive() <-chan *server.Message { return f.receive }
func (f *fakeConn) Hello(name string) error         { f.calls = append(f.calls, "hello"); return nil }
func (f *fakeConn) CreateTable(name string) error   { f.calls = append(f.calls, "create"); return nil }
func (f *fakeConn) JoinTable(tableID string) error  { f.calls = append(f.calls, "join:"+tableID); return nil }
func (f *fakeConn) ListTables() error               { f.calls = append(f.calls, "list"); return nil }
func (f *fakeConn) StartGame() error                { f.calls = append(f.calls, "start"); return nil }
func (f *fakeConn) Hit() error                      { f.calls = append(f.calls, "hit"); return nil }
func (f *fakeConn) Stand() error                    { f.calls = append(f.calls, "stand"); return nil }
func (f *fakeConn) StopGame() error                 { f.calls = append(f.calls, "stop"); return nil }
func (f *fakeConn) Disconnect() error               { f.calls = append(f.calls, "disconnect"); return nil }

func message(t *testing.T, messageType server.MessageType, data interface{}) serverMsg {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return serverMsg{msg: &server.Message{Type: messageType, Data: raw}}
}

func TestNamePromptSendsHello(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	m := NewModel(conn)

	for _, r := range "alice" {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	assert.Contains(t, conn.calls, "hello")
	assert.Equal(t, "alice", m.name)
}

func TestWelcomeMovesToLobby(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	m := NewModel(conn)
	m.name = "alice"

	next, _ := m.Update(message(t, server.TypeWelcome, server.WelcomeData{PlayerID: 7}))
	m = next.(Model)

	assert.Equal(t, phaseLobby, m.phase)
	assert.Equal(t, int64(7), m.playerID)
	assert.Contains(t, conn.calls, "list")
}

func TestTableJoinedSeatsOwnPlayer(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	m := NewModel(conn)
	m.phase = phaseLobby
	m.playerID = 7

	next, _ := m.Update(message(t, server.TypeTableJoined, server.TableJoinedData{
		TableID: "abc", PlayerID: 7, Name: "alice",
	}))
	m = next.(Model)
	assert.Equal(t, phaseSeated, m.phase)

	// Someone else joining does not change our phase.
	next, _ = m.Update(message(t, server.TypeTableJoined, server.TableJoinedData{
		TableID: "abc", PlayerID: 9, Name: "bob",
	}))
	m = next.(Model)
	assert.Equal(t, phaseSeated, m.phase)
}

func TestTableStateRenders(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	m := NewModel(conn)
	m.phase = phaseSeated
	m.playerID = 1

	next, _ := m.Update(message(t, server.TypeTableState, server.TableStateData{
		TableID:         "abc",
		Phase:           "Players",
		CurrentPlayerID: 1,
		Dealer:          server.HandView{Name: "Dealer", Cards: []string{"K♠"}, Hidden: 1},
		Players: []server.HandView{
			{PlayerID: 1, Name: "alice", Cards: []string{"A♠", "7♥"}, Value: 18},
		},
	}))
	m = next.(Model)

	view := m.View()
	assert.Contains(t, view, "alice")
	assert.Contains(t, view, "??")
	assert.Contains(t, view, "h hit")
}

func TestGameplayKeys(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	m := NewModel(conn)
	m.phase = phaseSeated

	for _, key := range []string{"h", "s", "n", "x"} {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
		m = next.(Model)
	}

	assert.Equal(t, []string{"hit", "stand", "start", "stop"}, conn.calls)
}

func TestRoundResultRenders(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	m := NewModel(conn)
	m.phase = phaseSeated

	next, _ := m.Update(message(t, server.TypeRoundResult, server.RoundResultData{
		TableID: "abc",
		Dealer:  server.HandView{Name: "Dealer", Cards: []string{"K♠", "9♥"}, Value: 19},
		Won:     []server.Outcome{{PlayerID: 1, Name: "alice", Value: 20, Factor: 2}},
	}))
	m = next.(Model)

	view := m.View()
	assert.Contains(t, view, "Won: alice (20, x2.0)")
}

func TestServerErrorShown(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	m := NewModel(conn)
	m.phase = phaseSeated

	next, _ := m.Update(message(t, server.TypeError, server.ErrorData{
		Code: server.CodeNotYourTurn, Message: "bob is up",
	}))
	m = next.(Model)

	assert.Contains(t, m.View(), "bob is up")
}

func TestDisconnectQuits(t *testing.T) {
	t.Parallel()

	conn := newFakeConn()
	m := NewModel(conn)

	_, cmd := m.Update(disconnectedMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
