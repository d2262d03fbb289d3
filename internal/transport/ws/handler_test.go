package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pongarena/internal/matchmaking"
	"pongarena/internal/model"
	"pongarena/internal/protocol"
	"pongarena/internal/session"
)

type tokenTable map[string]model.Identity

func (t tokenTable) ValidatePlayerToken(token string) (*model.Identity, error) {
	id, ok := t[token]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &id, nil
}

type harness struct {
	mm     *matchmaking.Matchmaker
	hub    *Hub
	server *httptest.Server
	tokens tokenTable
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	mm := matchmaking.New(ctx, session.Config{ReconnectGrace: 5 * time.Second}, nil, nil)
	hub := NewHub(nil)
	tokens := tokenTable{
		"tok-a": {PlayerID: "p_a", Name: "alice"},
		"tok-b": {PlayerID: "p_b", Name: "bob"},
		"tok-c": {PlayerID: "p_c", Name: "carol"},
	}
	h := NewHandler(hub, mm, tokens, nil)

	r := mux.NewRouter()
	r.HandleFunc("/v1/ws/matches/{id}", h.MatchWS)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		mm.Wait()
	})
	return &harness{mm: mm, hub: hub, server: srv, tokens: tokens}
}

func (hs *harness) pair(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	ref, err := hs.mm.RequestMatch(ctx, "p_a", "alice")
	require.NoError(t, err)
	ref2, err := hs.mm.RequestMatch(ctx, "p_b", "bob")
	require.NoError(t, err)
	require.Equal(t, ref.SessionID, ref2.SessionID)
	return ref.SessionID
}

func (hs *harness) dial(t *testing.T, sessionID, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(hs.server.URL, "http") + "/v1/ws/matches/" + sessionID + "?token=" + token
	c, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Cleanup(func() { c.Close() })
	}
	return c, resp, err
}

func (hs *harness) join(t *testing.T, sessionID, token string) *websocket.Conn {
	t.Helper()
	c, _, err := hs.dial(t, sessionID, token)
	require.NoError(t, err)
	send(t, c, protocol.Join{SessionID: sessionID})
	return c
}

func send(t *testing.T, c *websocket.Conn, m protocol.Message) {
	t.Helper()
	require.NoError(t, c.WriteMessage(websocket.TextMessage, protocol.MustEncode(m)))
}

// await reads frames until one of type want arrives.
func await(t *testing.T, c *websocket.Conn, want string) []byte {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := c.ReadMessage()
		require.NoError(t, err, "waiting for %s", want)
		typ, err := protocol.DecodeType(data)
		require.NoError(t, err)
		if typ == want {
			return data
		}
	}
}

func TestMatchWS_RejectsMissingToken(t *testing.T) {
	hs := newHarness(t)
	resp, err := http.Get(hs.server.URL + "/v1/ws/matches/anything")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMatchWS_UnknownSession(t *testing.T) {
	hs := newHarness(t)
	_, resp, err := hs.dial(t, "missing", "tok-a")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMatchWS_ReadyStartsMatch(t *testing.T) {
	hs := newHarness(t)
	id := hs.pair(t)

	a := hs.join(t, id, "tok-a")
	b := hs.join(t, id, "tok-b")

	role, err := protocol.Decode[protocol.AssignRole](await(t, a, protocol.TypeAssignRole))
	require.NoError(t, err)
	assert.Equal(t, model.RolePlayer1, role.Role)
	role, err = protocol.Decode[protocol.AssignRole](await(t, b, protocol.TypeAssignRole))
	require.NoError(t, err)
	assert.Equal(t, model.RolePlayer2, role.Role)
	assert.True(t, role.CanStartGame)

	send(t, a, protocol.PlayerReady{})
	send(t, b, protocol.PlayerReady{})

	for _, c := range []*websocket.Conn{a, b} {
		start, err := protocol.Decode[protocol.GameStart](await(t, c, protocol.TypeGameStart))
		require.NoError(t, err)
		assert.Equal(t, "alice", start.Player1Name)
		assert.Equal(t, "bob", start.Player2Name)
		await(t, c, protocol.TypeGameUpdate)
	}
	assert.Equal(t, 2, hs.hub.Count())
}

func TestMatchWS_MalformedMessageKeepsConnection(t *testing.T) {
	hs := newHarness(t)
	id := hs.pair(t)
	a := hs.join(t, id, "tok-a")
	await(t, a, protocol.TypeAssignRole)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("not json")))
	e, err := protocol.Decode[protocol.Error](await(t, a, protocol.TypeError))
	require.NoError(t, err)
	assert.Equal(t, "malformed message", e.Message)

	send(t, a, protocol.PaddleMove{Direction: "sideways", Action: "start"})
	await(t, a, protocol.TypeError)

	send(t, a, protocol.Ping{})
	await(t, a, protocol.TypePong)
}

func TestMatchWS_CommandsBeforeJoinAreRejected(t *testing.T) {
	hs := newHarness(t)
	id := hs.pair(t)
	c, _, err := hs.dial(t, id, "tok-a")
	require.NoError(t, err)

	send(t, c, protocol.PlayerReady{})
	e, err := protocol.Decode[protocol.Error](await(t, c, protocol.TypeError))
	require.NoError(t, err)
	assert.Equal(t, "join the session first", e.Message)
}

func TestMatchWS_FullSessionClosesWith4000(t *testing.T) {
	hs := newHarness(t)
	id := hs.pair(t)

	c := hs.join(t, id, "tok-c")
	c.SetReadDeadline(time.Now().Add(3 * time.Second))
	var closeErr *websocket.CloseError
	for {
		_, _, err := c.ReadMessage()
		if err != nil {
			require.ErrorAs(t, err, &closeErr)
			break
		}
	}
	assert.Equal(t, protocol.CloseSessionFull, closeErr.Code)
}

func TestMatchWS_CleanCloseForfeitsActiveMatch(t *testing.T) {
	hs := newHarness(t)
	id := hs.pair(t)
	a := hs.join(t, id, "tok-a")
	b := hs.join(t, id, "tok-b")
	send(t, a, protocol.PlayerReady{})
	send(t, b, protocol.PlayerReady{})
	await(t, a, protocol.TypeGameStart)
	await(t, b, protocol.TypeGameStart)

	require.NoError(t, a.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))

	ab, err := protocol.Decode[protocol.GameAbandoned](await(t, b, protocol.TypeGameAbandoned))
	require.NoError(t, err)
	assert.Equal(t, model.RolePlayer1, ab.AbandonedBy)
	assert.Equal(t, model.RolePlayer2, ab.Winner)
}

func TestMatchWS_LeaveWaitingRoomCancels(t *testing.T) {
	hs := newHarness(t)
	ref, err := hs.mm.RequestMatch(context.Background(), "p_a", "alice")
	require.NoError(t, err)

	a := hs.join(t, ref.SessionID, "tok-a")
	await(t, a, protocol.TypeWaitingForOpponent)
	send(t, a, protocol.LeaveWaitingRoom{})

	assert.Eventually(t, func() bool {
		_, err := hs.mm.Get(ref.SessionID)
		return errors.Is(err, model.ErrSessionNotFound)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, hs.mm.Waiting())
}

func TestHub_SupersedesOlderConnection(t *testing.T) {
	hub := NewHub(nil)
	id := &model.Identity{PlayerID: "p_a", Name: "alice"}
	first := newConnection("s1", id)
	second := newConnection("s1", id)

	hub.Register(first)
	hub.Register(second)

	assert.Eventually(t, first.isClosed, time.Second, 5*time.Millisecond)
	assert.Equal(t, protocol.CloseSuperseded, first.closeCode)
	assert.False(t, second.isClosed())
	assert.Equal(t, 1, hub.Count())

	// a stale unregister must not drop the live connection
	hub.Unregister(first)
	assert.Equal(t, 1, hub.Count())
	hub.Unregister(second)
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestConnection_SendAfterClose(t *testing.T) {
	c := newConnection("s1", &model.Identity{PlayerID: "p_a"})
	require.NoError(t, c.Send([]byte("x")))
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send([]byte("y")), errConnClosed)
}
