package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"yoga-studio/internal/domain/users"
	"yoga-studio/internal/logging"
	"yoga-studio/internal/repository/memstore"
	msgsvc "yoga-studio/internal/service/messages"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*Hub, *httptest.Server, []uint) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.New()
	var ids []uint
	for _, email := range []string{"a@studio.in", "b@studio.in"} {
		u := &users.User{Name: email, Email: email, IsVerified: true}
		require.NoError(t, store.Users.Create(context.Background(), u))
		ids = append(ids, u.ID)
	}

	hub := NewHub(msgsvc.New(store), logging.Discard(), "*")
	r := gin.New()
	// The user id comes from the query here; the real route reads it from the session token.
	r.GET("/ws", func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Query("uid"))
		hub.Serve(c, uint(id))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, srv, ids
}

func dial(t *testing.T, srv *httptest.Server, uid uint) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?uid=" + strconv.Itoa(int(uid))
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var out Outbound
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

func waitOnline(t *testing.T, hub *Hub, uid uint) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Online(uid) > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRelayBetweenUsers(t *testing.T) {
	hub, srv, ids := newServer(t)
	alice := dial(t, srv, ids[0])
	bob := dial(t, srv, ids[1])
	waitOnline(t, hub, ids[0])
	waitOnline(t, hub, ids[1])

	require.NoError(t, alice.WriteJSON(Inbound{RecipientID: ids[1], Body: "Class moved to 7am"}))

	got := read(t, bob)
	assert.Equal(t, FrameMessage, got.Type)
	require.NotNil(t, got.Message)
	assert.Equal(t, "Class moved to 7am", got.Message.Body)
	assert.Equal(t, ids[0], got.Message.SenderID)

	echo := read(t, alice)
	assert.Equal(t, got.Message.ID, echo.Message.ID)
}

func TestErrorFrame(t *testing.T) {
	hub, srv, ids := newServer(t)
	alice := dial(t, srv, ids[0])
	waitOnline(t, hub, ids[0])

	require.NoError(t, alice.WriteJSON(Inbound{RecipientID: ids[0], Body: "me"}))
	got := read(t, alice)
	assert.Equal(t, FrameError, got.Type)
	assert.Equal(t, "You cannot message yourself", got.Error)

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("{")))
	got = read(t, alice)
	assert.Equal(t, "Invalid frame", got.Error)
}

func TestUnregisterOnClose(t *testing.T) {
	hub, srv, ids := newServer(t)
	conn := dial(t, srv, ids[0])
	waitOnline(t, hub, ids[0])

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Online(ids[0]) == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, hub.Push(ids[0], []byte(`{}`)))
}
