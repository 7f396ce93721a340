package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func fakeClient(hub *Hub, userID int64, buffer int) *Client {
	return &Client{hub: hub, send: make(chan []byte, buffer), userID: userID, logger: zerolog.Nop()}
}

func receive(t *testing.T, c *Client) Notification {
	t.Helper()
	select {
	case data := <-c.send:
		var n Notification
		require.NoError(t, json.Unmarshal(data, &n))
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	return Notification{}
}

func TestHub_DeliversOnlyToTargetUser(t *testing.T) {
	hub := startHub(t)
	alice := fakeClient(hub, 1, 4)
	bob := fakeClient(hub, 2, 4)
	hub.register <- alice
	hub.register <- bob

	hub.Notify(&Notification{Type: TypeQueueAvailable, UserID: 1, Message: "Dune is available"})

	n := receive(t, alice)
	assert.Equal(t, TypeQueueAvailable, n.Type)
	assert.Equal(t, "Dune is available", n.Message)
	assert.False(t, n.Timestamp.IsZero())

	select {
	case <-bob.send:
		t.Fatal("bob must not receive alice's notification")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_FansOutToEveryConnectionOfUser(t *testing.T) {
	hub := startHub(t)
	tab1 := fakeClient(hub, 7, 4)
	tab2 := fakeClient(hub, 7, 4)
	hub.register <- tab1
	hub.register <- tab2

	hub.Notify(&Notification{Type: TypeFineUpdated, UserID: 7})

	assert.Equal(t, TypeFineUpdated, receive(t, tab1).Type)
	assert.Equal(t, TypeFineUpdated, receive(t, tab2).Type)
	assert.Equal(t, 2, hub.GetClientsCount(7))
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := startHub(t)
	slow := fakeClient(hub, 3, 0)
	hub.register <- slow

	hub.Notify(&Notification{Type: TypeLoanOverdue, UserID: 3})

	assert.Eventually(t, func() bool { return hub.GetClientsCount(3) == 0 }, time.Second, 10*time.Millisecond)
	_, open := <-slow.send
	assert.False(t, open)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	c := fakeClient(hub, 5, 1)
	hub.register <- c
	hub.unregister <- c

	assert.Eventually(t, func() bool { return hub.GetClientsCount(5) == 0 }, time.Second, 10*time.Millisecond)
	_, open := <-c.send
	assert.False(t, open)
}

func TestHandler_StreamsNotifications(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := startHub(t)
	h := NewHandler(hub, zerolog.Nop())

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) { c.Set("userID", int64(42)) }, h.HandleConnection)
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.GetClientsCount(42) == 1 }, time.Second, 10*time.Millisecond)
	hub.Notify(&Notification{Type: TypeBookingReady, UserID: 42, Message: "ready"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var n Notification
	require.NoError(t, json.Unmarshal(data, &n))
	assert.Equal(t, TypeBookingReady, n.Type)
	assert.Equal(t, int64(42), n.UserID)
}

func TestHandler_RejectsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewHub(zerolog.Nop()), zerolog.Nop())

	router := gin.New()
	router.GET("/ws", h.HandleConnection)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/ws", nil))
	assert.Equal(t, 401, w.Code)
}
