package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vogue/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowAutoDismiss(t *testing.T) {
	c := NewCenter(nil)
	defer c.Close()

	id := c.ShowFor("Товар добавлен в корзину!", models.KindSuccess, 20*time.Millisecond)
	require.Len(t, c.Active(), 1)
	assert.Equal(t, id, c.Active()[0].ID)

	require.Eventually(t, func() bool { return len(c.Active()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestStickyUntilHidden(t *testing.T) {
	c := NewCenter(nil)
	defer c.Close()

	id := c.ShowFor("offline", models.KindWarning, 0)
	time.Sleep(10 * time.Millisecond)
	require.Len(t, c.Active(), 1)

	assert.True(t, c.Hide(id))
	assert.False(t, c.Hide(id))
	assert.Empty(t, c.Active())
}

func TestUnknownKindIsInfo(t *testing.T) {
	c := NewCenter(nil)
	defer c.Close()
	c.ShowFor("hello", "shout", 0)
	assert.Equal(t, models.KindInfo, c.Active()[0].Type)
	assert.Equal(t, "fas fa-info-circle", Icon("shout"))
}

func TestSubscribersSeeShownAndHidden(t *testing.T) {
	c := NewCenter(nil)
	defer c.Close()
	events, cancel := c.Subscribe(4)
	defer cancel()

	id := c.ShowFor("Корзина очищена", models.KindInfo, 0)
	c.Hide(id)

	e := <-events
	assert.Equal(t, EventShown, e.Type)
	assert.Equal(t, "Корзина очищена", e.Notification.Message)
	e = <-events
	assert.Equal(t, EventHidden, e.Type)
	assert.Equal(t, id, e.Notification.ID)
}

func TestServeWSStreamsEvents(t *testing.T) {
	c := NewCenter(nil)
	defer c.Close()
	c.ShowFor("already visible", models.KindInfo, 0)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(c, nil, w, r)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	var e Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, "already visible", e.Notification.Message)

	c.ShowFor("new one", models.KindSuccess, 0)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, EventShown, e.Type)
	assert.Equal(t, "new one", e.Notification.Message)
	assert.Equal(t, "fas fa-check-circle", e.Icon)
}
