package broadcast

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/pollpulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHub sets up a Hub behind a test HTTP server that upgrades
// connections. Returns the hub and a dial function.
func testHub(t *testing.T, maxClients int) (*Hub, func() *ws.Conn, chan *ws.Conn) {
	t.Helper()

	hub := NewHub(clockwork.NewRealClock(), maxClients, nil)
	t.Cleanup(func() { hub.Stop() })

	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	serverConns := make(chan *ws.Conn, 8)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		if err := hub.Register(conn); err != nil {
			return
		}
		serverConns <- conn

		// Read loop to detect disconnects
		go func() {
			defer hub.Unregister(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}()
	}))
	t.Cleanup(server.Close)

	dial := func() *ws.Conn {
		t.Helper()
		url := "ws" + strings.TrimPrefix(server.URL, "http")
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	return hub, dial, serverConns
}

func waitForClientCount(hub *Hub, expected int) bool {
	for range 100 {
		if hub.ClientCount() == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func readEnvelope(t *testing.T, conn *ws.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal(msg, &result))
	return result
}

func TestHub_PublishPollsUpdatedReachesAllObservers(t *testing.T) {
	hub, dial, _ := testHub(t, 50)

	first := dial()
	second := dial()
	require.True(t, waitForClientCount(hub, 2))

	hub.PublishPollsUpdated()

	for _, conn := range []*ws.Conn{first, second} {
		result := readEnvelope(t, conn)
		assert.Equal(t, EventPollsUpdated, result["event"])
		assert.NotContains(t, result, "pollId")
	}
}

func TestHub_PublishVotesUpdatedCarriesResults(t *testing.T) {
	hub, dial, _ := testHub(t, 50)

	conn := dial()
	require.True(t, waitForClientCount(hub, 1))

	pollID := uuid.New()
	optionID := uuid.New()
	hub.PublishVotesUpdated(pollID, domain.Results{
		optionID: {Text: "Green", Votes: 2},
	})

	result := readEnvelope(t, conn)
	assert.Equal(t, EventVotesUpdated, result["event"])
	assert.Equal(t, pollID.String(), result["pollId"])

	results, ok := result["results"].(map[string]any)
	require.True(t, ok)
	entry, ok := results[optionID.String()].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Green", entry["text"])
	assert.Equal(t, float64(2), entry["votes"])
}

func TestHub_SendPollSnapshotTargetsOneObserver(t *testing.T) {
	hub, dial, serverConns := testHub(t, 50)

	receiver := dial()
	target := <-serverConns
	bystander := dial()
	<-serverConns
	require.True(t, waitForClientCount(hub, 2))

	hub.SendPollSnapshot(target, []map[string]string{{"title": "Color?"}})

	result := readEnvelope(t, receiver)
	assert.Equal(t, EventPollsData, result["event"])
	polls, ok := result["polls"].([]any)
	require.True(t, ok)
	require.Len(t, polls, 1)

	// The bystander got nothing; the next thing it sees is a broadcast.
	hub.PublishPollsUpdated()
	result = readEnvelope(t, bystander)
	assert.Equal(t, EventPollsUpdated, result["event"])
}

func TestHub_UnregisterStopsDelivery(t *testing.T) {
	hub, dial, _ := testHub(t, 50)

	conn := dial()
	require.True(t, waitForClientCount(hub, 1))

	require.NoError(t, conn.Close())
	require.True(t, waitForClientCount(hub, 0))

	// Publishing with no observers must not panic or block.
	hub.PublishPollsUpdated()
}

func TestHub_RejectsConnectionsOverCap(t *testing.T) {
	hub, dial, _ := testHub(t, 1)

	first := dial()
	require.True(t, waitForClientCount(hub, 1))

	second := dial()
	// The server closes the second connection on rejection.
	second.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := second.ReadMessage()
	assert.Error(t, err)

	assert.Equal(t, 1, hub.ClientCount())
	_ = first
}

func TestHub_StopClosesClients(t *testing.T) {
	hub, dial, _ := testHub(t, 50)

	conn := dial()
	require.True(t, waitForClientCount(hub, 1))

	hub.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	assert.Error(t, err, "server closed the connection")
}

func TestHub_CommandsAfterStopDoNotBlock(t *testing.T) {
	hub, dial, _ := testHub(t, 50)
	hub.Stop()

	// Far more sends than the command buffer holds; none may block.
	for range 600 {
		hub.PublishPollsUpdated()
		hub.PublishVotesUpdated(uuid.New(), nil)
	}
	hub.Unregister(nil)
	assert.Equal(t, 0, hub.ClientCount())

	// Registration fails fast and the connection is closed.
	conn := dial()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
