package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"market-insight-be/internal/entity"
	"market-insight-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run()
	t.Cleanup(func() { _ = hub.Close() })
	return hub
}

func attach(t *testing.T, hub *Hub, owner string, buffer int) *Client {
	client := &Client{Hub: hub, Owner: owner, Send: make(chan []byte, buffer)}
	hub.register <- client
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for _, c := range hub.clients[owner] {
			if c == client {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	return client
}

func TestHubSendsOnlyToOwner(t *testing.T) {
	hub := startHub(t)
	phone := attach(t, hub, "u1", 4)
	laptop := attach(t, hub, "u1", 4)
	other := attach(t, hub, "u2", 4)

	hub.Send("u1", entity.Notice{Id: "n1", Owner: "u1", Kind: entity.NoticePersistFailed, ClientId: "c1"})

	for _, c := range []*Client{phone, laptop} {
		select {
		case raw := <-c.Send:
			var msg struct {
				Type string        `json:"type"`
				Data entity.Notice `json:"data"`
			}
			require.NoError(t, json.Unmarshal(raw, &msg))
			assert.Equal(t, "notice", msg.Type)
			assert.Equal(t, "n1", msg.Data.Id)
			assert.Equal(t, entity.NoticePersistFailed, msg.Data.Kind)
		case <-time.After(time.Second):
			t.Fatal("notice not delivered")
		}
	}
	assert.Empty(t, other.Send)
	assert.Equal(t, 2, hub.Connected("u1"))
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := startHub(t)
	slow := attach(t, hub, "u1", 1)

	hub.Send("u1", entity.Notice{Id: "n1"})
	hub.Send("u1", entity.Notice{Id: "n2"})

	require.Eventually(t, func() bool { return hub.Connected("u1") == 0 }, time.Second, 5*time.Millisecond)
	<-slow.Send
	_, open := <-slow.Send
	assert.False(t, open)
}

func TestHubCloseReleasesClients(t *testing.T) {
	hub := NewHub(nil, logger.NewNopLogger())
	stopped := make(chan struct{})
	go func() {
		hub.Run()
		close(stopped)
	}()
	client := attach(t, hub, "u1", 1)

	require.NoError(t, hub.Close())
	require.NoError(t, hub.Close())

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	_, open := <-client.Send
	assert.False(t, open)
	assert.Equal(t, 0, hub.Connected("u1"))
}
