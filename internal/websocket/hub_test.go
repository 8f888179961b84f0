package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, cancel
}

func fakeClient(hub *Hub, buffer int) *Client {
	return &Client{hub: hub, Send: make(chan []byte, buffer), Email: "admin@theatrical.com"}
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		n, err := hub.ClientCount(ctx)
		return err == nil && n == want
	}, 2*time.Second, 10*time.Millisecond)
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case raw, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestHub_PublishReachesEveryClient(t *testing.T) {
	hub, _ := startHub(t)
	a, b := fakeClient(hub, 4), fakeClient(hub, 4)
	hub.Register <- a
	hub.Register <- b
	waitForClients(t, hub, 2)

	hub.Publish("booking.created", map[string]string{"id": "b-1"})

	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		assert.Equal(t, "booking.created", msg.Action)
		assert.Equal(t, map[string]interface{}{"id": "b-1"}, msg.Payload)
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub, _ := startHub(t)
	c := fakeClient(hub, 1)
	hub.Register <- c
	waitForClients(t, hub, 1)

	hub.Unregister <- c
	waitForClients(t, hub, 0)
	_, ok := <-c.Send
	assert.False(t, ok)

	// Unregistering twice is harmless.
	hub.Unregister <- c
	waitForClients(t, hub, 0)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub, _ := startHub(t)
	slow := fakeClient(hub, 1)
	fast := fakeClient(hub, 8)
	hub.Register <- slow
	hub.Register <- fast
	waitForClients(t, hub, 2)

	hub.Publish("booking.status", "first")
	hub.Publish("booking.status", "second")

	waitForClients(t, hub, 1)
	assert.Equal(t, "first", receive(t, fast).Payload)
	assert.Equal(t, "second", receive(t, fast).Payload)

	assert.Equal(t, "first", receive(t, slow).Payload)
	_, ok := <-slow.Send
	assert.False(t, ok)
}

func TestHub_StopClosesClients(t *testing.T) {
	hub, cancel := startHub(t)
	c := fakeClient(hub, 1)
	hub.Register <- c
	waitForClients(t, hub, 1)

	cancel()
	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("client not closed on stop")
	}
}

func TestHub_PublishWithoutRunDoesNotBlock(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(hub.Broadcast)+10; i++ {
			hub.Publish("booking.created", i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked")
	}
}

func TestNewErrorMessage(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal(NewErrorMessage("nope"), &msg))
	assert.Equal(t, "error", msg.Action)
	assert.Equal(t, map[string]interface{}{"message": "nope"}, msg.Payload)
}

func TestHub_SendToSingleClient(t *testing.T) {
	hub, _ := startHub(t)
	a, b := fakeClient(hub, 4), fakeClient(hub, 4)
	hub.Register <- a
	hub.Register <- b
	waitForClients(t, hub, 2)

	hub.SendTo(a, NewPongMessage())
	assert.Equal(t, "pong", receive(t, a).Action)

	// b got nothing.
	hub.Publish("booking.created", "x")
	assert.Equal(t, "booking.created", receive(t, b).Action)

	// Unregistered clients are ignored.
	stranger := fakeClient(hub, 1)
	hub.SendTo(stranger, NewPongMessage())
	waitForClients(t, hub, 2)
	assert.Len(t, stranger.Send, 0)
}

func TestHub_SendToAfterStopReturns(t *testing.T) {
	hub, cancel := startHub(t)
	cancel()
	<-hub.done

	done := make(chan struct{})
	go func() {
		hub.SendTo(fakeClient(hub, 1), NewPongMessage())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SendTo blocked after stop")
	}
}
