package realtime

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gofiber/contrib/v3/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventually(t *testing.T, fn func() bool) {
	t.Helper()
	require.Eventually(t, fn, time.Second, 5*time.Millisecond)
}

func subscribe(t *testing.T, hub *Hub, sub Subscription, buffer int) *Client {
	t.Helper()
	client := &Client{hub: hub, conn: &fakeSocket{}, sub: sub, send: make(chan []byte, buffer)}
	before := hub.ClientCount()
	hub.register <- client
	eventually(t, func() bool { return hub.ClientCount() == before+1 })
	return client
}

func receive(t *testing.T, client *Client) Event {
	t.Helper()
	select {
	case payload := <-client.send:
		var ev Event
		require.NoError(t, json.Unmarshal(payload, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func TestParseSubscription(t *testing.T) {
	sub := ParseSubscription(" Activity ,visit,activity", "publications,,events")
	assert.Equal(t, []string{"activity", "visit"}, sub.Types)
	assert.Equal(t, []string{"publications", "events"}, sub.Resources)

	assert.Empty(t, ParseSubscription("", "").Types)
}

func TestSubscriptionMatches(t *testing.T) {
	ev := Event{Type: EventActivity, Resource: "publications"}

	tests := []struct {
		name string
		sub  Subscription
		want bool
	}{
		{"everything", Subscription{}, true},
		{"type match", Subscription{Types: []string{EventActivity}}, true},
		{"type mismatch", Subscription{Types: []string{EventVisit}}, false},
		{"resource match", Subscription{Resources: []string{"events", "publications"}}, true},
		{"resource mismatch", Subscription{Types: []string{EventActivity}, Resources: []string{"events"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sub.Matches(ev))
		})
	}
}

func TestHubDeliversOnlyMatchingEvents(t *testing.T) {
	hub := NewHub()
	t.Cleanup(hub.Close)

	all := subscribe(t, hub, Subscription{}, 4)
	visits := subscribe(t, hub, Subscription{Types: []string{EventVisit}}, 4)

	hub.Publish(Event{Type: EventActivity, Action: "create", Resource: "events", ResourceID: "4"})
	hub.Publish(Event{Type: EventVisit, Resource: "publikasi", ResourceID: "9", Country: "ID"})

	first := receive(t, all)
	assert.Equal(t, "events", first.Resource)
	assert.Equal(t, "publikasi", receive(t, all).Resource)

	got := receive(t, visits)
	assert.Equal(t, EventVisit, got.Type)
	assert.Equal(t, "ID", got.Country)
	assert.Empty(t, visits.send, "activity events must not reach visit-only subscribers")
}

func TestHubDisconnectsSlowClient(t *testing.T) {
	hub := NewHub()
	t.Cleanup(hub.Close)

	slow := subscribe(t, hub, Subscription{}, 0)
	conn := slow.conn.(*fakeSocket)

	hub.Publish(Event{Type: EventActivity, Resource: "events"})

	eventually(t, func() bool { return hub.ClientCount() == 0 })
	_, open := <-slow.send
	assert.False(t, open)
	assert.Equal(t, 1, conn.closeCount())
}

func TestReadPumpUnregistersOnError(t *testing.T) {
	unregister := make(chan *Client, 1)
	client := &Client{
		hub:  &Hub{unregister: unregister},
		conn: &fakeSocket{reads: []error{nil, errors.New("reset by peer")}},
		send: make(chan []byte, 1),
	}

	client.readPump()

	select {
	case got := <-unregister:
		assert.Same(t, client, got)
	default:
		t.Fatal("client was not unregistered")
	}
}

type stepTicker struct {
	ch      chan time.Time
	stopped chan struct{}
}

func (t *stepTicker) C() <-chan time.Time { return t.ch }
func (t *stepTicker) Stop()               { close(t.stopped) }

func TestWritePumpSendsPayloadsAndPings(t *testing.T) {
	ticker := &stepTicker{ch: make(chan time.Time, 1), stopped: make(chan struct{})}
	original := newPingTicker
	newPingTicker = func() pingTicker { return ticker }
	t.Cleanup(func() { newPingTicker = original })

	conn := &fakeSocket{}
	client := &Client{hub: &Hub{}, conn: conn, send: make(chan []byte, 1)}

	done := make(chan struct{})
	go func() {
		client.writePump()
		close(done)
	}()

	client.send <- []byte(`{"type":"activity"}`)
	eventually(t, func() bool { return len(conn.written()) == 1 })

	ticker.ch <- time.Now()
	eventually(t, func() bool { return len(conn.written()) == 2 })

	close(client.send)
	<-done
	<-ticker.stopped

	frames := conn.written()
	require.Len(t, frames, 3)
	assert.Equal(t, websocket.TextMessage, frames[0].kind)
	assert.JSONEq(t, `{"type":"activity"}`, string(frames[0].payload))
	assert.Equal(t, websocket.PingMessage, frames[1].kind)
	assert.Equal(t, websocket.CloseMessage, frames[2].kind)
	assert.Equal(t, 1, conn.closeCount())
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub := NewHub()
	client := subscribe(t, hub, Subscription{}, 1)

	hub.Close()

	conn := client.conn.(*fakeSocket)
	eventually(t, func() bool { return conn.closeCount() == 1 })
	assert.Equal(t, 0, hub.ClientCount())
}

func TestServeAfterCloseRejectsConnection(t *testing.T) {
	hub := NewHub()
	hub.Close()

	conn := &fakeSocket{}
	hub.serve(conn, Subscription{})

	assert.Equal(t, 1, conn.closeCount())
}
