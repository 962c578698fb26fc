package ui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamURL(t *testing.T) {
	tests := []struct {
		origin string
		path   string
		want   string
	}{
		{"http://localhost:8080/app/dash", "", "ws://localhost:8080/ws"},
		{"https://floe.example.com/app", "/ws", "wss://floe.example.com/ws"},
		{"https://floe.example.com:8443/", "/live", "wss://floe.example.com:8443/live"},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			u, err := url.Parse(tt.origin)
			require.NoError(t, err)
			assert.Equal(t, tt.want, StreamURL(u, tt.path))
		})
	}
}

// wsServer hands every accepted connection to serve. Handlers must return
// once the client goes away.
func wsServer(t *testing.T, serve func(ctx context.Context, c *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		serve(r.Context(), c)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func collect(bus *EventBus) chan Event {
	ch := make(chan Event, 16)
	bus.Subscribe("test", SubscriberFunc(func(e Event) { ch <- e }))
	return ch
}

func next(t *testing.T, ch chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(3 * time.Second):
		t.Fatal("no event")
		return nil
	}
}

func TestStreamFiresMessagesAndDropsMalformed(t *testing.T) {
	handshake := make(chan string, 1)
	u := wsServer(t, func(ctx context.Context, c *websocket.Conn) {
		_, b, err := c.Read(ctx)
		if err == nil {
			handshake <- string(b)
		}
		c.Write(ctx, websocket.MessageText, []byte(`{"Tag":"sys.node.start","SourceNode":{"Class":"task","ID":"build"}}`))
		c.Write(ctx, websocket.MessageText, []byte(`not json`))
		c.Write(ctx, websocket.MessageText, []byte(`{"Tag":"sys.state","Opts":{"action":"add-pend"}}`))
		c.Read(ctx)
	})

	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	bus := NewEventBus(nil)
	events := collect(bus)
	g := NewStreamGateway(bus, loop, StreamConfig{URL: u, Handshake: []byte(`{"hello":1}`)})
	g.Open()
	defer g.Close()

	select {
	case h := <-handshake:
		assert.Equal(t, `{"hello":1}`, h)
	case <-time.After(3 * time.Second):
		t.Fatal("no handshake")
	}

	first := next(t, events).(StreamEvent)
	assert.Equal(t, "sys.node.start", first.Msg.Tag)
	require.NotNil(t, first.Msg.SourceNode)
	assert.Equal(t, "build", first.Msg.SourceNode.ID)

	second := next(t, events).(StreamEvent)
	assert.Equal(t, "sys.state", second.Msg.Tag)
	assert.Equal(t, "add-pend", second.Msg.Action())
}

func TestStreamDecodesServerFrames(t *testing.T) {
	u := wsServer(t, func(ctx context.Context, c *websocket.Conn) {
		c.Write(ctx, websocket.MessageText, []byte(`{"RunRef":{"FlowRef":{"ID":"build-project","Ver":1},"Run":{"HostID":"h1","ID":3}},`+
			`"SourceNode":{"Class":"task","ID":"build"},"Tag":"sys.node.start","ID":4,"Opts":null}`))
		c.Read(ctx)
	})

	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	bus := NewEventBus(nil)
	events := collect(bus)
	g := NewStreamGateway(bus, loop, StreamConfig{URL: u})
	g.Open()
	defer g.Close()

	e := next(t, events).(StreamEvent)
	assert.Equal(t, "sys.node.start", e.Msg.Tag)
	assert.Equal(t, int64(4), e.Msg.ID)
	assert.Nil(t, e.Msg.Opts)
	require.NotNil(t, e.Msg.RunRef)
	assert.Equal(t, "h1-3", e.Msg.RunRef.Run.String())
	assert.Equal(t, "build-project", e.Msg.RunRef.FlowRef.ID)
	require.NotNil(t, e.Msg.SourceNode)
	assert.Equal(t, "build", e.Msg.SourceNode.ID)
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	u := wsServer(t, func(ctx context.Context, c *websocket.Conn) {
		c.Read(ctx)
	})
	g := NewStreamGateway(NewEventBus(nil), Inline{}, StreamConfig{URL: u, Reconnect: true})
	g.Open()
	assert.NoError(t, g.Close())
	assert.NoError(t, g.Close())

	select {
	case <-g.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("gateway did not stop")
	}
}

func TestStreamCloseBeforeOpen(t *testing.T) {
	g := NewStreamGateway(NewEventBus(nil), Inline{}, StreamConfig{URL: "ws://127.0.0.1:1/ws"})
	assert.NoError(t, g.Close())
	g.Open()
	select {
	case <-g.Done():
	default:
		t.Fatal("a closed gateway must report done")
	}
}

func TestStreamDropAnnouncedAndReconnects(t *testing.T) {
	var conns atomic.Int32
	u := wsServer(t, func(ctx context.Context, c *websocket.Conn) {
		if conns.Add(1) == 1 {
			c.Close(websocket.StatusGoingAway, "restart")
			return
		}
		c.Write(ctx, websocket.MessageText, []byte(`{"Tag":"sys.end.all"}`))
		c.Read(ctx)
	})

	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	bus := NewEventBus(nil)
	events := collect(bus)
	g := NewStreamGateway(bus, loop, StreamConfig{URL: u, Reconnect: true, MinBackoff: 10 * time.Millisecond})
	g.Open()
	defer g.Close()

	assert.Equal(t, ErrorEvent{Message: "Live updates disconnected"}, next(t, events))
	se := next(t, events).(StreamEvent)
	assert.Equal(t, "sys.end.all", se.Msg.Tag)
}
