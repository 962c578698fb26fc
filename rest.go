package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

const (
	DefaultAPIPrefix      = "/build/api"
	DefaultRequestTimeout = 5 * time.Second
)

// Requester issues API calls whose outcome is reported on the bus.
type Requester interface {
	Call(method, path string, body any)
}

// Envelope is the body shape of every API response.
type Envelope struct {
	Message string
	Payload json.RawMessage `json:",omitempty"`
}

// RestConfig configures a RestGateway.
type RestConfig struct {
	// Origin is the scheme and host the API is served from.
	Origin *url.URL
	// APIPrefix is prepended to every logical path. Defaults to DefaultAPIPrefix.
	APIPrefix string
	// Timeout bounds each call, body included. Defaults to DefaultRequestTimeout.
	Timeout time.Duration
	Client  *http.Client
	Logger  *slog.Logger
}

// RestGateway turns HTTP calls into bus events.
//
// Whatever happens, a call yields exactly one event: a RestEvent when the server
// answered, with any status, or an ErrorEvent when it did not.
type RestGateway struct {
	bus    *EventBus
	post   Poster
	base   string
	prefix string
	tmo    time.Duration
	client *http.Client
	log    *slog.Logger

	inflight atomic.Int64
}

// NewRestGateway returns a gateway that fires its events on bus through post.
func NewRestGateway(bus *EventBus, post Poster, cfg RestConfig) *RestGateway {
	g := &RestGateway{
		bus:    bus,
		post:   post,
		prefix: cfg.APIPrefix,
		tmo:    cfg.Timeout,
		client: cfg.Client,
		log:    cfg.Logger,
	}
	if cfg.Origin != nil {
		g.base = cfg.Origin.Scheme + "://" + cfg.Origin.Host
	}
	if g.prefix == "" {
		g.prefix = DefaultAPIPrefix
	}
	if g.tmo <= 0 {
		g.tmo = DefaultRequestTimeout
	}
	if g.client == nil {
		g.client = http.DefaultClient
	}
	if g.log == nil {
		g.log = slog.Default()
	}
	return g
}

// Call issues the request in the background and fires the outcome on the bus.
func (g *RestGateway) Call(method, path string, body any) {
	g.inflight.Add(1)
	go func() {
		evt := g.Do(context.Background(), method, path, body)
		g.post.Do(func() {
			g.bus.Fire(evt)
			g.inflight.Add(-1)
		})
	}()
}

// InFlight returns the number of calls whose event was not fired yet.
func (g *RestGateway) InFlight() int { return int(g.inflight.Load()) }

// Do issues the request and returns the event describing its outcome.
func (g *RestGateway) Do(ctx context.Context, method, path string, body any) Event {
	ctx, cancel := context.WithTimeout(ctx, g.tmo)
	defer cancel()

	target := g.base + g.prefix + path

	var rd io.Reader
	if body != nil && (method == http.MethodPost || method == http.MethodPut) {
		b, err := json.Marshal(body)
		if err != nil {
			g.log.Error("encode request body", "url", target, "err", err)
			return ErrorEvent{Message: "Request failed: " + err.Error()}
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		g.log.Error("build request", "url", target, "err", err)
		return ErrorEvent{Message: "Request failed: " + err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return g.failure(target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return g.failure(target, err)
	}

	evt := RestEvent{URL: path, Status: resp.StatusCode, Response: map[string]any{}, Body: raw}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var parsed map[string]any
		if err := json.Unmarshal(raw, &parsed); err != nil {
			g.log.Warn("unparseable json response", "url", target, "status", resp.StatusCode, "err", err)
		} else if parsed != nil {
			evt.Response = parsed
		}
	}
	g.log.Debug("rest", "method", method, "url", target, "status", resp.StatusCode)
	return evt
}

func (g *RestGateway) failure(target string, err error) Event {
	if isTimeout(err) {
		g.log.Error("request timed out", "url", target)
		return ErrorEvent{Message: "Request timed out"}
	}
	g.log.Error("request failed", "url", target, "err", err)
	return ErrorEvent{Message: "Request failed: " + err.Error()}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
