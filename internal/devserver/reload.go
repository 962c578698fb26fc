package devserver

import (
	"log/slog"
	"net/http"
	"sync"

	ds "github.com/starfederation/datastar-go/datastar"
)

// Reloader keeps the pages open in browsers in sync with the files on disk.
// Every page holds an SSE connection; Broadcast tells them all to reload.
type Reloader struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
	log  *slog.Logger
}

func NewReloader(log *slog.Logger) *Reloader {
	if log == nil {
		log = slog.Default()
	}
	return &Reloader{subs: make(map[chan struct{}]struct{}), log: log}
}

// Broadcast asks every connected page to reload.
func (r *Reloader) Broadcast() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.Info("reloading pages", "clients", len(r.subs))
	for ch := range r.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Clients returns the number of connected pages.
func (r *Reloader) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *Reloader) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	sse := ds.NewSSE(w, req)

	ch := make(chan struct{}, 1)
	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.subs, ch)
		r.mu.Unlock()
	}()

	ctx := req.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			if err := sse.ExecuteScript("window.location.reload()"); err != nil {
				r.log.Debug("reload client gone", "err", err)
				return
			}
		}
	}
}
