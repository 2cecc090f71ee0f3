package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Event names on the run stream.
const (
	EventProgress = "progress"
	EventReport   = "report"
	EventComplete = "complete"
	EventError    = "error"
)

var errStreamingUnsupported = errors.New("streaming not supported")

// eventStream writes Server-Sent Events. Every event carries an increasing id.
// It is safe for concurrent use so a keep-alive can run beside the run.
type eventStream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	seq     int
}

func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &eventStream{w: w, flusher: flusher}, nil
}

func (s *eventStream) send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.seq, event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *eventStream) fail(message string) {
	_ = s.send(EventError, map[string]string{"error": message})
}

func (s *eventStream) complete(runID, status string) {
	_ = s.send(EventComplete, map[string]string{"run_id": runID, "status": status})
}

// keepAlive writes a comment line every interval until the returned stop is called.
// Model calls can go quiet for longer than proxy idle timeouts.
func (s *eventStream) keepAlive(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				s.mu.Lock()
				_, err := fmt.Fprint(s.w, ": keep-alive\n\n")
				if err == nil {
					s.flusher.Flush()
				}
				s.mu.Unlock()
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-finished
	}
}
