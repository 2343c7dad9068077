package responses

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sse"
)

var ErrStreamingUnsupported = errors.New("response writer does not support streaming")

// EventStream writes Server-Sent Events frames and flushes after each one.
type EventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	seq     uint64
}

// NewEventStream sends the stream headers. It fails when w cannot flush.
func NewEventStream(w http.ResponseWriter) (*EventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	h := w.Header()
	h.Set("Content-Type", sse.ContentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &EventStream{w: w, flusher: flusher}, nil
}

// Send writes one event whose data is the JSON encoding of data.
func (s *EventStream) Send(event string, data any) error {
	s.seq++
	if err := sse.Encode(s.w, sse.Event{Event: event, Id: strconv.FormatUint(s.seq, 10), Data: data}); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Heartbeat writes a comment line so idle proxies keep the connection.
func (s *EventStream) Heartbeat() error {
	if _, err := s.w.Write([]byte(": ping\n\n")); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
