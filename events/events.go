// Package events defines the tagged progress values streamed by long running
// operations (tree builds, tx batches, cost estimations). A producer emits a
// finite, non restartable sequence of Progress events terminated by exactly one
// Error or Complete event, and a single transport sink (the SSE layer) consumes
// it. Producers never depend on the consumer: if nobody is reading, events are
// dropped, not the work.
package events

import (
	"github.com/rollupops/disputedash/log"
)

// Name tags an event for the transport layer.
type Name string

const (
	// Progress is a non terminal checkpoint of an ongoing operation.
	Progress Name = "progress"
	// Error terminates the stream after a failure. No Complete follows.
	Error Name = "error"
	// Complete terminates the stream successfully, carrying a summary.
	Complete Name = "complete"
)

// Event is a single element of a progress stream.
type Event struct {
	Name Name
	Data interface{}
}

// ProgressData is the payload of a Progress event. Fields are optional and
// producer dependent; zero values are omitted on the wire.
type ProgressData struct {
	Step    string `json:"step"`
	Message string `json:"message,omitempty"`
	Current uint64 `json:"current,omitempty"`
	Index   int    `json:"index,omitempty"`
	Total   int    `json:"total,omitempty"`
	TxHash  string `json:"tx_hash,omitempty"`
}

// ErrorData is the payload of an Error event.
type ErrorData struct {
	Message string `json:"message"`
	Step    string `json:"step,omitempty"`
	Index   int    `json:"index,omitempty"`
}

// NewProgress builds a Progress event.
func NewProgress(data ProgressData) Event {
	return Event{Name: Progress, Data: data}
}

// NewError builds a terminal Error event.
func NewError(message string) Event {
	return Event{Name: Error, Data: ErrorData{Message: message}}
}

// NewComplete builds a terminal Complete event. The summary type is owned by
// the producer.
func NewComplete(summary interface{}) Event {
	return Event{Name: Complete, Data: summary}
}

// Emit delivers e to ch without ever blocking the producer on a slow or gone
// consumer. Progress events are best effort: one is dropped whenever it would
// take the last free buffer slot, so that slot stays available for the single
// terminal Error or Complete event of the stream, which is never dropped.
// ch must be buffered.
func Emit(ch chan<- Event, e Event) {
	if e.Name != Progress {
		// the reserved slot guarantees this never blocks
		ch <- e
		return
	}
	if len(ch) >= cap(ch)-1 {
		log.Debugf("dropping %s event, consumer is not reading", e.Name)
		return
	}
	select {
	case ch <- e:
	default:
		log.Debugf("dropping %s event, consumer is not reading", e.Name)
	}
}
