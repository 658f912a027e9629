// Package notify provides Messenger implementations. The real
// conversational transport is an external collaborator; these adapters
// stand in for it.
package notify

import (
	"context"
	"sync"

	"github.com/artpar/voxmeter/ports"
	"github.com/rs/zerolog"
)

// Log writes deliveries to the structured log. Used by the server when
// no transport is attached (API callers receive replies in the HTTP
// response instead).
type Log struct {
	logger zerolog.Logger
}

// NewLog creates a logging messenger.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger}
}

// DeliverText logs a text reply.
func (l *Log) DeliverText(ctx context.Context, userID int64, text string) error {
	l.logger.Info().Int64("user_id", userID).Int("chars", len(text)).Msg("deliver text")
	return nil
}

// DeliverAudio logs an audio reply.
func (l *Log) DeliverAudio(ctx context.Context, userID int64, audio []byte) error {
	l.logger.Info().Int64("user_id", userID).Int("bytes", len(audio)).Msg("deliver audio")
	return nil
}

// Notify logs a service notification.
func (l *Log) Notify(ctx context.Context, userID int64, message string) error {
	l.logger.Info().Int64("user_id", userID).Str("message", message).Msg("notify")
	return nil
}

// Recorder captures deliveries in memory (for testing).
type Recorder struct {
	mu    sync.Mutex
	Texts map[int64][]string
	Audio map[int64][][]byte
	Notes map[int64][]string
}

// NewRecorder creates a recording messenger.
func NewRecorder() *Recorder {
	return &Recorder{
		Texts: make(map[int64][]string),
		Audio: make(map[int64][][]byte),
		Notes: make(map[int64][]string),
	}
}

// DeliverText records a text reply.
func (r *Recorder) DeliverText(ctx context.Context, userID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Texts[userID] = append(r.Texts[userID], text)
	return nil
}

// DeliverAudio records an audio reply.
func (r *Recorder) DeliverAudio(ctx context.Context, userID int64, audio []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Audio[userID] = append(r.Audio[userID], audio)
	return nil
}

// Notify records a service notification.
func (r *Recorder) Notify(ctx context.Context, userID int64, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notes[userID] = append(r.Notes[userID], message)
	return nil
}

// Ensure interface compliance.
var (
	_ ports.Messenger = (*Log)(nil)
	_ ports.Messenger = (*Recorder)(nil)
)
