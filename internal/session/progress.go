package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// progressWriteTimeout bounds a single store call.
const progressWriteTimeout = 5 * time.Second

// ProgressStore persists checkpoints keyed by player and definition.
type ProgressStore interface {
	Save(ctx context.Context, playerID int, definitionKey string, data []byte) error
	Delete(ctx context.Context, playerID int, definitionKey string) error
}

type progressOp struct {
	data   []byte
	delete bool
}

// ProgressWriter writes checkpoints for one session off the session loop.
// Only the latest pending operation is kept: a save queued behind another
// save replaces it, and a delete replaces any queued save. Failures are
// logged and never reach gameplay.
type ProgressWriter struct {
	store         ProgressStore
	playerID      int
	definitionKey string
	log           zerolog.Logger

	mu      sync.Mutex
	pending *progressOp
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

// NewProgressWriter starts the writer goroutine. Close must be called to
// flush and stop it.
func NewProgressWriter(store ProgressStore, playerID int, definitionKey string, log zerolog.Logger) *ProgressWriter {
	w := &ProgressWriter{
		store:         store,
		playerID:      playerID,
		definitionKey: definitionKey,
		log: log.With().
			Str("component", "progress_writer").
			Int("player_id", playerID).
			Str("definition", definitionKey).
			Logger(),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

// Save queues a checkpoint write.
func (w *ProgressWriter) Save(data []byte) {
	w.enqueue(&progressOp{data: data})
}

// Delete queues removal of the checkpoint.
func (w *ProgressWriter) Delete() {
	w.enqueue(&progressOp{delete: true})
}

func (w *ProgressWriter) enqueue(op *progressOp) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.pending = op
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Close flushes the pending operation and waits for the writer to stop.
func (w *ProgressWriter) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	<-w.done
}

func (w *ProgressWriter) run() {
	defer close(w.done)
	for range w.wake {
		w.mu.Lock()
		op, closed := w.pending, w.closed
		w.pending = nil
		w.mu.Unlock()

		if op != nil {
			w.apply(op)
		}
		if closed {
			return
		}
	}
}

func (w *ProgressWriter) apply(op *progressOp) {
	ctx, cancel := context.WithTimeout(context.Background(), progressWriteTimeout)
	defer cancel()

	if op.delete {
		if err := w.store.Delete(ctx, w.playerID, w.definitionKey); err != nil {
			w.log.Warn().Err(err).Msg("Delete progress failed")
		}
		return
	}
	if err := w.store.Save(ctx, w.playerID, w.definitionKey, op.data); err != nil {
		w.log.Warn().Err(err).Msg("Save progress failed")
	}
}
