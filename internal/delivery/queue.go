package delivery

import (
	"context"
	"time"

	"example.com/dayof/internal/logging"
)

// Queue runs intent batches in the background, for broadcasts that nobody
// waits on (announcements, notifications to third parties).
type Queue struct {
	queue chan []Intent
	exec  *Executor
	log   logging.Logger
	// DrainTimeout bounds the flush of pending batches on shutdown.
	DrainTimeout time.Duration
}

func NewQueue(exec *Executor, log logging.Logger, size int) *Queue {
	return &Queue{
		queue:        make(chan []Intent, size),
		exec:         exec,
		log:          log,
		DrainTimeout: 5 * time.Second,
	}
}

// Run processes batches until ctx is done, then flushes what is buffered.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			q.drain(ctx)
			return nil
		case batch := <-q.queue:
			q.exec.Run(ctx, batch...)
		}
	}
}

func (q *Queue) drain(ctx context.Context) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.DrainTimeout)
	defer cancel()
	for {
		select {
		case batch := <-q.queue:
			q.exec.Run(dctx, batch...)
		default:
			return
		}
	}
}

// Enqueue never blocks; a full queue drops the batch and reports false.
func (q *Queue) Enqueue(intents ...Intent) bool {
	if len(intents) == 0 {
		return true
	}
	select {
	case q.queue <- intents:
		return true
	default:
		q.log.WithField("intents", len(intents)).Warn("delivery queue full, dropping batch")
		return false
	}
}
