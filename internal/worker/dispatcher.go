package worker

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"webpush-notification/internal/model"
	"webpush-notification/internal/queue"
	"webpush-notification/internal/webpush"
)

// Sender hands a built notification to the encryption and delivery
// pipeline.
type Sender interface {
	Send(ctx context.Context, n *webpush.Notification) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, n *webpush.Notification) error

func (f SenderFunc) Send(ctx context.Context, n *webpush.Notification) error { return f(ctx, n) }

type Dispatcher struct {
	WorkerPoolSize int
	Queue          queue.Queue
	Sender         Sender

	logger zerolog.Logger
	wg     sync.WaitGroup
}

func NewDispatcher(poolSize int, q queue.Queue, sender Sender, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		WorkerPoolSize: poolSize,
		Queue:          q,
		Sender:         sender,
		logger:         logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Run starts the workers. They stop once ctx is cancelled; use Wait to
// block until they have.
func (d *Dispatcher) Run(ctx context.Context) {
	for i := 0; i < d.WorkerPoolSize; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
	d.logger.Info().Int("workers", d.WorkerPoolSize).Msg("dispatcher started")
}

func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	logger := d.logger.With().Int("worker", id).Logger()

	for {
		task, err := d.Queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				logger.Debug().Msg("worker stopped")
				return
			}
			logger.Error().Err(err).Msg("dequeue failed")
			continue
		}
		d.process(ctx, logger, task)
	}
}

// process builds the descriptor and passes it on. A task whose keys do not
// decode is dropped; there is nothing a retry could change.
func (d *Dispatcher) process(ctx context.Context, logger zerolog.Logger, task *model.Task) {
	logger = logger.With().Str("task_id", task.ID).Logger()

	n, err := task.Request.Notification()
	if err != nil {
		logger.Error().Err(err).Msg("dropping task: cannot build notification")
		return
	}

	if err := d.Sender.Send(ctx, n); err != nil {
		logger.Error().Err(err).Str("endpoint", n.Endpoint()).Msg("send failed")
		return
	}
	logger.Debug().Str("push_service", string(n.PushService())).Msg("task handed off")
}
