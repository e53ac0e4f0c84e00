package persist

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
)

const commandTimeout = 5 * time.Second

type command func(ctx context.Context) error

// Queue decouples the trading engine from the database. Enqueueing never
// blocks: when the buffer is full the command is dropped and logged, which
// loses durability for that write but keeps the tick on schedule.
type Queue struct {
	persister Persister
	commands  chan command
}

func NewQueue(persister Persister, size int) *Queue {
	if size <= 0 {
		size = 1024
	}
	return &Queue{
		persister: persister,
		commands:  make(chan command, size),
	}
}

// Run drains the queue until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-q.commands:
			cctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			if err := cmd(cctx); err != nil {
				log.Printf("[persist] write failed: %v", err)
			}
			cancel()
		}
	}
}

func (q *Queue) enqueue(name string, cmd command) {
	select {
	case q.commands <- cmd:
	default:
		log.Printf("[persist] queue full, dropping %s", name)
	}
}

func (q *Queue) CreatePlayer(rec PlayerRecord) {
	q.enqueue("create player", func(ctx context.Context) error {
		return q.persister.CreatePlayer(ctx, rec)
	})
}

func (q *Queue) UpdatePlayerBalance(playerID int64, cash, highWaterMark decimal.Decimal) {
	q.enqueue("balance update", func(ctx context.Context) error {
		return q.persister.UpdatePlayerBalance(ctx, playerID, cash, highWaterMark)
	})
}

func (q *Queue) SaveOpenedPosition(rec PositionRecord) {
	q.enqueue("position open", func(ctx context.Context) error {
		return q.persister.SaveOpenedPosition(ctx, rec)
	})
}

func (q *Queue) SaveClosedPosition(rec CloseRecord) {
	q.enqueue("position close", func(ctx context.Context) error {
		return q.persister.SaveClosedPosition(ctx, rec)
	})
}
