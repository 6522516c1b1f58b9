package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Toast is a transient user-visible notification.
type Toast struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier is how components surface outcomes of user-initiated actions.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

const defaultLimit = 20

// Queue buffers toasts for one browser until the UI drains them. When full,
// the oldest toast is dropped.
type Queue struct {
	mu     sync.Mutex
	items  []Toast
	limit  int
	logger *zap.Logger
	now    func() time.Time
}

func NewQueue(logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{limit: defaultLimit, logger: logger, now: time.Now}
}

func (q *Queue) Success(msg string) { q.push(LevelSuccess, msg) }

func (q *Queue) Error(msg string) { q.push(LevelError, msg) }

func (q *Queue) push(level Level, msg string) {
	q.logger.Info("toast", zap.String("level", string(level)), zap.String("message", msg))
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, Toast{Level: level, Message: msg, At: q.now().UTC()})
	if over := len(q.items) - q.limit; over > 0 {
		q.items = append([]Toast(nil), q.items[over:]...)
	}
}

// Drain returns pending toasts in arrival order and empties the queue.
func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	if out == nil {
		out = []Toast{}
	}
	return out
}
