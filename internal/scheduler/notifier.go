package scheduler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ScheduleEvent is the JSON payload broadcast and published after every
// committed regeneration. It is not persisted state.
type ScheduleEvent struct {
	Type                 string    `json:"type"`
	Timestamp            time.Time `json:"timestamp"`
	JobsTotal            int       `json:"jobs_total"`
	JobsScheduled        int       `json:"jobs_scheduled"`
	UnschedulableJobIDs  []int64   `json:"unschedulable_job_ids,omitempty"`
	DeadlineMissedJobIDs []int64   `json:"deadline_missed_job_ids,omitempty"`
	DurationMs           int64     `json:"duration_ms"`
}

func newScheduleEvent(summary RegenerateSummary) ScheduleEvent {
	return ScheduleEvent{
		Type:                 "schedule.regenerated",
		Timestamp:            time.Now(),
		JobsTotal:            summary.JobsTotal,
		JobsScheduled:        summary.JobsScheduled,
		UnschedulableJobIDs:  summary.UnschedulableJobIDs,
		DeadlineMissedJobIDs: summary.DeadlineMissedJobIDs,
		DurationMs:           summary.Duration.Milliseconds(),
	}
}

// ScheduleNotifier fans a ScheduleEvent out to connected WebSocket
// dashboards and publishes it to an AMQP topic exchange for out-of-process
// consumers. Delivery is best-effort: a failure here never fails or rolls
// back the regeneration that produced the event.
type ScheduleNotifier struct {
	mu      sync.RWMutex
	conns   map[*websocket.Conn]struct{}
	amqpCh  *amqp.Channel
	exchange string
	logger  *logrus.Logger
}

// NewScheduleNotifier builds a notifier. amqpCh may be nil, in which case
// AMQP publishing is skipped (useful for deployments with no broker).
func NewScheduleNotifier(amqpCh *amqp.Channel, exchange string, logger *logrus.Logger) *ScheduleNotifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ScheduleNotifier{
		conns:    make(map[*websocket.Conn]struct{}),
		amqpCh:   amqpCh,
		exchange: exchange,
		logger:   logger,
	}
}

// Upgrade promotes an HTTP request to a WebSocket connection and
// registers it with the notifier. It blocks, reading (and discarding)
// incoming frames, until the client disconnects, then unregisters and
// closes the connection.
func (n *ScheduleNotifier) Upgrade(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	n.Register(conn)
	defer func() {
		n.Unregister(conn)
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

// Register adds a dashboard connection to the broadcast set. The caller
// owns the connection's lifecycle (ping loop, read loop, close).
func (n *ScheduleNotifier) Register(conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.conns[conn] = struct{}{}
}

// Unregister removes a dashboard connection, e.g. after it disconnects.
func (n *ScheduleNotifier) Unregister(conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.conns, conn)
}

// Publish broadcasts and publishes the regeneration summary. It never
// returns an error: every failure is logged and otherwise swallowed.
func (n *ScheduleNotifier) Publish(summary RegenerateSummary) {
	event := newScheduleEvent(summary)
	n.broadcast(event)
	n.publishAMQP(event)
}

func (n *ScheduleNotifier) broadcast(event ScheduleEvent) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for conn := range n.conns {
		if err := conn.WriteJSON(event); err != nil {
			n.logger.WithError(err).Warn("schedule notifier: dashboard broadcast failed")
		}
	}
}

func (n *ScheduleNotifier) publishAMQP(event ScheduleEvent) {
	if n.amqpCh == nil {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		n.logger.WithError(err).Warn("schedule notifier: marshal event")
		return
	}
	err = n.amqpCh.Publish(n.exchange, "schedule.regenerated", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		n.logger.WithError(err).Warn("schedule notifier: amqp publish failed")
	}
}
