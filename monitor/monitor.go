// Package monitor hosts a small HTTP + websocket control plane for a
// running job: a /health endpoint reporting the last superstep observed,
// and a /progress websocket endpoint that streams one ProgressEvent per
// superstep to every connected client, backed by a fiber.App.
package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ProgressEvent reports one superstep's shape: how many vertices were
// active, how many envelopes the messaging phase produced, and when the
// superstep finished.
type ProgressEvent struct {
	CorrelationID  string    `json:"correlation_id"`
	JobName        string    `json:"job_name"`
	Superstep      int       `json:"superstep"`
	ActiveVertices int64     `json:"active_vertices"`
	Envelopes      int64     `json:"envelopes"`
	When           time.Time `json:"when"`
}

// NewProgressEvent stamps a ProgressEvent with a fresh correlation id, the
// same way every JobError is stamped, so a client can correlate a
// websocket-delivered event with a log line or error report for the same
// superstep.
func NewProgressEvent(jobName string, superstep int, activeVertices, envelopes int64, when time.Time) ProgressEvent {
	return ProgressEvent{
		CorrelationID:  uuid.NewString(),
		JobName:        jobName,
		Superstep:      superstep,
		ActiveVertices: activeVertices,
		Envelopes:      envelopes,
		When:           when,
	}
}

// Monitor is a running control plane for zero or more jobs. Jobs publish
// ProgressEvent values to it via Publish; every currently-connected
// websocket client receives a copy.
type Monitor struct {
	app *fiber.App

	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
	lastSeen map[string]ProgressEvent
}

// New builds a Monitor with /health and /progress routes registered, but
// does not start listening; call Run for that.
func New(config ...fiber.Config) *Monitor {
	m := &Monitor{
		app:      fiber.New(config...),
		clients:  make(map[*websocket.Conn]bool),
		lastSeen: make(map[string]ProgressEvent),
	}

	m.app.Use(recover.New())

	m.app.Get("/health", func(c *fiber.Ctx) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"jobs": m.lastSeen,
		})
	})

	m.app.Get("/progress", websocket.New(func(c *websocket.Conn) {
		m.mu.Lock()
		m.clients[c] = true
		m.mu.Unlock()

		defer func() {
			m.mu.Lock()
			delete(m.clients, c)
			m.mu.Unlock()
			c.Close()
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))

	return m
}

// Run starts the HTTP listener on addr and blocks until ctx is cancelled or
// the listener fails.
func (m *Monitor) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- m.app.Listen(addr) }()

	select {
	case <-ctx.Done():
		return m.app.ShutdownWithTimeout(5 * time.Second)
	case err := <-errCh:
		return err
	}
}

// Publish records event as the job's most recent progress and fans it out
// to every connected /progress client, one blocking write per client. A
// client whose write fails is dropped.
func (m *Monitor) Publish(event ProgressEvent) {
	m.mu.Lock()
	m.lastSeen[event.JobName] = event
	clients := make([]*websocket.Conn, 0, len(m.clients))
	for c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	for _, c := range clients {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			m.mu.Lock()
			delete(m.clients, c)
			m.mu.Unlock()
		}
	}
}
