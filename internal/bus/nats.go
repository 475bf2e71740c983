// Package bus is the job-lifecycle and knowledge-graph-candidate event
// bus: an embedded nats-server instance plus a thin publish wrapper,
// grounded on the subject-naming and publish patterns the pack's
// nats-bridge command and internal/nats client use for agent status
// fan-out.
package bus

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// Bus wraps an embedded NATS server and a client connection to it.
type Bus struct {
	server *server.Server
	conn   *nats.Conn
}

// Start launches an embedded NATS server on an OS-assigned port and
// connects a client to it. Embedding avoids requiring operators to stand up
// a separate broker for a single-process kernel.
func Start() (*Bus, error) {
	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      server.RANDOM_PORT,
		NoLog:     true,
		NoSigs:    true,
	}
	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("start embedded nats server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		return nil, fmt.Errorf("embedded nats server did not become ready")
	}

	conn, err := nats.Connect(ns.ClientURL())
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("connect to embedded nats server: %w", err)
	}

	log.Printf("[BUS] embedded nats server ready at %s", ns.ClientURL())
	return &Bus{server: ns, conn: conn}, nil
}

// Close drains the client connection and shuts down the embedded server.
func (b *Bus) Close() {
	b.conn.Drain()
	b.server.Shutdown()
}

// JobEvent is the payload published on every job status transition.
type JobEvent struct {
	JobID     string    `json:"job_id"`
	Tool      string    `json:"tool"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PublishJobStatus publishes a job lifecycle transition to
// "jobs.<job_id>.status".
func (b *Bus) PublishJobStatus(ev JobEvent) {
	subject := fmt.Sprintf("jobs.%s.status", ev.JobID)
	b.publish(subject, ev)
}

// CandidateEvent is published when extraction stages a new candidate.
type CandidateEvent struct {
	CandidateID string `json:"candidate_id"`
	Kind        string `json:"kind"` // "entity" or "edge"
	Name        string `json:"name"`
	Confidence  float64 `json:"confidence"`
}

// PublishCandidateStaged publishes to "kg.candidates.staged".
func (b *Bus) PublishCandidateStaged(ev CandidateEvent) {
	b.publish("kg.candidates.staged", ev)
}

func (b *Bus) publish(subject string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[BUS] failed to marshal event for %s: %v", subject, err)
		return
	}
	if err := b.conn.Publish(subject, data); err != nil {
		log.Printf("[BUS] failed to publish to %s: %v", subject, err)
	}
}
