// Package natsbridge repurposes the teacher's internal/nats connection
// wrapper: instead of relaying socket<->game-service traffic between
// separate binaries, every broadcast this process emits is additionally
// published to a single "market.events" subject for external
// collaborators (dashboards, monitoring) to subscribe to (SPEC_FULL.md
// §4.6). The core engine never subscribes to anything — this is a
// one-way side channel.
package natsbridge

import (
	"encoding/json"
	"os"

	"github.com/avvvet/marketday/internal/comm"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const EventsSubject = "market.events"

type Bridge struct {
	conn *nats.Conn
	log  *logrus.Entry
}

// Connect dials NATS_URL exactly as the teacher's Connect() does,
// defaulting to the same local address. A nil *Bridge (no connection)
// is a valid no-op value so the engine still runs without a broker.
func Connect(log *logrus.Entry) (*Bridge, error) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		url = "nats://localhost:4224"
	}

	opts := []nats.Option{nats.Name("marketday-events")}
	if token := os.Getenv("NATS_TOKEN"); token != "" {
		opts = append(opts, nats.Token(token))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	return &Bridge{conn: conn, log: log}, nil
}

// Publish fans msg out to EventsSubject. A nil Bridge or disconnected
// conn is silently skipped — the side channel is best-effort and never
// blocks a player-facing broadcast.
func (b *Bridge) Publish(msg *comm.WSMessage) {
	if b == nil || b.conn == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		b.log.WithError(err).Error("natsbridge: marshal event")
		return
	}
	if err := b.conn.Publish(EventsSubject, data); err != nil {
		b.log.WithError(err).Debug("natsbridge: publish failed")
	}
}

func (b *Bridge) Close() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}
