// Package relay mirrors broadcast game events onto NATS subjects so
// spectator tooling and ops dashboards can tail live tables without
// touching the websocket path.
package relay

import (
	"github.com/nats-io/nats.go"

	"github.com/janryu/janryu/common/log"
)

// Relay publishes frames to games.<id>.events. A nil *Relay is a valid
// no-op publisher, so callers never branch on whether the relay is
// configured.
type Relay struct {
	conn *nats.Conn
}

// Connect dials the NATS server. An empty url disables the relay.
func Connect(url string) (*Relay, error) {
	if url == "" {
		return nil, nil
	}

	conn, err := nats.Connect(url, nats.Name("janryu-relay"))
	if err != nil {
		log.Error("nats connect %s: %v", url, err)
		return nil, err
	}
	log.Info("event relay connected, url: %s", url)
	return &Relay{conn: conn}, nil
}

// PublishEvent fires one frame at the game's subject.
func (r *Relay) PublishEvent(gameID string, frame []byte) {
	r.Publish("games."+gameID+".events", frame)
}

// Publish sends data to an arbitrary subject. Failures are logged and
// swallowed; the relay is an observer, never a dependency of game
// progress.
func (r *Relay) Publish(subject string, data []byte) {
	if r == nil || !r.conn.IsConnected() {
		return
	}
	if err := r.conn.Publish(subject, data); err != nil {
		log.Error("relay publish %s: %v", subject, err)
	}
}

// Subscribe routes every message on subject to handler. On a disabled
// relay it subscribes to nothing, mirroring the publish side.
func (r *Relay) Subscribe(subject string, handler func(data []byte)) error {
	if r == nil {
		return nil
	}
	_, err := r.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		log.Error("relay subscribe %s: %v", subject, err)
		return err
	}
	return nil
}

func (r *Relay) Close() {
	if r == nil {
		return
	}
	r.conn.Close()
}
