// Package queue contains the background consumer that listens to the
// venue.activity queue and appends rows to the venue_activity and
// restaurant_activity tables.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartActivityConsumer connects to RabbitMQ, declares the
// venue.activity queue (durable), and starts consuming messages.  Each
// event is inserted into the activity table matching its scope.  The
// function runs a reconnect loop with exponential backoff and keeps
// running for the lifetime of the process; processing errors are logged
// and the offending message is rejected without requeue so the server
// continues operating.
func StartActivityConsumer(db *sql.DB) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("activity-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, db); err != nil {
			log.Printf("activity-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection, db *sql.DB) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("activity-consumer: set QoS failed: %v", err)
	}

	_, err = ch.QueueDeclare(activityQueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(activityQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(db, d.Body); err != nil {
			log.Printf("activity-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// handleMessage persists one activity event.  Unknown scopes are an
// error so malformed messages end up rejected rather than silently
// dropped into the wrong table.
func handleMessage(db *sql.DB, body []byte) error {
	var ev ActivityEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	var table string
	switch ev.Scope {
	case ScopeVenue:
		table = "venue_activity"
	case ScopeRestaurant:
		table = "restaurant_activity"
	default:
		return fmt.Errorf("unknown scope %q", ev.Scope)
	}
	occurred := ev.OccurredAt
	if occurred == "" {
		occurred = time.Now().UTC().Format(time.RFC3339)
	}
	t, err := time.Parse(time.RFC3339, occurred)
	if err != nil {
		t = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = db.ExecContext(ctx,
		`INSERT INTO `+table+` (entity_id, type, message, actor_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		ev.EntityID, ev.Type, ev.Message, ev.ActorID, t.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}
