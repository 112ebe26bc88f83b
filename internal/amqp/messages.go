package amqp

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"saldo/internal/core"
)

const contentTypeJSON = "application/json"

// publishing wraps a change in a persistent message. The change id doubles as
// the message id so consumers can deduplicate redeliveries.
func publishing(c core.Change) (amqp091.Publishing, error) {
	body, err := c.ToJSON()
	if err != nil {
		return amqp091.Publishing{}, err
	}
	return amqp091.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp091.Persistent,
		MessageId:    c.ID.String(),
		Type:         messageType(c),
		Timestamp:    time.Now(),
		Body:         body,
	}, nil
}

// messageType is "<collection>.<operation>", e.g. "expenses.created".
func messageType(c core.Change) string {
	return fmt.Sprintf("%s.%s", c.Collection, c.Operation)
}

func decode(d amqp091.Delivery) (core.Change, error) {
	if d.ContentType != "" && d.ContentType != contentTypeJSON {
		return core.Change{}, fmt.Errorf("unsupported content type %q", d.ContentType)
	}
	c, err := core.ChangeFromJSON(d.Body)
	if err != nil {
		return core.Change{}, fmt.Errorf("decode change: %w", err)
	}
	return c, nil
}
