package queue

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const heartbeat = 10 * time.Second

// dialConfig names the connection so it can be told apart in the broker's
// management UI.
func dialConfig(name string) amqp.Config {
	props := amqp.NewConnectionProperties()
	if name != "" {
		props.SetClientConnectionName(name)
	}
	return amqp.Config{
		Heartbeat:  heartbeat,
		Locale:     "en_US",
		Properties: props,
	}
}

// ConnectRabbitMQ dials uri and opens one channel. name labels the
// connection on the broker, e.g. "fixforge-cli submit".
func ConnectRabbitMQ(uri, name string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(uri, dialConfig(name))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return conn, ch, nil
}
