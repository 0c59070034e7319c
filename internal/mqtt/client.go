// Package mqtt publishes brightness and temperature steps to an MQTT broker.
package mqtt

import (
	"context"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gammad/internal/config"
)

// Client is the subset of an MQTT connection the publisher needs.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
}

// PahoClient is a Client backed by the Eclipse Paho library.
type PahoClient struct {
	client  pahomqtt.Client
	broker  string
	timeout time.Duration
}

// NewPahoClient configures a client. The connection is opened by Connect.
// The broker keeps "<prefix>/status" at "offline" while gammad is gone.
func NewPahoClient(cfg config.MQTTConfig) *PahoClient {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)

	if cfg.ClientID != "" {
		opts.SetClientID(cfg.ClientID)
	} else {
		opts.SetClientID(fmt.Sprintf("gammad-%d", time.Now().Unix()))
	}
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	status := StatusTopic(cfg.TopicPrefix)
	opts.SetWill(status, "offline", cfg.QoS, true)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c pahomqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("Connected to MQTT broker")
		c.Publish(status, cfg.QoS, true, "online")
	}
	opts.OnConnectionLost = func(c pahomqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	}
	opts.OnReconnecting = func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		log.Info().Msg("MQTT reconnecting")
	}

	return &PahoClient{
		client:  pahomqtt.NewClient(opts),
		broker:  cfg.Broker,
		timeout: cfg.Timeout.Duration(),
	}
}

// Connect opens the connection, waiting at most until ctx is done.
func (c *PahoClient) Connect(ctx context.Context) error {
	log.Info().Str("broker", c.broker).Msg("Connecting to MQTT broker")

	token := c.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connection timeout: %w", ctx.Err())
	}
}

// Disconnect closes the connection.
func (c *PahoClient) Disconnect() {
	c.client.Disconnect(250)
	log.Info().Msg("Disconnected from MQTT broker")
}

// Publish implements Client.
func (c *PahoClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe implements Client.
func (c *PahoClient) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	token := c.client.Subscribe(topic, qos, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("subscribe to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	log.Info().Str("topic", topic).Msg("Subscribed to MQTT topic")
	return nil
}
