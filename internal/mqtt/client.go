package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"recallme-go/config"
	"recallme-go/internal/recall"
)

var ( // Use vars for functions to allow mocking in tests later if needed
	NewClientFunc = mqtt.NewClient
)

// Client wraps the MQTT client and publishes recognition events to the
// configured topic.
type Client struct {
	Cfg         config.MQTTConfig
	Client      mqtt.Client
	IsConnected bool
}

// IsActuallyConnected checks the status of the underlying Paho client.
func (c *Client) IsActuallyConnected() bool {
	return c.Client != nil && c.Client.IsConnected()
}

// NewClient creates and configures a new MQTT client wrapper.
func NewClient(cfg config.MQTTConfig) (*Client, error) {
	if !cfg.Enabled {
		log.Info("MQTT client is disabled in the configuration.")
		return nil, nil // Not an error, just not enabled
	}

	mqttClient := &Client{
		Cfg: cfg,
	}

	brokerURL := fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetConnectionLostHandler(mqttClient.connectionLostHandler)
	opts.SetOnConnectHandler(mqttClient.onConnectHandler)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)

	client := NewClientFunc(opts)
	mqttClient.Client = client

	return mqttClient, nil
}

// Start connects to the MQTT broker.
func (c *Client) Start() error {
	if c.Client == nil {
		return fmt.Errorf("MQTT client not initialized (likely disabled)")
	}
	brokerURL := fmt.Sprintf("tcp://%s:%d", c.Cfg.Broker, c.Cfg.Port)
	log.Infof("Attempting to connect to MQTT broker: %s", brokerURL)
	if token := c.Client.Connect(); token.Wait() && token.Error() != nil {
		log.Errorf("Failed to connect to MQTT broker %s: %v", brokerURL, token.Error())
		// Don't return error here, rely on auto-reconnect
		return token.Error()
	}
	return nil
}

// Stop disconnects the MQTT client.
func (c *Client) Stop() {
	if c.Client != nil && c.Client.IsConnected() {
		log.Info("Disconnecting MQTT client...")
		c.Client.Disconnect(250) // Wait 250ms for disconnection
		log.Info("MQTT client disconnected.")
	}
	c.IsConnected = false
}

// PublishRecognition publishes a recognition event as JSON to the configured
// topic. Publishing is fire-and-forget; a disconnected broker only logs.
func (c *Client) PublishRecognition(event recall.RecognitionEvent) {
	if c == nil || c.Client == nil || !c.Client.IsConnected() {
		log.Debug("MQTT not connected, recognition event not published")
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Errorf("Failed to marshal recognition event for MQTT: %v", err)
		return
	}

	token := c.Client.Publish(c.Cfg.Topic, 1, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Errorf("Failed to publish recognition event to %s: %v", c.Cfg.Topic, token.Error())
		}
	}()
}

// connectionLostHandler logs when the connection is lost.
func (c *Client) connectionLostHandler(client mqtt.Client, err error) {
	log.Errorf("MQTT connection lost: %v. Attempting to reconnect...", err)
	c.IsConnected = false
}

// onConnectHandler marks the client connected.
func (c *Client) onConnectHandler(client mqtt.Client) {
	brokerURL := fmt.Sprintf("tcp://%s:%d", c.Cfg.Broker, c.Cfg.Port)
	log.Infof("Successfully connected to MQTT broker: %s", brokerURL)
	c.IsConnected = true
}
