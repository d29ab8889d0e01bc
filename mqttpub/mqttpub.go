package mqttpub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/icodeforyou/weather-etl/types"
)

const publishTimeout = 5 * time.Second

var ErrNotConnected = errors.New("mqtt client is not connected")

// Publisher sends every stored weather record as JSON to
// "<topic>/<city>", e.g. weather/observations/new_york.
type Publisher struct {
	client mqtt.Client
	logger *slog.Logger
	topic  string
}

func New(broker string, port int16, clientID, username, password, topic string) *Publisher {
	logger := slog.Default().With("module", "mqttpub")
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", broker, port))
	opts.SetClientID(clientID)
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("MQTT connected", slog.String("broker", broker))
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	}

	mqttLogger := slog.Default().With("module", "mqtt")
	mqtt.CRITICAL = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.ERROR = newMqttLogger(mqttLogger, slog.LevelError)
	mqtt.WARN = newMqttLogger(mqttLogger, slog.LevelWarn)

	return NewWithClient(mqtt.NewClient(opts), topic, logger)
}

func NewWithClient(client mqtt.Client, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger,
		topic:  strings.TrimSuffix(topic, "/"),
	}
}

func (p *Publisher) Connect() error {
	p.logger.Debug("connecting MQTT client")
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return nil
}

func (p *Publisher) Disconnect() {
	p.client.Disconnect(250)
}

func (p *Publisher) Publish(ctx context.Context, rec types.WeatherRecord) error {
	if !p.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal weather record: %w", err)
	}

	topic := Topic(p.topic, rec.City)
	token := p.client.Publish(topic, 1, false, payload)

	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.logger.Debug("weather record published", slog.String("topic", topic))
	return nil
}

// Topic appends the city as a lowercase segment without spaces or MQTT wildcards.
func Topic(base, city string) string {
	segment := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '+', '#':
			return '_'
		}
		return r
	}, strings.ToLower(strings.TrimSpace(city)))
	if segment == "" {
		segment = "unknown"
	}
	return base + "/" + segment
}
