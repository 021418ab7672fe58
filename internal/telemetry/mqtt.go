package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// FixPayload is published to "<prefix>/fix" whenever the GNSS session
// decodes a frame that leaves at least one validity flag set.
type FixPayload struct {
	UTC       string  `json:"utc,omitempty"`
	TimeValid bool    `json:"time_valid"`
	PosValid  bool    `json:"pos_valid"`
	LatDeg    float64 `json:"lat_deg,omitempty"`
	LonDeg    float64 `json:"lon_deg,omitempty"`
	AltM      int     `json:"alt_m,omitempty"`
	NumSat    int     `json:"num_sat"`
}

// RefPayload is published to "<prefix>/timebase" whenever a sync
// commits a new reference.
type RefPayload struct {
	CountUS    uint32  `json:"count_us"`
	UTC        string  `json:"utc"`
	XtalErrPPM float64 `json:"xtal_err_ppm"`
}

// Publisher wraps a connected MQTT client, grounded on
// gps_producer.go's connect-once-then-publish-JSON pattern: a single
// client.Connect() at construction, one client.Publish + token.Wait()
// per update, logged rather than retried on failure.
type Publisher struct {
	client mqtt.Client
	prefix string
	logger *log.Logger
}

// NewPublisher connects to broker (e.g. "tcp://localhost:1883") under
// clientID and returns a Publisher that publishes under topicPrefix.
func NewPublisher(broker, clientID, topicPrefix string, logger *log.Logger) (*Publisher, error) {
	if logger == nil {
		logger = log.Default()
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: connect to %s: %w", broker, token.Error())
	}
	logger.Printf("telemetry: connected to %s as %s", broker, clientID)

	return &Publisher{client: client, prefix: topicPrefix, logger: logger}, nil
}

// PublishFix publishes f to "<prefix>/fix" at QoS 0, retained.
func (p *Publisher) PublishFix(f FixPayload) {
	p.publish("fix", f)
}

// PublishRef publishes r to "<prefix>/timebase" at QoS 0, retained.
func (p *Publisher) PublishRef(r RefPayload) {
	p.publish("timebase", r)
}

func (p *Publisher) publish(topicSuffix string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		p.logger.Printf("telemetry: marshal failed for %s: %v", topicSuffix, err)
		return
	}
	topic := p.prefix + "/" + topicSuffix
	token := p.client.Publish(topic, 0, true, b)
	token.Wait()
	if token.Error() != nil {
		p.logger.Printf("telemetry: publish to %s failed: %v", topic, token.Error())
	}
}

// Close disconnects the underlying MQTT client, waiting up to
// 250ms for in-flight work to drain.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
