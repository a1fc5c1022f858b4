// Package announce publishes device state onto the local MQTT broker so
// companion displays (wall panels, the mobile app bridge) can mirror what
// the device is doing without polling the HTTP API.
package announce

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/minaret-labs/minaret/internal/model"
)

const (
	playbackTopic = "minaret/playback"
	scheduleTopic = "minaret/schedule"

	publishQoS     = 1
	publishTimeout = 5 * time.Second
)

var connectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	log.Info().Msg("connected to MQTT broker")
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Warn().Err(err).Msg("MQTT connection lost")
}

// Publisher fans device events out over MQTT. A nil *Publisher is valid and
// publishes nothing, so the rest of the system runs without a broker.
type Publisher struct {
	client mqtt.Client
}

// NewPublisher connects to the broker. Auto-reconnect is left on; transient
// broker outages drop events rather than blocking playback.
func NewPublisher(brokerURL, clientID string) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.OnConnect = connectHandler
	opts.OnConnectionLost = connectLostHandler

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return &Publisher{client: client}, nil
}

// playbackMessage mirrors the arbiter's now-playing feed.
type playbackMessage struct {
	Kind    model.SourceKind `json:"kind"`
	Playing bool             `json:"playing"`
	At      time.Time        `json:"at"`
}

// PlaybackChanged publishes a now-playing transition. Wire this to the
// arbiter's state listener; it must not block, so publish waits happen on
// their own goroutine.
func (p *Publisher) PlaybackChanged(kind model.SourceKind, playing bool) {
	if p == nil {
		return
	}
	p.publish(playbackTopic, playbackMessage{Kind: kind, Playing: playing, At: time.Now()})
}

// ScheduleComputed publishes the day's prayer schedule whenever it is
// (re)computed.
func (p *Publisher) ScheduleComputed(day model.PrayerDay) {
	if p == nil {
		return
	}
	p.publish(scheduleTopic, day)
}

func (p *Publisher) publish(topic string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("failed to encode MQTT payload")
		return
	}
	token := p.client.Publish(topic, publishQoS, false, body)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			log.Warn().Str("topic", topic).Msg("MQTT publish timed out")
			return
		}
		if err := token.Error(); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("MQTT publish failed")
		}
	}()
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	p.client.Disconnect(250)
	log.Info().Msg("MQTT client disconnected")
}
