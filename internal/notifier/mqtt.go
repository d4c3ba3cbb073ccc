package notifier

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"smart_irrigation/internal/logger"
)

// MQTTSink drains one notifier subscription and republishes every event as
// JSON on "<prefix>/<kind>". It is an optional outbound transport next to
// the WebSocket push; QoS 0, best effort by design of the fan-out.
type MQTTSink struct {
	client mqtt.Client
	prefix string
	sub    *Subscription
	log    *logger.Logger
	done   chan struct{}
}

// NewMQTTSink connects to the broker and starts forwarding events.
func NewMQTTSink(n *Notifier, broker, clientID, prefix string, log *logger.Logger) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		if log != nil {
			log.Warnw("mqtt_connection_lost", "err", err)
		}
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker %q: %w", broker, token.Error())
	}

	sink := &MQTTSink{
		client: client,
		prefix: prefix,
		sub:    n.Subscribe("mqtt", 64),
		log:    log,
		done:   make(chan struct{}),
	}
	go sink.run()
	return sink, nil
}

func (s *MQTTSink) run() {
	defer close(s.done)
	for e := range s.sub.Events() {
		payload, err := json.Marshal(e)
		if err != nil {
			continue
		}
		// fire and forget; the broker side must not stall the loop
		s.client.Publish(s.prefix+"/"+e.Kind, 0, false, payload)
	}
}

// Close detaches the sink from the notifier and disconnects the client.
func (s *MQTTSink) Close(n *Notifier) {
	n.Unsubscribe(s.sub)
	<-s.done
	s.client.Disconnect(250)
}
