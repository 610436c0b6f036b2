package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/sensor_mux/internal/config"
	"github.com/relabs-tech/sensor_mux/internal/hub"
)

// RunMuxProducer wires the configured event sources and device backend
// into the hub, enables the configured sensors, and publishes every
// delivered sample to its per-sensor MQTT topic until a shutdown signal
// wakes the poll loop.
func RunMuxProducer() error {
	log.Println("starting sensor-mux producer")

	cfg := config.Get()

	ctrl := hub.NewControl(DeviceOpener(cfg), SourceOpener(cfg))
	defer ctrl.Close()

	for _, name := range cfg.ActiveSensors {
		id, ok := SensorByName(name)
		if !ok {
			return fmt.Errorf("unknown sensor %q in ACTIVE_SENSORS", name)
		}
		if err := ctrl.SetActive(id, true); err != nil {
			return fmt.Errorf("enable %s: %w", name, err)
		}
		log.Printf("enabled %s", name)
	}

	if err := ctrl.SetDelay(time.Duration(cfg.SampleInterval) * time.Millisecond); err != nil {
		log.Printf("set sampling period: %v", err)
	}

	replica, err := ctrl.OpenCapture()
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}

	queue := hub.NewQueue()
	queue.OpenReplica(replica)
	defer queue.CloseReplica()

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDMux)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)

	log.Println("connected to MQTT, starting publish loop")

	// A signal wakes the poll loop through the capture path so the
	// blocked read observes a reconfigure marker instead of being
	// killed mid-sample.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal, waking poll loop")
		if err := ctrl.Wake(); err != nil {
			log.Printf("wake error: %v", err)
		}
	}()

	for {
		s, err := queue.Poll()
		if errors.Is(err, hub.ErrReconfigured) {
			log.Println("stream reconfigured, stopping")
			return nil
		}
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}

		payload, err := json.Marshal(s)
		if err != nil {
			log.Printf("json marshal error (%s): %v", s.ID, err)
			continue
		}

		topic := cfg.TopicSensorPrefix + "/" + s.ID.String()
		if token := client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (%s): %v", topic, token.Error())
		}
	}
}
