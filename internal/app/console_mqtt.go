package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/sensor_mux/internal/config"
	"github.com/relabs-tech/sensor_mux/internal/gps"
	"github.com/relabs-tech/sensor_mux/internal/sensor"
)

// RunConsoleMQTT subscribes to every sensor topic plus GPS and prints
// each message as one formatted line.
func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	sensorTopic := cfg.TopicSensorPrefix + "/#"
	sensorToken := client.Subscribe(sensorTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if msg.Topic() == cfg.TopicGPS {
			return
		}
		var s sensor.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: sample unmarshal error (%s): %v", msg.Topic(), err)
			return
		}

		switch s.ID {
		case sensor.Acceleration, sensor.Magnetic, sensor.Orientation:
			fmt.Printf(
				"[%-12s] x=%8.3f y=%8.3f z=%8.3f status=%d t=%d\n",
				s.ID, s.X, s.Y, s.Z, s.Status, s.Time,
			)
		default:
			fmt.Printf(
				"[%-12s] value=%8.3f t=%d\n",
				s.ID, s.Value, s.Time,
			)
		}
	})
	sensorToken.Wait()
	if sensorToken.Error() != nil {
		return sensorToken.Error()
	}
	log.Printf("console: subscribed to %s", sensorTopic)

	gpsToken := client.Subscribe(cfg.TopicGPS, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var f gps.Fix
		if err := json.Unmarshal(msg.Payload(), &f); err != nil {
			log.Printf("console: gps unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[GPS         ] time=%s date=%s lat=%.6f lon=%.6f speed=%.1fkn course=%.1f° validity=%s\n",
			f.Time, f.Date, f.Latitude, f.Longitude, f.SpeedKnots, f.CourseDeg, f.Validity,
		)
	})
	gpsToken.Wait()
	if gpsToken.Error() != nil {
		return gpsToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicGPS)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
