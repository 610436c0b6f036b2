package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/sensor_mux/internal/config"
	"github.com/relabs-tech/sensor_mux/internal/gps"
	"github.com/relabs-tech/sensor_mux/internal/sensor"
)

var upgrader = websocket.Upgrader{
	// LAN dashboard, no auth layer in front of it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RunWeb serves the latest sample per sensor as JSON, the static sensor
// catalog, and a websocket feed that relays every published sample.
func RunWeb() error {
	cfg := config.Get()

	var (
		mu      sync.RWMutex
		samples = map[string]sensor.Sample{}
		lastFix gps.Fix
		haveFix bool
	)

	var (
		clientsMu sync.Mutex
		clients   = map[*websocket.Conn]bool{}
	)
	broadcast := func(payload []byte) {
		clientsMu.Lock()
		defer clientsMu.Unlock()
		for conn := range clients {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				conn.Close()
				delete(clients, conn)
			}
		}
	}

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to every sensor topic, keeping the latest sample per
	// sensor and relaying each message to websocket clients.
	sensorTopic := cfg.TopicSensorPrefix + "/#"
	token := client.Subscribe(sensorTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if msg.Topic() == cfg.TopicGPS {
			var f gps.Fix
			if err := json.Unmarshal(msg.Payload(), &f); err != nil {
				log.Printf("web: gps unmarshal error: %v", err)
				return
			}
			mu.Lock()
			lastFix = f
			haveFix = true
			mu.Unlock()
			broadcast(msg.Payload())
			return
		}

		var s sensor.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("web: sample unmarshal error (%s): %v", msg.Topic(), err)
			return
		}
		mu.Lock()
		samples[s.ID.String()] = s
		mu.Unlock()
		broadcast(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to %s", sensorTopic)

	// 3) JSON API: latest sample per sensor
	http.HandleFunc("/api/sensors", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()

		if len(samples) == 0 {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(samples); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// 4) JSON API: static catalog of sensor descriptors
	http.HandleFunc("/api/catalog", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sensor.List()); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// 5) JSON API: latest GPS fix
	http.HandleFunc("/api/gps", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()

		if !haveFix {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(lastFix); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// 6) Websocket: every published message, as it arrives
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}
		clientsMu.Lock()
		clients[conn] = true
		clientsMu.Unlock()
		log.Printf("web: websocket client connected from %s", r.RemoteAddr)

		// Drain client frames so pings are answered; the feed is
		// one-way, anything the client sends is ignored.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					clientsMu.Lock()
					delete(clients, conn)
					clientsMu.Unlock()
					conn.Close()
					return
				}
			}
		}()
	})

	// 7) Static files from ./web as the root
	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}
