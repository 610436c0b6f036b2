package main

import (
	"log"

	"github.com/relabs-tech/sensor_mux/internal/app"
	"github.com/relabs-tech/sensor_mux/internal/config"
)

func main() {
	log.Println("starting sensor-mux daemon (MQTT producer)")

	// Load configuration
	if err := config.InitGlobal("sensor_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunMuxProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
