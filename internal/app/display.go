package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/sensor_mux/internal/config"
	"github.com/relabs-tech/sensor_mux/internal/sensor"
)

const ssd1306DefaultAddr = 0x3C

// remappedBus substitutes its own device address for whatever address
// a driver puts on the wire.
type remappedBus struct {
	i2c.Bus
	addr uint16
}

func (b *remappedBus) Tx(_ uint16, w, r []byte) error {
	return b.Bus.Tx(b.addr, w, r)
}

// displayData holds the latest sample per sensor for the update loop.
type displayData struct {
	mu      sync.RWMutex
	samples [sensor.Count]sensor.Sample
	have    sensor.Mask
}

// RunDisplay renders live sensor values on the SSD1306 OLED: the
// acceleration vector on top, then single-value sensors as they
// arrive.
func RunDisplay() error {
	cfg := config.Get()

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	// The ssd1306 driver always addresses 0x3C; panels strapped to the
	// alternate address get the transactions rerouted at the bus level.
	oledBus := i2c.Bus(bus)
	addr := cfg.DisplayI2CAddr
	if addr == 0 {
		addr = ssd1306DefaultAddr
	}
	if addr != ssd1306DefaultAddr {
		oledBus = &remappedBus{Bus: bus, addr: addr}
	}
	dev, err := ssd1306.NewI2C(oledBus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", addr)

	if err := showSplash(dev); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &displayData{}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	sensorTopic := cfg.TopicSensorPrefix + "/#"
	token := client.Subscribe(sensorTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if msg.Topic() == cfg.TopicGPS {
			return
		}
		var s sensor.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("display: sample unmarshal error (%s): %v", msg.Topic(), err)
			return
		}
		if !s.ID.Valid() {
			return
		}
		data.mu.Lock()
		data.samples[s.ID] = s
		data.have = data.have.Set(s.ID)
		data.mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s", sensorTopic)

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		data.mu.RLock()
		samples := data.samples
		have := data.have
		data.mu.RUnlock()

		if err := updateDisplay(dev, &samples, have); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func blankImage() *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	for i := range img.Pix {
		img.Pix[i] = 0
	}
	return img
}

func newDrawer(img *image1bit.VerticalLSB) *font.Drawer {
	return &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
}

func updateDisplay(dev *ssd1306.Dev, samples *[sensor.Count]sensor.Sample, have sensor.Mask) error {
	img := blankImage()
	drawer := newDrawer(img)

	if have == 0 {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("Sensor Mux"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("Waiting..."))
		return dev.Draw(dev.Bounds(), img, image.Point{})
	}

	y := 13
	if have.Has(sensor.Acceleration) {
		a := samples[sensor.Acceleration]
		drawer.Dot = fixed.P(0, y)
		drawer.DrawBytes([]byte(fmt.Sprintf("A %5.1f %5.1f", a.X, a.Y)))
		y += 13
		drawer.Dot = fixed.P(0, y)
		drawer.DrawBytes([]byte(fmt.Sprintf("  %5.1f", a.Z)))
		y += 13
	}
	if have.Has(sensor.Orientation) && y <= 52 {
		o := samples[sensor.Orientation]
		drawer.Dot = fixed.P(0, y)
		drawer.DrawBytes([]byte(fmt.Sprintf("O %4.0f %4.0f %4.0f", o.X, o.Y, o.Z)))
		y += 13
	}
	if have.Has(sensor.Temperature) && y <= 52 {
		drawer.Dot = fixed.P(0, y)
		drawer.DrawBytes([]byte(fmt.Sprintf("T %5.1fC", samples[sensor.Temperature].Value)))
		y += 13
	}
	if have.Has(sensor.Proximity) && y <= 52 {
		drawer.Dot = fixed.P(0, y)
		drawer.DrawBytes([]byte(fmt.Sprintf("P %4.1fcm", samples[sensor.Proximity].Value)))
		y += 13
	}
	if have.Has(sensor.Light) && y <= 52 {
		drawer.Dot = fixed.P(0, y)
		drawer.DrawBytes([]byte(fmt.Sprintf("L %6.0flx", samples[sensor.Light].Value)))
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

func showSplash(dev *ssd1306.Dev) error {
	img := blankImage()
	drawer := newDrawer(img)

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("Sensor Mux"))

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("Waiting for"))

	drawer.Dot = fixed.P(25, 56)
	drawer.DrawBytes([]byte("samples"))

	return dev.Draw(dev.Bounds(), img, image.Point{})
}
