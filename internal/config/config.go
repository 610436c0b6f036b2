package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDMux     string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string
	MQTTClientIDDisplay string
	MQTTClientIDGPS     string

	// Topics
	TopicSensorPrefix string // per-sensor topics are <prefix>/<sensor>
	TopicGPS          string

	// Raw event sources, one per driver. Each is a backend spec:
	//   evdev:<input device name>
	//   serial:<port>@<baud>
	//   none
	SourceAccelerometer string
	SourceCompass       string
	SourceProximity     string
	SourceLight         string

	// Device command backend: "stub" or "hardware"
	DeviceBackend string

	// Hardware backend buses
	AccelSPIDevice string
	AccelRange     byte // 0=±2g, 1=±4g, 2=±8g, 3=±16g
	CompassI2CBus  string
	CompassI2CAddr uint16

	// Which sensors muxd enables at startup (comma-separated names)
	ActiveSensors []string

	// Timing
	SampleInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	// GPS
	GPSSerialPort string
	GPSBaudRate   int
}

// Package-level unexported variables for the singleton: external code
// must use InitGlobal() to set and Get() to read, ensuring thread
// safety.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		MQTTClientIDMux:     "sensor-mux-producer",
		MQTTClientIDConsole: "sensor-mux-console",
		MQTTClientIDWeb:     "sensor-mux-web",
		MQTTClientIDDisplay: "sensor-mux-display",
		MQTTClientIDGPS:     "sensor-mux-gps",

		TopicSensorPrefix: "sensors",
		TopicGPS:          "sensors/gps",

		SourceAccelerometer: "evdev:accelerometer",
		SourceCompass:       "evdev:compass",
		SourceProximity:     "evdev:proximity",
		SourceLight:         "evdev:max9635",

		DeviceBackend: "stub",

		ActiveSensors: []string{"acceleration"},

		SampleInterval: 100,

		WebServerPort:         8080,
		DisplayUpdateInterval: 250,

		GPSBaudRate: 9600,
	}
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_MUX":
		c.MQTTClientIDMux = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value

	// Topics
	case "TOPIC_SENSOR_PREFIX":
		c.TopicSensorPrefix = value
	case "TOPIC_GPS":
		c.TopicGPS = value

	// Event sources
	case "SOURCE_ACCELEROMETER":
		c.SourceAccelerometer = value
	case "SOURCE_COMPASS":
		c.SourceCompass = value
	case "SOURCE_PROXIMITY":
		c.SourceProximity = value
	case "SOURCE_LIGHT":
		c.SourceLight = value

	// Device commands
	case "DEVICE_BACKEND":
		if value != "stub" && value != "hardware" {
			return fmt.Errorf("DEVICE_BACKEND must be stub or hardware, got %q", value)
		}
		c.DeviceBackend = value
	case "ACCEL_SPI_DEVICE":
		c.AccelSPIDevice = value
	case "ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.AccelRange = byte(rangeVal)
	case "COMPASS_I2C_BUS":
		c.CompassI2CBus = value
	case "COMPASS_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid COMPASS_I2C_ADDR %q: %w", value, err)
		}
		c.CompassI2CAddr = uint16(addr)

	// Activation
	case "ACTIVE_SENSORS":
		c.ActiveSensors = nil
		for _, name := range strings.Split(value, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				c.ActiveSensors = append(c.ActiveSensors, name)
			}
		}

	// Timing
	case "SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.SampleInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.SampleInterval <= 0 {
		return fmt.Errorf("SAMPLE_INTERVAL must be positive")
	}
	if c.DeviceBackend == "hardware" && c.AccelSPIDevice == "" {
		return fmt.Errorf("ACCEL_SPI_DEVICE is required with DEVICE_BACKEND=hardware")
	}
	return nil
}

// InitGlobal initializes the global configuration from file. Uses
// sync.Once so this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance. InitGlobal must be
// called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
