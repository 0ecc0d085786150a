package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/tellofleet/sim/internal/model"
)

// FleetConfig holds fleet sizing and the UDP port layout.
type FleetConfig struct {
	Count         int
	Prefix        string
	MaxDevices    int
	BasePort      int
	StatePort     int
	PublishRateHz float64
}

// CoordinatorConfig selects and parameterizes the coordinator backend.
type CoordinatorConfig struct {
	Type            string
	ServerURL       string
	APIKey          string
	WebsocketURL    string
	WebsocketSecret string
}

// InfluxConfig holds the telemetry export settings.
type InfluxConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
}

// URL assembles the server URL the client connects to.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds the optional GELF log target.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// OTelConfig holds OpenTelemetry log export settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./fleetlogs")

	viper.SetDefault("fleet.count", 3)
	viper.SetDefault("fleet.prefix", "drone")
	viper.SetDefault("fleet.maxDevices", 10)
	viper.SetDefault("fleet.basePort", 8889)
	viper.SetDefault("fleet.statePort", 8890)
	viper.SetDefault("fleet.publishRateHz", 10.0)

	viper.SetDefault("sim.tickRateHz", 30.0)
	viper.SetDefault("sim.gravity", 9.81)
	viper.SetDefault("sim.drag", 0.1)
	viper.SetDefault("sim.maxAcceleration", 500.0)
	viper.SetDefault("sim.batteryDrainRate", 0.1)
	viper.SetDefault("sim.defaultSpeed", 100.0)
	viper.SetDefault("sim.minSeparation", 50.0)
	viper.SetDefault("sim.bounds.x", 1000.0)
	viper.SetDefault("sim.bounds.y", 1000.0)
	viper.SetDefault("sim.bounds.z", 500.0)
	viper.SetDefault("sim.groundLevel", 0.0)
	viper.SetDefault("sim.origin.lat", 0.0)
	viper.SetDefault("sim.origin.lon", 0.0)

	viper.SetDefault("pads", []any{})

	viper.SetDefault("coordinator.type", "rest")
	viper.SetDefault("coordinator.serverUrl", "http://localhost:8000")
	viper.SetDefault("coordinator.apiKey", "")
	viper.SetDefault("coordinator.websocket.url", "ws://localhost:8001/ws")
	viper.SetDefault("coordinator.websocket.secret", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "fleet-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "tellosim")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName("tellosim.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFleetConfig returns the fleet sizing and port layout.
func GetFleetConfig() FleetConfig {
	return FleetConfig{
		Count:         viper.GetInt("fleet.count"),
		Prefix:        viper.GetString("fleet.prefix"),
		MaxDevices:    viper.GetInt("fleet.maxDevices"),
		BasePort:      viper.GetInt("fleet.basePort"),
		StatePort:     viper.GetInt("fleet.statePort"),
		PublishRateHz: viper.GetFloat64("fleet.publishRateHz"),
	}
}

// GetSimConfig returns the physics parameters shared by every device.
func GetSimConfig() model.SimConfig {
	return model.SimConfig{
		TickRate:         viper.GetFloat64("sim.tickRateHz"),
		Gravity:          viper.GetFloat64("sim.gravity"),
		Drag:             viper.GetFloat64("sim.drag"),
		MaxAcceleration:  viper.GetFloat64("sim.maxAcceleration"),
		BatteryDrainRate: viper.GetFloat64("sim.batteryDrainRate"),
		DefaultSpeed:     viper.GetFloat64("sim.defaultSpeed"),
		MinSeparation:    viper.GetFloat64("sim.minSeparation"),
		Bounds: model.Vec3{
			X: viper.GetFloat64("sim.bounds.x"),
			Y: viper.GetFloat64("sim.bounds.y"),
			Z: viper.GetFloat64("sim.bounds.z"),
		},
		GroundLevel: viper.GetFloat64("sim.groundLevel"),
		OriginLat:   viper.GetFloat64("sim.origin.lat"),
		OriginLon:   viper.GetFloat64("sim.origin.lon"),
	}
}

// GetCoordinatorConfig returns the coordinator backend selection.
func GetCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		Type:            viper.GetString("coordinator.type"),
		ServerURL:       viper.GetString("coordinator.serverUrl"),
		APIKey:          viper.GetString("coordinator.apiKey"),
		WebsocketURL:    viper.GetString("coordinator.websocket.url"),
		WebsocketSecret: viper.GetString("coordinator.websocket.secret"),
	}
}

// GetInfluxConfig returns the telemetry export settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
	}
}

// GetGraylogConfig returns the optional GELF log target.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns OpenTelemetry log export settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

type padEntry struct {
	ID int     `mapstructure:"id"`
	X  float64 `mapstructure:"x"`
	Y  float64 `mapstructure:"y"`
	Z  float64 `mapstructure:"z"`
}

// GetPads returns the configured mission pad layout. An absent or empty
// array means no pads in the scene.
func GetPads() ([]model.Pad, error) {
	var entries []padEntry
	if err := viper.UnmarshalKey("pads", &entries); err != nil {
		return nil, fmt.Errorf("error parsing pads: %w", err)
	}
	pads := make([]model.Pad, 0, len(entries))
	for _, e := range entries {
		pads = append(pads, model.Pad{
			ID:       e.ID,
			Position: model.Vec3{X: e.X, Y: e.Y, Z: e.Z},
		})
	}
	return pads, nil
}
