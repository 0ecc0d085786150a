package config

import "fmt"

// ConfigError names the offending field when startup validation fails.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// Validate cross-checks the loaded configuration. Call once after Load;
// a non-nil result is fatal.
func Validate() *ConfigError {
	fc := GetFleetConfig()
	if fc.MaxDevices < 1 {
		return &ConfigError{Field: "fleet.maxDevices", Reason: "must be at least 1"}
	}
	if fc.Count < 0 {
		return &ConfigError{Field: "fleet.count", Reason: "must not be negative"}
	}
	if fc.Count > fc.MaxDevices {
		return &ConfigError{Field: "fleet.count", Reason: fmt.Sprintf("exceeds fleet.maxDevices (%d)", fc.MaxDevices)}
	}
	if fc.BasePort < 1 || fc.BasePort > 65535 {
		return &ConfigError{Field: "fleet.basePort", Reason: "outside 1-65535"}
	}
	if fc.BasePort+fc.MaxDevices-1 > 65535 {
		return &ConfigError{Field: "fleet.maxDevices", Reason: "command port range runs past 65535"}
	}
	if fc.StatePort < 1 || fc.StatePort > 65535 {
		return &ConfigError{Field: "fleet.statePort", Reason: "outside 1-65535"}
	}
	// Higher command offsets may overlap the state port; the listeners
	// filter the echoes. The primary command port may not.
	if fc.StatePort == fc.BasePort {
		return &ConfigError{Field: "fleet.statePort", Reason: "collides with fleet.basePort"}
	}
	if fc.PublishRateHz <= 0 {
		return &ConfigError{Field: "fleet.publishRateHz", Reason: "must be positive"}
	}

	sc := GetSimConfig()
	if sc.TickRate <= 0 {
		return &ConfigError{Field: "sim.tickRateHz", Reason: "must be positive"}
	}
	if sc.Bounds.X <= 0 || sc.Bounds.Y <= 0 || sc.Bounds.Z <= 0 {
		return &ConfigError{Field: "sim.bounds", Reason: "all extents must be positive"}
	}
	if sc.MinSeparation < 0 {
		return &ConfigError{Field: "sim.minSeparation", Reason: "must not be negative"}
	}
	if sc.OriginLat < -90 || sc.OriginLat > 90 {
		return &ConfigError{Field: "sim.origin.lat", Reason: "outside -90..90"}
	}
	if sc.OriginLon < -180 || sc.OriginLon > 180 {
		return &ConfigError{Field: "sim.origin.lon", Reason: "outside -180..180"}
	}

	switch cc := GetCoordinatorConfig(); cc.Type {
	case "rest", "websocket", "memory":
	default:
		return &ConfigError{Field: "coordinator.type", Reason: fmt.Sprintf("unknown type %q", cc.Type)}
	}

	pads, err := GetPads()
	if err != nil {
		return &ConfigError{Field: "pads", Reason: err.Error()}
	}
	seen := make(map[int]bool, len(pads))
	for _, p := range pads {
		if p.ID < 1 || p.ID > 8 {
			return &ConfigError{Field: "pads", Reason: fmt.Sprintf("pad id %d outside 1-8", p.ID)}
		}
		if seen[p.ID] {
			return &ConfigError{Field: "pads", Reason: fmt.Sprintf("duplicate pad id %d", p.ID)}
		}
		seen[p.ID] = true
	}

	return nil
}
