package main

import (
	"flag"

	"github.com/spf13/viper"
)

var (
	configDir   = flag.String("config", ".", "directory containing tellosim.cfg.json")
	logLevel    = flag.String("loglevel", "", "override the configured log level")
	fleetCount  = flag.Int("count", -1, "override the configured device count")
	fleetPrefix = flag.String("prefix", "", "override the configured device id prefix")
	showVersion = flag.Bool("version", false, "print version and exit")
)

// applyFlagOverrides layers command line flags over the loaded config.
// Flags win so a fleet can be resized without editing the config file.
func applyFlagOverrides() {
	if *logLevel != "" {
		viper.Set("logLevel", *logLevel)
	}
	if *fleetCount >= 0 {
		viper.Set("fleet.count", *fleetCount)
	}
	if *fleetPrefix != "" {
		viper.Set("fleet.prefix", *fleetPrefix)
	}
}
