package config

import "time"

// DefaultKeepAlive is the built-in default when neither CLI, ENV, nor YAML
// set broker.keep_alive.
const DefaultKeepAlive = 60 * time.Second

// DefaultPort is the built-in default broker port for the tcp protocol.
const DefaultPort = 1883

// Defaults returns the built-in bottom of the CLI > ENV > YAML > defaults
// precedence chain (spec §6).
func Defaults() Config {
	return Config{
		Broker: Broker{
			Port:      DefaultPort,
			Protocol:  "tcp",
			MQTTVer:   "v311",
			KeepAlive: DefaultKeepAlive,
		},
		LogLevel: "info",
	}
}
