// Command mqtli is the CLI entrypoint: broker flags shared by every
// subcommand, config-file loading under CLI > ENV > YAML > defaults
// precedence (spec §6), and four run modes: default multi-topic, publish,
// subscribe, and sp (Sparkplug network mode).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kaans/mqtli/internal/app"
	"github.com/kaans/mqtli/internal/config"
	"github.com/kaans/mqtli/internal/log"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	cliApp := &cli.App{
		Name:  "mqtli",
		Usage: "a multi-topic MQTT client for conversion, filtering and storage pipelines",
		Flags: brokerFlags(),
		Commands: []*cli.Command{
			publishCommand(),
			subscribeCommand(),
			sparkplugCommand(),
		},
		Action: defaultAction,
	}

	if err := cliApp.Run(args); err != nil {
		if exitErr, ok := err.(cli.ExitCoder); ok {
			fmt.Fprintln(os.Stderr, exitErr.Error())
			return exitErr.ExitCode()
		}
		fmt.Fprintln(os.Stderr, err)
		return app.ExitStartupError
	}
	return lastExitCode
}

// lastExitCode carries the exit code out of an Action, since cli.App.Run
// only distinguishes error/no-error. Actions that return a plain error wrap
// it in cli.Exit so ExitCoder above catches it; a clean shutdown instead
// sets this directly before returning nil.
var lastExitCode int

func brokerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config-file", Aliases: []string{"c"}, Usage: "path to a YAML config file"},
		&cli.StringFlag{Name: "host", Usage: "broker host"},
		&cli.IntFlag{Name: "port", Usage: "broker port"},
		&cli.StringFlag{Name: "protocol", Usage: "tcp or websocket"},
		&cli.StringFlag{Name: "client-id", Usage: "MQTT client id"},
		&cli.StringFlag{Name: "mqtt-version", Usage: "v311 or v5"},
		&cli.DurationFlag{Name: "keep-alive", Usage: "MQTT keep-alive interval"},
		&cli.StringFlag{Name: "username", Usage: "broker username"},
		&cli.StringFlag{Name: "password", Usage: "broker password"},
		&cli.BoolFlag{Name: "use-tls", Usage: "enable TLS"},
		&cli.StringFlag{Name: "ca-file", Usage: "CA certificate file"},
		&cli.StringFlag{Name: "client-cert", Usage: "client certificate file"},
		&cli.StringFlag{Name: "client-key", Usage: "client key file"},
		&cli.StringFlag{Name: "tls-version", Usage: "all, v12 or v13"},
		&cli.StringFlag{Name: "last-will-topic", Usage: "last-will topic (also enables the will)"},
		&cli.StringFlag{Name: "last-will-payload", Usage: "last-will payload"},
		&cli.IntFlag{Name: "last-will-qos", Usage: "last-will QoS"},
		&cli.BoolFlag{Name: "last-will-retain", Usage: "last-will retained flag"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		&cli.BoolFlag{Name: "dry-run", Usage: "validate config and resolve descriptors, then exit"},
	}
}

func sparkplugFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "qos", Value: 0, Usage: "subscription QoS for sparkplug topics"},
		&cli.StringSliceFlag{Name: "include-group", Usage: "restrict to this Sparkplug group (repeatable)"},
		&cli.StringFlag{Name: "include-topics-from-file", Usage: "file listing additional topics (accepted, but its contents are not read)"},
	}
}

func overridesFromContext(c *cli.Context) config.Overrides {
	o := config.Overrides{}
	setString(c, "host", &o.Host)
	setInt(c, "port", &o.Port)
	setString(c, "protocol", &o.Protocol)
	setString(c, "client-id", &o.ClientID)
	setString(c, "mqtt-version", &o.MQTTVersion)
	setDuration(c, "keep-alive", &o.KeepAlive)
	setString(c, "username", &o.Username)
	setString(c, "password", &o.Password)
	setBool(c, "use-tls", &o.UseTLS)
	setString(c, "ca-file", &o.CAFile)
	setString(c, "client-cert", &o.ClientCert)
	setString(c, "client-key", &o.ClientKey)
	setString(c, "tls-version", &o.TLSVersion)
	setString(c, "last-will-topic", &o.WillTopic)
	setString(c, "last-will-payload", &o.WillPayload)
	setInt(c, "last-will-qos", &o.WillQoS)
	setBool(c, "last-will-retain", &o.WillRetain)
	setString(c, "log-level", &o.LogLevel)
	return o
}

func setString(c *cli.Context, name string, dst **string) {
	if c.IsSet(name) {
		v := c.String(name)
		*dst = &v
	}
}

func setInt(c *cli.Context, name string, dst **int) {
	if c.IsSet(name) {
		v := c.Int(name)
		*dst = &v
	}
}

func setBool(c *cli.Context, name string, dst **bool) {
	if c.IsSet(name) {
		v := c.Bool(name)
		*dst = &v
	}
}

func setDuration(c *cli.Context, name string, dst **time.Duration) {
	if c.IsSet(name) {
		d := c.Duration(name)
		*dst = &d
	}
}

// loadConfig applies the CLI > ENV > YAML > defaults chain (spec §6) and
// validates the result.
func loadConfig(c *cli.Context, mode config.Mode) (config.Config, error) {
	cfg, err := config.LoadYAML(c.String("config-file"))
	if err != nil {
		return config.Config{}, err
	}
	cfg = config.ApplyEnv(cfg, osEnvLookup)
	cfg = config.ApplyCLI(cfg, overridesFromContext(c))
	cfg.Mode = mode

	if mode == config.ModeSparkplug {
		cfg.Sparkplug = config.SparkplugOptions{
			QoS:                   c.Int("qos"),
			IncludeGroups:         c.StringSlice("include-group"),
			IncludeTopicsFromFile: c.String("include-topics-from-file"),
		}
	}

	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func osEnvLookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

func runWithConfig(c *cli.Context, cfg config.Config) error {
	logger := log.New(cfg.LogLevel)

	built, err := app.Build(cfg, logger)
	if err != nil {
		return cli.Exit(err.Error(), app.ExitConfigError)
	}

	if c.Bool("dry-run") {
		lastExitCode = app.ExitOK
		return nil
	}

	lastExitCode = built.Run(context.Background(), cfg)
	return nil
}

func defaultAction(c *cli.Context) error {
	cfg, err := loadConfig(c, config.ModeDefault)
	if err != nil {
		return cli.Exit(err.Error(), app.ExitConfigError)
	}
	return runWithConfig(c, cfg)
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "publish to the topics configured in the config file's publish sections",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c, config.ModePublish)
			if err != nil {
				return cli.Exit(err.Error(), app.ExitConfigError)
			}
			return runWithConfig(c, cfg)
		},
	}
}

func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:  "subscribe",
		Usage: "subscribe to the topics configured in the config file's subscription sections",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c, config.ModeSubscribe)
			if err != nil {
				return cli.Exit(err.Error(), app.ExitConfigError)
			}
			return runWithConfig(c, cfg)
		},
	}
}

func sparkplugCommand() *cli.Command {
	return &cli.Command{
		Name:    "sp",
		Aliases: []string{"sparkplug"},
		Usage:   "run Sparkplug B network mode: decode and render spBv1.0/# traffic",
		Flags:   sparkplugFlags(),
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c, config.ModeSparkplug)
			if err != nil {
				return cli.Exit(err.Error(), app.ExitConfigError)
			}
			return runWithConfig(c, cfg)
		},
	}
}
