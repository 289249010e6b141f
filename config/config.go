package config

import (
	"errors"
	"fmt"
	"github.com/shimmeringbee/cda"
	"github.com/shimmeringbee/cda/api"
	"github.com/shimmeringbee/cda/rules"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/discard"
	"github.com/shimmeringbee/logwrap/impl/filter"
	"gopkg.in/yaml.v3"
	"os"
	"strings"
	"time"
)

type Config struct {
	BaseURL      string `yaml:"base_url"`
	AccessToken  string `yaml:"access_token"`
	Mode         string `yaml:"mode"`
	WebhookToken string `yaml:"webhook_token"`
	RelayURL     string `yaml:"relay_url"`

	WebhookListen string `yaml:"webhook_listen"`
	APIListen     string `yaml:"api_listen"`

	PollSeconds        int    `yaml:"poll_seconds"`
	PollSensorsSeconds int    `yaml:"poll_sensors_seconds"`
	RetryMinutes       int    `yaml:"retry_minutes"`
	CommandBody        string `yaml:"command_body"`
	PersistencePath    string `yaml:"persistence_path"`

	Exclude       []Exclusion `yaml:"exclude"`
	IgnoreDevices []string    `yaml:"ignore_devices"`

	MQTT    MQTT    `yaml:"mqtt"`
	Logging Logging `yaml:"logging"`
}

// Exclusion is an expression over Device, Component and Capability that
// removes matching capabilities before service resolution.
type Exclusion struct {
	Description string `yaml:"description"`
	Filter      string `yaml:"filter"`
}

type MQTT struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         int    `yaml:"qos"`
	Retained    bool   `yaml:"retained"`
}

type Logging struct {
	Level string `yaml:"level"`
}

var logLevels = map[string]logwrap.LogLevel{
	"error": logwrap.Error,
	"warn":  logwrap.Warn,
	"info":  logwrap.Info,
	"debug": logwrap.Debug,
	"trace": logwrap.Trace,
}

// Wrap filters impl to messages at or above the configured level, "off"
// discards everything.
func (l Logging) Wrap(impl logwrap.Impl) (logwrap.Impl, error) {
	name := strings.ToLower(strings.TrimSpace(l.Level))

	if name == "off" {
		return discard.Discard(), nil
	}

	level, found := logLevels[name]
	if !found {
		return nil, fmt.Errorf("%w: unknown logging level %q", cda.ErrConfiguration, l.Level)
	}

	return filter.Filter(impl, func(m logwrap.Message) bool {
		return m.Level <= level
	}), nil
}

func Default() *Config {
	return &Config{
		BaseURL:            api.DefaultBaseURL,
		APIListen:          ":8080",
		PollSeconds:        int(cda.DefaultPollInterval / time.Second),
		PollSensorsSeconds: int(cda.DefaultSensorPollInterval / time.Second),
		RetryMinutes:       1,
		CommandBody:        "wrapped",
		PersistencePath:    "cda-devices.json",
		MQTT: MQTT{
			ClientID:    "cda-bridge",
			TopicPrefix: "cda",
		},
		Logging: Logging{Level: "info"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config file: %w", cda.ErrConfiguration, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CDA_ACCESS_TOKEN"); v != "" {
		cfg.AccessToken = v
	}
	if v := os.Getenv("CDA_WEBHOOK_TOKEN"); v != "" {
		cfg.WebhookToken = v
	}
	if v := os.Getenv("CDA_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("CDA_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
}

// ResolveMode picks the operating mode: an explicit mode wins, then a webhook
// token selects the relay subscription, then a webhook listen address selects
// the local webhook, otherwise devices are polled.
func (c *Config) ResolveMode() (cda.Mode, error) {
	switch {
	case c.Mode != "":
		return cda.ParseMode(c.Mode)
	case c.WebhookToken != "":
		return cda.ModePushSubscription, nil
	case c.WebhookListen != "":
		return cda.ModePushWebhook, nil
	default:
		return cda.ModePolling, nil
	}
}

func (c *Config) Validate() error {
	var errs []error

	if c.AccessToken == "" {
		errs = append(errs, errors.New("access_token is required (set CDA_ACCESS_TOKEN)"))
	}

	mode, err := c.ResolveMode()
	if err != nil {
		errs = append(errs, err)
	}

	switch {
	case err != nil:
	case mode == cda.ModePushSubscription && c.RelayURL == "":
		errs = append(errs, errors.New("relay_url is required in subscription mode"))
	case mode == cda.ModePushSubscription && c.WebhookToken == "":
		errs = append(errs, errors.New("webhook_token is required in subscription mode (set CDA_WEBHOOK_TOKEN)"))
	case mode == cda.ModePushWebhook && c.WebhookListen == "":
		errs = append(errs, errors.New("webhook_listen is required in webhook mode"))
	}

	if c.PollSeconds < 0 || c.PollSensorsSeconds < 0 {
		errs = append(errs, errors.New("poll intervals must not be negative"))
	}

	if c.RetryMinutes < 1 {
		errs = append(errs, errors.New("retry_minutes must be at least 1"))
	}

	if _, err := api.ParseCommandBody(c.CommandBody); err != nil {
		errs = append(errs, err)
	}

	if _, err := c.Logging.Wrap(discard.Discard()); err != nil {
		errs = append(errs, err)
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, errors.New("mqtt.qos must be 0, 1, or 2"))
	}

	if _, err := rules.NewEngine(c.Rules()); err != nil {
		errs = append(errs, fmt.Errorf("exclude: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", cda.ErrConfiguration, errors.Join(errs...))
	}

	return nil
}

// Rules converts the exclusions for the rules engine.
func (c *Config) Rules() []rules.Rule {
	var out []rules.Rule

	for _, e := range c.Exclude {
		if strings.TrimSpace(e.Filter) == "" {
			continue
		}
		out = append(out, rules.Rule{Description: e.Description, Filter: e.Filter})
	}

	return out
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

func (c *Config) SensorPollInterval() time.Duration {
	return time.Duration(c.PollSensorsSeconds) * time.Second
}

func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.RetryMinutes) * time.Minute
}
