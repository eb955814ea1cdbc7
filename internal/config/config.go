// Package config loads and validates the oci.env configuration file that
// drives instance provisioning.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"

	"github.com/senomorf/oracle-freetier-instance-creation/internal/provision"
)

// DefaultEnvFile is the configuration file read when no override is given.
const DefaultEnvFile = "oci.env"

// ErrorLogFile receives the validation failure detail so it can be inspected
// after the process has exited fatally.
const ErrorLogFile = "ERROR_IN_CONFIG.log"

// Operating modes.
const (
	ModePolling = "POLLING"
	ModeOnce    = "ONCE"
)

// Config is the full configuration surface, hydrated from oci.env.
// Fields left unset keep the defaults applied in Load.
type Config struct {
	// OCIConfigPath points at the SDK config file (~/.oci/config style).
	OCIConfigPath string `env:"OCI_CONFIG"`

	// AvailabilityDomain pins attempts to one AD. Empty cycles through all.
	AvailabilityDomain string `env:"OCT_FREE_AD"`

	DisplayName  string `env:"DISPLAY_NAME"`
	WaitTimeSecs int    `env:"REQUEST_WAIT_TIME_SECS"`

	SSHAuthorizedKeysFile string `env:"SSH_AUTHORIZED_KEYS_FILE"`

	ImageID             string `env:"OCI_IMAGE_ID"`
	ComputeShape        string `env:"OCI_COMPUTE_SHAPE"`
	SecondMicroInstance bool   `env:"SECOND_MICRO_INSTANCE"`
	SubnetID            string `env:"OCI_SUBNET_ID"`
	OperatingSystem     string `env:"OPERATING_SYSTEM"`
	OSVersion           string `env:"OS_VERSION"`
	AssignPublicIP      bool   `env:"ASSIGN_PUBLIC_IP"`
	BootVolumeSizeGB    int64  `env:"BOOT_VOLUME_SIZE"`

	NotifyEmail      bool   `env:"NOTIFY_EMAIL"`
	Email            string `env:"EMAIL"`
	EmailPassword    string `env:"EMAIL_PASSWORD"`
	DiscordWebhook   string `env:"DISCORD_WEBHOOK"`
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `env:"TELEGRAM_CHAT_ID"`

	Mode string `env:"MODE"`

	// CapacityNotifyEvery throttles capacity notifications to every Nth
	// exhausted attempt; 0 notifies only on terminal outcomes.
	CapacityNotifyEvery int `env:"CAPACITY_NOTIFY_EVERY"`

	// TreatStalledAsCapacity controls classification of a launch that never
	// reaches RUNNING within the polling window.
	TreatStalledAsCapacity bool `env:"TREAT_STALLED_AS_CAPACITY"`
}

func defaults() Config {
	return Config{
		ComputeShape:           provision.ARMShape,
		BootVolumeSizeGB:       provision.MinBootVolumeGB,
		WaitTimeSecs:           60,
		Mode:                   ModePolling,
		TreatStalledAsCapacity: true,
	}
}

// Load reads the env file and decodes it over the defaults. Values are
// weakly typed: "true"/"50" strings become bools and ints the same way the
// metadata decoding does elsewhere in the codebase.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultEnvFile
	}

	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := defaults()

	decoderConfig := &mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		TagName:          "env",
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(trimValues(env)); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// trimValues strips surrounding whitespace; the no-spaces rule is enforced
// separately in Validate.
func trimValues(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = strings.TrimSpace(v)
	}
	return out
}

// Validate enforces the configuration invariants: an acceptable free-tier
// shape, a display name, a sane mode, and no embedded spaces in values that
// end up in API calls or file paths.
func (c *Config) Validate() error {
	if c.ComputeShape != provision.ARMShape && c.ComputeShape != provision.MicroShape {
		return fmt.Errorf("%s is not an acceptable shape (want %s or %s)",
			c.ComputeShape, provision.ARMShape, provision.MicroShape)
	}

	if c.DisplayName == "" {
		return fmt.Errorf("DISPLAY_NAME must be set")
	}

	switch strings.ToUpper(c.Mode) {
	case ModePolling, ModeOnce:
		c.Mode = strings.ToUpper(c.Mode)
	default:
		return fmt.Errorf("MODE %q is not acceptable (want %s or %s)", c.Mode, ModePolling, ModeOnce)
	}

	for field, value := range map[string]string{
		"OCI_CONFIG":               c.OCIConfigPath,
		"OCT_FREE_AD":              c.AvailabilityDomain,
		"SSH_AUTHORIZED_KEYS_FILE": c.SSHAuthorizedKeysFile,
		"OCI_IMAGE_ID":             c.ImageID,
		"OCI_COMPUTE_SHAPE":        c.ComputeShape,
		"OCI_SUBNET_ID":            c.SubnetID,
		"OS_VERSION":               c.OSVersion,
		"EMAIL":                    c.Email,
		"DISCORD_WEBHOOK":          c.DiscordWebhook,
	} {
		if strings.Contains(value, " ") {
			return fmt.Errorf("%s has spaces in its value which is not acceptable", field)
		}
	}

	if c.WaitTimeSecs <= 0 {
		c.WaitTimeSecs = 60
	}

	if c.NotifyEmail && (c.Email == "" || c.EmailPassword == "") {
		return fmt.Errorf("NOTIFY_EMAIL is enabled but EMAIL or EMAIL_PASSWORD is missing")
	}

	return nil
}

// PollingMode reports whether the retry loop runs in-process.
func (c *Config) PollingMode() bool {
	return c.Mode == ModePolling
}

// WriteErrorLog persists the configuration failure for post-mortem
// inspection, best-effort.
func WriteErrorLog(err error) {
	_ = os.WriteFile(ErrorLogFile, []byte(err.Error()+"\n"), 0o644)
}
