package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/senomorf/oracle-freetier-instance-creation/internal/cloud"
	"github.com/senomorf/oracle-freetier-instance-creation/internal/cloud/oci"
	"github.com/senomorf/oracle-freetier-instance-creation/internal/config"
	"github.com/senomorf/oracle-freetier-instance-creation/internal/keygen"
	"github.com/senomorf/oracle-freetier-instance-creation/internal/notifications"
	"github.com/senomorf/oracle-freetier-instance-creation/internal/provision"
)

// State polling bounds after a launch is accepted.
const (
	statePollAttempts = 30
	statePollInterval = 10 * time.Second
)

// Options configures one provisioning run.
type Options struct {
	// EnvFile is the oci.env path; empty uses the default.
	EnvFile string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// ModeOverride forces the operating mode regardless of the configured
	// MODE: config.ModeOnce, config.ModePolling, or empty to respect the
	// configuration.
	ModeOverride string

	// MarkerPath overrides where the success marker lives; empty uses the
	// default next to the working directory.
	MarkerPath string
}

// Run executes the end-to-end provisioning workflow: load configuration,
// initialize the OCI clients, resolve launch parameters, then drive the retry
// controller until a terminal outcome.
//
// The returned result always carries a meaningful exit code; the error adds
// diagnostic detail for the log and is non-nil for configuration failures and
// context cancellation.
func Run(ctx context.Context, opts Options) (provision.Result, error) {
	// 1. Load configuration. Failures here are written to the error log
	// artifact so they survive the fatal exit.
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		config.WriteErrorLog(err)
		SetupLogger(opts.LogLevel, SetupLogFile).Error("Configuration is invalid", "error", err)
		return provision.Fatal(err.Error()), err
	}

	setupLog := SetupLogger(opts.LogLevel, SetupLogFile)
	logger := SetupLogger(opts.LogLevel, MainLogFile).With("display_name", cfg.DisplayName)

	mode := resolveMode(cfg, opts.ModeOverride)
	logger.Info("Starting instance provisioning workflow",
		"shape", cfg.ComputeShape,
		"mode", mode.String())

	// 2. Notification channels are built early so setup failures can be
	// reported through them too.
	dispatcher := &notifications.Dispatcher{
		Channels: buildChannels(cfg),
		Logger:   logger,
	}

	fatal := func(err error) (provision.Result, error) {
		res := provision.Fatal(err.Error())
		logger.Error("Provisioning setup failed", "error", err)
		dispatcher.Notify(res, provision.RunState{})
		return res, err
	}

	// 3. Durable idempotency gate before any provider call.
	marker := provision.NewMarker(opts.MarkerPath)
	if marker.Exists() {
		rec, readErr := marker.Read()
		instanceID := ""
		if readErr == nil {
			instanceID = rec.InstanceID
		}
		logger.Info("Success marker present, nothing to do",
			"marker", marker.Path,
			"instance_id", instanceID)
		return provision.Existing(instanceID), nil
	}

	// 4. SSH key material, generated on first use.
	sshKey, err := keygen.ReadOrGeneratePublicKey(cfg.SSHAuthorizedKeysFile, setupLog)
	if err != nil {
		return fatal(fmt.Errorf("ssh key setup: %w", err))
	}

	// 5. OCI clients with local retries for transient transport glitches.
	client := &oci.Client{
		ConfigPath: cfg.OCIConfigPath,
		RetryConfig: cloud.RetryConfig{
			MaxRetries:       3,
			BaseDelay:        2 * time.Second,
			MaxDelay:         10 * time.Second,
			OperationTimeout: 30 * time.Second,
		},
	}
	setupLog.Debug("Connecting to OCI", "config", cfg.OCIConfigPath)
	if err := client.NewClient(); err != nil {
		// An unreadable or incomplete OCI config file is a configuration
		// failure and gets the same error artifact as oci.env problems.
		err = fmt.Errorf("client initialization: %w", err)
		config.WriteErrorLog(err)
		return fatal(err)
	}
	setupLog.Info("OCI clients initialized", "tenancy", client.Tenancy)

	// 6. Resolve launch parameters.
	req, err := buildRequest(ctx, cfg, client, sshKey, setupLog)
	if err != nil {
		return fatal(err)
	}

	// 7. Drive the retry controller.
	controller := &provision.Controller{
		Runner: &provision.Executor{
			API:               client,
			PollAttempts:      statePollAttempts,
			PollInterval:      statePollInterval,
			StalledAsCapacity: cfg.TreatStalledAsCapacity,
			ExistingLimit:     existingLimit(cfg),
			Logger:            logger,
		},
		Notifier:            dispatcher,
		Marker:              marker,
		WaitTime:            time.Duration(cfg.WaitTimeSecs) * time.Second,
		CapacityNotifyEvery: cfg.CapacityNotifyEvery,
		Logger:              logger,
	}

	return controller.Run(ctx, req, mode)
}

// existingLimit tolerates one pre-existing E2.1.Micro when a second one is
// requested; every other shape stops at the first match.
func existingLimit(cfg *config.Config) int {
	if cfg.SecondMicroInstance && cfg.ComputeShape == provision.MicroShape {
		return 2
	}
	return 1
}

func resolveMode(cfg *config.Config, override string) provision.Mode {
	mode := cfg.Mode
	if override != "" {
		mode = override
	}
	if mode == config.ModeOnce {
		return provision.ModeOnce
	}
	return provision.ModePolling
}

// buildRequest resolves availability domains, subnet and image, then
// assembles and normalizes the immutable launch request.
func buildRequest(ctx context.Context, cfg *config.Config, client *oci.Client, sshKey string, log *slog.Logger) (*provision.Request, error) {
	ads, err := client.ResolveAvailabilityDomains(ctx, cfg.AvailabilityDomain)
	if err != nil {
		return nil, fmt.Errorf("resolving availability domains: %w", err)
	}
	log.Debug("Availability domains resolved", "domains", ads)

	subnetID, err := client.ResolveSubnet(ctx, cfg.SubnetID)
	if err != nil {
		return nil, fmt.Errorf("resolving subnet: %w", err)
	}
	log.Debug("Subnet resolved", "subnet_id", subnetID)

	imageID, err := client.ResolveImage(ctx, cfg.ImageID, cfg.OperatingSystem, cfg.OSVersion)
	if err != nil {
		return nil, fmt.Errorf("resolving image: %w", err)
	}
	log.Debug("Image resolved", "image_id", imageID)

	req := &provision.Request{
		AvailabilityDomains: ads,
		Shape:               cfg.ComputeShape,
		ImageID:             imageID,
		SubnetID:            subnetID,
		DisplayName:         cfg.DisplayName,
		SSHPublicKey:        sshKey,
		AssignPublicIP:      cfg.AssignPublicIP,
		BootVolumeSizeGB:    cfg.BootVolumeSizeGB,
	}
	if err := req.Normalize(); err != nil {
		return nil, fmt.Errorf("invalid launch request: %w", err)
	}
	return req, nil
}

// buildChannels assembles the configured notification transports.
func buildChannels(cfg *config.Config) []notifications.Channel {
	var channels []notifications.Channel
	if cfg.NotifyEmail {
		channels = append(channels, &notifications.Email{
			Address:  cfg.Email,
			Password: cfg.EmailPassword,
		})
	}
	if cfg.DiscordWebhook != "" {
		channels = append(channels, &notifications.Discord{
			WebhookURL: cfg.DiscordWebhook,
		})
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		channels = append(channels, &notifications.Telegram{
			BotToken: cfg.TelegramBotToken,
			ChatID:   cfg.TelegramChatID,
		})
	}
	return channels
}
