package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/senomorf/oracle-freetier-instance-creation/internal/provision"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oci.env")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeEnvFile(t, strings.Join([]string{
		`OCI_CONFIG=/home/user/.oci/config`,
		`DISPLAY_NAME=free-tier-arm`,
		`OCI_COMPUTE_SHAPE=VM.Standard.A1.Flex`,
		`REQUEST_WAIT_TIME_SECS=120`,
		`BOOT_VOLUME_SIZE=100`,
		`ASSIGN_PUBLIC_IP=true`,
		`NOTIFY_EMAIL=true`,
		`EMAIL=user@example.com`,
		`EMAIL_PASSWORD=secret`,
		`MODE=ONCE`,
		`CAPACITY_NOTIFY_EVERY=10`,
	}, "\n"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DisplayName != "free-tier-arm" {
		t.Errorf("DisplayName = %s", cfg.DisplayName)
	}
	if cfg.WaitTimeSecs != 120 {
		t.Errorf("WaitTimeSecs = %d, want 120 (weakly typed decode)", cfg.WaitTimeSecs)
	}
	if cfg.BootVolumeSizeGB != 100 {
		t.Errorf("BootVolumeSizeGB = %d, want 100", cfg.BootVolumeSizeGB)
	}
	if !cfg.AssignPublicIP {
		t.Error("AssignPublicIP = false, want true")
	}
	if !cfg.NotifyEmail {
		t.Error("NotifyEmail = false, want true")
	}
	if cfg.PollingMode() {
		t.Error("PollingMode() = true for MODE=ONCE")
	}
	if cfg.CapacityNotifyEvery != 10 {
		t.Errorf("CapacityNotifyEvery = %d, want 10", cfg.CapacityNotifyEvery)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeEnvFile(t, "DISPLAY_NAME=minimal\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ComputeShape != provision.ARMShape {
		t.Errorf("default shape = %s, want %s", cfg.ComputeShape, provision.ARMShape)
	}
	if cfg.BootVolumeSizeGB != provision.MinBootVolumeGB {
		t.Errorf("default boot volume = %d, want %d", cfg.BootVolumeSizeGB, provision.MinBootVolumeGB)
	}
	if !cfg.PollingMode() {
		t.Error("default mode must be polling")
	}
	if !cfg.TreatStalledAsCapacity {
		t.Error("stalled launches default to the capacity classification")
	}
	if cfg.WaitTimeSecs <= 0 {
		t.Errorf("WaitTimeSecs = %d, want a positive default", cfg.WaitTimeSecs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.env")); err == nil {
		t.Error("Load() on a missing file must fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "Happy path", mutate: func(c *Config) {}},
		{
			name:    "Unacceptable shape",
			mutate:  func(c *Config) { c.ComputeShape = "VM.Standard3.Flex" },
			wantErr: true,
		},
		{
			name:    "Missing display name",
			mutate:  func(c *Config) { c.DisplayName = "" },
			wantErr: true,
		},
		{
			name:    "Bad mode",
			mutate:  func(c *Config) { c.Mode = "SOMETIMES" },
			wantErr: true,
		},
		{
			name:   "Lowercase mode is normalized",
			mutate: func(c *Config) { c.Mode = "polling" },
		},
		{
			name:    "Spaces in value",
			mutate:  func(c *Config) { c.SubnetID = "ocid1.subnet .oc1" },
			wantErr: true,
		},
		{
			name:    "Email notify without credentials",
			mutate:  func(c *Config) { c.NotifyEmail = true; c.Email = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.DisplayName = "x"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
