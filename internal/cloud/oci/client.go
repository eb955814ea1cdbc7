package oci

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"
	"github.com/oracle/oci-go-sdk/v65/identity"

	"github.com/senomorf/oracle-freetier-instance-creation/internal/cloud"
)

// Client manages the service clients for Oracle Cloud interactions. It wraps
// the SDK clients with retry logic for transient transport failures; service
// errors pass through untouched so the outcome classifier sees them.
type Client struct {
	// ConfigPath points at the OCI SDK config file. Empty falls back to the
	// SDK default (~/.oci/config).
	ConfigPath string

	// RetryConfig defines the behavior for transient error handling.
	RetryConfig cloud.RetryConfig

	// Tenancy is the compartment all operations target, taken from the
	// config file during NewClient.
	Tenancy string

	Compute  core.ComputeClient
	Network  core.VirtualNetworkClient
	Identity identity.IdentityClient
}

// executeWithRetry runs an operation using the client's retry configuration.
func (c *Client) executeWithRetry(ctx context.Context, opName string, operation func(ctx context.Context) error) error {
	cfg := c.RetryConfig
	if cfg.Retryable == nil {
		cfg.Retryable = IsRetryable
	}
	return cloud.ExecuteAction(ctx, cfg, opName, operation)
}

// GetCloudProviderName returns the identifier for this provider.
func (c *Client) GetCloudProviderName() string {
	return "oci"
}

// NewClient loads the SDK configuration and initializes the compute, network
// and identity service clients.
func (c *Client) NewClient() error {
	slog.Debug("Initializing OCI client", "config", c.ConfigPath)

	var provider common.ConfigurationProvider
	var err error
	if c.ConfigPath != "" {
		provider, err = common.ConfigurationProviderFromFile(c.ConfigPath, "")
		if err != nil {
			return fmt.Errorf("failed to load OCI config %s: %w", c.ConfigPath, err)
		}
	} else {
		provider = common.DefaultConfigProvider()
	}

	// The user entry doubles as a config sanity check: a file without
	// credentials fails here instead of on the first API call.
	if _, err := provider.UserOCID(); err != nil {
		return fmt.Errorf("OCI config has no user entry: %w", err)
	}

	tenancy, err := provider.TenancyOCID()
	if err != nil {
		return fmt.Errorf("OCI config has no tenancy entry: %w", err)
	}
	c.Tenancy = tenancy

	compute, err := core.NewComputeClientWithConfigurationProvider(provider)
	if err != nil {
		return fmt.Errorf("failed to initialize compute client: %w", err)
	}

	network, err := core.NewVirtualNetworkClientWithConfigurationProvider(provider)
	if err != nil {
		return fmt.Errorf("failed to initialize virtual network client: %w", err)
	}

	iam, err := identity.NewIdentityClientWithConfigurationProvider(provider)
	if err != nil {
		return fmt.Errorf("failed to initialize identity client: %w", err)
	}

	c.Compute = compute
	c.Network = network
	c.Identity = iam

	return nil
}
