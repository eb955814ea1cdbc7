package oci

import (
	"context"
	"fmt"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"
	"github.com/oracle/oci-go-sdk/v65/identity"
)

// ResolveAvailabilityDomains lists the tenancy's availability domains. When
// preferred is set it must be one of them, and the result is pinned to it;
// otherwise all domains are returned so attempts can cycle through them.
func (c *Client) ResolveAvailabilityDomains(ctx context.Context, preferred string) ([]string, error) {
	var resp identity.ListAvailabilityDomainsResponse
	err := c.executeWithRetry(ctx, "ListAvailabilityDomains", func(ctx context.Context) error {
		r, err := c.Identity.ListAvailabilityDomains(ctx, identity.ListAvailabilityDomainsRequest{
			CompartmentId: common.String(c.Tenancy),
		})
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(resp.Items))
	for _, ad := range resp.Items {
		names = append(names, deref(ad.Name))
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("tenancy has no availability domains")
	}

	if preferred == "" {
		return names, nil
	}
	for _, name := range names {
		if name == preferred {
			return []string{preferred}, nil
		}
	}
	return nil, fmt.Errorf("availability domain %s not found (have %v)", preferred, names)
}

// ResolveSubnet returns the configured subnet id, or auto-discovers one:
// the first public subnet of the tenancy's first VCN.
func (c *Client) ResolveSubnet(ctx context.Context, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	var vcns core.ListVcnsResponse
	err := c.executeWithRetry(ctx, "ListVcns", func(ctx context.Context) error {
		r, err := c.Network.ListVcns(ctx, core.ListVcnsRequest{
			CompartmentId: common.String(c.Tenancy),
		})
		if err != nil {
			return err
		}
		vcns = r
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(vcns.Items) == 0 {
		return "", fmt.Errorf("no VCNs found in tenancy")
	}

	var subnets core.ListSubnetsResponse
	err = c.executeWithRetry(ctx, "ListSubnets", func(ctx context.Context) error {
		r, err := c.Network.ListSubnets(ctx, core.ListSubnetsRequest{
			CompartmentId: common.String(c.Tenancy),
			VcnId:         vcns.Items[0].Id,
		})
		if err != nil {
			return err
		}
		subnets = r
		return nil
	})
	if err != nil {
		return "", err
	}

	for _, subnet := range subnets.Items {
		if subnet.ProhibitPublicIpOnVnic != nil && !*subnet.ProhibitPublicIpOnVnic {
			return deref(subnet.Id), nil
		}
	}
	return "", fmt.Errorf("no public subnets found in VCN %s", deref(vcns.Items[0].Id))
}

// ResolveImage returns the configured image id, or the newest image matching
// the operating system and version.
func (c *Client) ResolveImage(ctx context.Context, configured, operatingSystem, osVersion string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if operatingSystem == "" || osVersion == "" {
		return "", fmt.Errorf("either OCI_IMAGE_ID or OPERATING_SYSTEM and OS_VERSION must be set")
	}

	var images core.ListImagesResponse
	err := c.executeWithRetry(ctx, "ListImages", func(ctx context.Context) error {
		r, err := c.Compute.ListImages(ctx, core.ListImagesRequest{
			CompartmentId:          common.String(c.Tenancy),
			OperatingSystem:        common.String(operatingSystem),
			OperatingSystemVersion: common.String(osVersion),
			SortBy:                 core.ListImagesSortByTimecreated,
			SortOrder:              core.ListImagesSortOrderDesc,
		})
		if err != nil {
			return err
		}
		images = r
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(images.Items) == 0 {
		return "", fmt.Errorf("no images found for %s %s", operatingSystem, osVersion)
	}
	return deref(images.Items[0].Id), nil
}
