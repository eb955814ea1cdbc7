package oci

import (
	"context"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/core"

	"github.com/senomorf/oracle-freetier-instance-creation/internal/provision"
)

// Client implements provision.ComputeAPI.
var _ provision.ComputeAPI = (*Client)(nil)

// FindMatchingInstances pages through the compartment's instances and
// collects the active ones with the given shape.
func (c *Client) FindMatchingInstances(ctx context.Context, shape string) ([]provision.InstanceInfo, error) {
	var matches []provision.InstanceInfo
	var page *string

	for {
		var resp core.ListInstancesResponse
		err := c.executeWithRetry(ctx, "ListInstances", func(ctx context.Context) error {
			r, err := c.Compute.ListInstances(ctx, core.ListInstancesRequest{
				CompartmentId: common.String(c.Tenancy),
				Page:          page,
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

		for _, inst := range resp.Items {
			if deref(inst.Shape) == shape && isActiveLifecycle(inst.LifecycleState) {
				matches = append(matches, provision.InstanceInfo{
					ID:          deref(inst.Id),
					DisplayName: deref(inst.DisplayName),
					State:       string(inst.LifecycleState),
				})
			}
		}

		if resp.OpcNextPage == nil {
			return matches, nil
		}
		page = resp.OpcNextPage
	}
}

// launchDetails assembles the launch payload for one attempt. Legacy IMDS
// endpoints stay enabled and the recovery action restores the instance after
// infrastructure maintenance; flex shapes additionally carry an explicit
// shape config with the BASELINE_1_1 utilization.
func launchDetails(req *provision.Request, availabilityDomain, tenancy string) core.LaunchInstanceDetails {
	details := core.LaunchInstanceDetails{
		AvailabilityDomain: common.String(availabilityDomain),
		CompartmentId:      common.String(tenancy),
		Shape:              common.String(req.Shape),
		DisplayName:        common.String(req.DisplayName),
		CreateVnicDetails: &core.CreateVnicDetails{
			AssignPublicIp:         common.Bool(req.AssignPublicIP),
			AssignPrivateDnsRecord: common.Bool(true),
			DisplayName:            common.String(req.DisplayName),
			SubnetId:               common.String(req.SubnetID),
		},
		AvailabilityConfig: &core.LaunchInstanceAvailabilityConfigDetails{
			RecoveryAction: core.LaunchInstanceAvailabilityConfigDetailsRecoveryActionRestoreInstance,
		},
		InstanceOptions: &core.InstanceOptions{
			AreLegacyImdsEndpointsDisabled: common.Bool(false),
		},
		SourceDetails: core.InstanceSourceViaImageDetails{
			ImageId:             common.String(req.ImageID),
			BootVolumeSizeInGBs: common.Int64(req.BootVolumeSizeGB),
		},
		Metadata: map[string]string{
			"ssh_authorized_keys": req.SSHPublicKey,
		},
	}

	if ocpus, memory, ok := req.ShapeConfig(); ok {
		details.ShapeConfig = &core.LaunchInstanceShapeConfigDetails{
			Ocpus:                   common.Float32(ocpus),
			MemoryInGBs:             common.Float32(memory),
			BaselineOcpuUtilization: core.LaunchInstanceShapeConfigDetailsBaselineOcpuUtilization1,
		}
	}

	return details
}

// LaunchInstance submits one launch call. Deliberately not wrapped in the
// local retry: a launch that times out on the wire may still have created an
// instance, and a blind retry could double-launch. The executor's existence
// check owns that race.
func (c *Client) LaunchInstance(ctx context.Context, req *provision.Request, availabilityDomain string) (provision.InstanceInfo, error) {
	resp, err := c.Compute.LaunchInstance(ctx, core.LaunchInstanceRequest{
		LaunchInstanceDetails: launchDetails(req, availabilityDomain, c.Tenancy),
	})
	if err != nil {
		return provision.InstanceInfo{}, err
	}

	return provision.InstanceInfo{
		ID:          deref(resp.Instance.Id),
		DisplayName: deref(resp.Instance.DisplayName),
		State:       string(resp.Instance.LifecycleState),
	}, nil
}

// GetInstanceState fetches the current lifecycle state of an instance.
func (c *Client) GetInstanceState(ctx context.Context, instanceID string) (string, error) {
	var state string
	err := c.executeWithRetry(ctx, "GetInstance", func(ctx context.Context) error {
		resp, err := c.Compute.GetInstance(ctx, core.GetInstanceRequest{
			InstanceId: common.String(instanceID),
		})
		if err != nil {
			return err
		}
		state = string(resp.Instance.LifecycleState)
		return nil
	})
	return state, err
}
