package provision

import "testing"

func validRequest() Request {
	return Request{
		AvailabilityDomains: []string{"AD-1", "AD-2", "AD-3"},
		Shape:               ARMShape,
		ImageID:             "ocid1.image.oc1..img",
		SubnetID:            "ocid1.subnet.oc1..sub",
		DisplayName:         "free-tier-arm",
		SSHPublicKey:        "ssh-rsa AAAA test",
		BootVolumeSizeGB:    100,
	}
}

func TestRequestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Request)
		wantErr bool
	}{
		{name: "Happy path", mutate: func(r *Request) {}},
		{name: "No availability domains", mutate: func(r *Request) { r.AvailabilityDomains = nil }, wantErr: true},
		{name: "No shape", mutate: func(r *Request) { r.Shape = "" }, wantErr: true},
		{name: "No image", mutate: func(r *Request) { r.ImageID = "" }, wantErr: true},
		{name: "No subnet", mutate: func(r *Request) { r.SubnetID = "" }, wantErr: true},
		{name: "No display name", mutate: func(r *Request) { r.DisplayName = "" }, wantErr: true},
		{name: "No ssh key", mutate: func(r *Request) { r.SSHPublicKey = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := req.Normalize()
			if (err != nil) != tt.wantErr {
				t.Errorf("Normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequestNormalizeClampsBootVolume(t *testing.T) {
	tests := []struct {
		name string
		size int64
		want int64
	}{
		{"Below floor is clamped", 20, MinBootVolumeGB},
		{"Zero is clamped", 0, MinBootVolumeGB},
		{"At floor unchanged", 50, 50},
		{"Above floor unchanged", 200, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			req.BootVolumeSizeGB = tt.size
			if err := req.Normalize(); err != nil {
				t.Fatalf("Normalize() unexpected error: %v", err)
			}
			if req.BootVolumeSizeGB != tt.want {
				t.Errorf("BootVolumeSizeGB = %d, want %d", req.BootVolumeSizeGB, tt.want)
			}
		})
	}
}

func TestRequestAvailabilityDomainCycles(t *testing.T) {
	req := validRequest()
	want := []string{"AD-1", "AD-2", "AD-3", "AD-1", "AD-2"}
	for attempt, ad := range want {
		if got := req.AvailabilityDomain(attempt); got != ad {
			t.Errorf("AvailabilityDomain(%d) = %s, want %s", attempt, got, ad)
		}
	}
}

func TestRequestShapeConfig(t *testing.T) {
	req := validRequest()

	ocpus, memory, ok := req.ShapeConfig()
	if !ok {
		t.Fatal("A1 Flex shape must have a shape config")
	}
	if ocpus != 1 || memory != 6 {
		t.Errorf("shape config = %v OCPUs / %v GB, want 1 / 6", ocpus, memory)
	}

	req.Shape = MicroShape
	if _, _, ok := req.ShapeConfig(); ok {
		t.Error("Micro shape must not have a shape config")
	}
}
