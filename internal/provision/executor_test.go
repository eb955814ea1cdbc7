package provision

import (
	"context"
	"testing"
	"time"
)

// fakeComputeAPI records call ordering and scripts responses.
type fakeComputeAPI struct {
	calls []string

	existing []InstanceInfo
	findErr  error
	// existingAfterLaunch is returned by existence checks that happen after
	// the first launch call (the LimitExceeded re-check path).
	existingAfterLaunch []InstanceInfo

	launchErr error
	launched  InstanceInfo

	states   []string
	stateErr error
	statePos int
}

func (f *fakeComputeAPI) FindMatchingInstances(ctx context.Context, shape string) ([]InstanceInfo, error) {
	f.calls = append(f.calls, "find")
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.launchCount() > 0 {
		return f.existingAfterLaunch, nil
	}
	return f.existing, nil
}

func (f *fakeComputeAPI) LaunchInstance(ctx context.Context, req *Request, ad string) (InstanceInfo, error) {
	f.calls = append(f.calls, "launch")
	if f.launchErr != nil {
		return InstanceInfo{}, f.launchErr
	}
	return f.launched, nil
}

func (f *fakeComputeAPI) GetInstanceState(ctx context.Context, id string) (string, error) {
	f.calls = append(f.calls, "state")
	if f.stateErr != nil {
		return "", f.stateErr
	}
	state := f.states[f.statePos]
	if f.statePos < len(f.states)-1 {
		f.statePos++
	}
	return state, nil
}

func (f *fakeComputeAPI) launchCount() int {
	n := 0
	for _, c := range f.calls {
		if c == "launch" {
			n++
		}
	}
	return n
}

// countingSleeper records sleeps without actually sleeping.
type countingSleeper struct {
	count int
}

func (s *countingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.count++
	return nil
}

func newExecutor(api ComputeAPI, sleeper *countingSleeper) *Executor {
	return &Executor{
		API:               api,
		PollAttempts:      3,
		PollInterval:      10 * time.Second,
		StalledAsCapacity: true,
		Sleep:             sleeper.sleep,
	}
}

func TestExecutorExistenceCheckBeforeLaunch(t *testing.T) {
	api := &fakeComputeAPI{existing: []InstanceInfo{{ID: "ocid1.instance.oc1..x", State: StateRunning}}}
	req := validRequest()

	res := newExecutor(api, &countingSleeper{}).Execute(context.Background(), &req, 0)

	if res.Kind != KindAlreadyExists {
		t.Fatalf("result = %v, want AlreadyExists", res.Kind)
	}
	if res.InstanceID != "ocid1.instance.oc1..x" {
		t.Errorf("instance id = %s, want existing id", res.InstanceID)
	}
	if len(api.calls) != 1 || api.calls[0] != "find" {
		t.Errorf("calls = %v, want existence check only, before any launch", api.calls)
	}
}

func TestExecutorIdempotence(t *testing.T) {
	api := &fakeComputeAPI{existing: []InstanceInfo{{ID: "ocid1.instance.oc1..x", State: StateRunning}}}
	exec := newExecutor(api, &countingSleeper{})
	req := validRequest()

	for i := 0; i < 2; i++ {
		res := exec.Execute(context.Background(), &req, i)
		if res.Kind != KindAlreadyExists {
			t.Fatalf("execution %d: result = %v, want AlreadyExists", i+1, res.Kind)
		}
	}
	if api.launchCount() != 0 {
		t.Errorf("launch called %d times against an existing instance, want 0", api.launchCount())
	}
}

func TestExecutorLaunchThenRunning(t *testing.T) {
	api := &fakeComputeAPI{
		launched: InstanceInfo{ID: "ocid1.instance.oc1..new"},
		states:   []string{StateProvisioning, StateStarting, StateRunning},
	}
	sleeper := &countingSleeper{}
	req := validRequest()

	res := newExecutor(api, sleeper).Execute(context.Background(), &req, 0)

	if res.Kind != KindSuccess {
		t.Fatalf("result = %v (%s), want Success", res.Kind, res.Reason)
	}
	if res.InstanceID != "ocid1.instance.oc1..new" {
		t.Errorf("instance id = %s, want launched id", res.InstanceID)
	}
	if sleeper.count != 2 {
		t.Errorf("inter-poll sleeps = %d, want 2", sleeper.count)
	}
}

func TestExecutorCapacityErrorOnLaunch(t *testing.T) {
	api := &fakeComputeAPI{
		launchErr: fakeServiceError{status: 500, code: "InternalError", message: "Out of host capacity."},
	}
	req := validRequest()

	res := newExecutor(api, &countingSleeper{}).Execute(context.Background(), &req, 0)

	if res.Kind != KindCapacityExhausted {
		t.Fatalf("result = %v, want CapacityExhausted", res.Kind)
	}
}

func TestExecutorFatalErrorOnLaunch(t *testing.T) {
	api := &fakeComputeAPI{
		launchErr: fakeServiceError{status: 401, code: "NotAuthenticated", message: "bad key"},
	}
	req := validRequest()

	res := newExecutor(api, &countingSleeper{}).Execute(context.Background(), &req, 0)

	if res.Kind != KindFatal {
		t.Fatalf("result = %v, want Fatal", res.Kind)
	}
}

func TestExecutorLimitExceededRecheck(t *testing.T) {
	api := &fakeComputeAPI{
		launchErr:           fakeServiceError{status: 400, code: "LimitExceeded", message: "limit hit"},
		existingAfterLaunch: []InstanceInfo{{ID: "ocid1.instance.oc1..appeared", State: StateProvisioning}},
	}
	req := validRequest()

	res := newExecutor(api, &countingSleeper{}).Execute(context.Background(), &req, 0)

	if res.Kind != KindSuccess {
		t.Fatalf("result = %v, want Success when the instance appeared despite LimitExceeded", res.Kind)
	}
	if res.InstanceID != "ocid1.instance.oc1..appeared" {
		t.Errorf("instance id = %s, want re-checked id", res.InstanceID)
	}
}

func TestExecutorSecondMicroInstance(t *testing.T) {
	one := InstanceInfo{ID: "ocid1.instance.oc1..first", State: StateRunning}
	two := InstanceInfo{ID: "ocid1.instance.oc1..second", State: StateRunning}

	t.Run("One existing micro does not block the second", func(t *testing.T) {
		api := &fakeComputeAPI{
			existing: []InstanceInfo{one},
			launched: InstanceInfo{ID: two.ID},
			states:   []string{StateRunning},
		}
		exec := newExecutor(api, &countingSleeper{})
		exec.ExistingLimit = 2
		req := validRequest()
		req.Shape = MicroShape

		res := exec.Execute(context.Background(), &req, 0)
		if res.Kind != KindSuccess {
			t.Fatalf("result = %v, want Success past one existing instance", res.Kind)
		}
		if api.launchCount() != 1 {
			t.Errorf("launch called %d times, want 1", api.launchCount())
		}
	})

	t.Run("Two existing micros short-circuit", func(t *testing.T) {
		api := &fakeComputeAPI{existing: []InstanceInfo{one, two}}
		exec := newExecutor(api, &countingSleeper{})
		exec.ExistingLimit = 2
		req := validRequest()
		req.Shape = MicroShape

		res := exec.Execute(context.Background(), &req, 0)
		if res.Kind != KindAlreadyExists {
			t.Fatalf("result = %v, want AlreadyExists at the limit", res.Kind)
		}
		if res.InstanceID != two.ID {
			t.Errorf("instance id = %s, want the newest match", res.InstanceID)
		}
		if api.launchCount() != 0 {
			t.Errorf("launch called %d times, want 0", api.launchCount())
		}
	})
}

func TestExecutorStalledLaunch(t *testing.T) {
	tests := []struct {
		name              string
		stalledAsCapacity bool
		want              Kind
	}{
		{"Stalled treated as capacity", true, KindCapacityExhausted},
		{"Stalled treated as fatal", false, KindFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeComputeAPI{
				launched: InstanceInfo{ID: "ocid1.instance.oc1..stuck"},
				states:   []string{StateProvisioning},
			}
			exec := newExecutor(api, &countingSleeper{})
			exec.StalledAsCapacity = tt.stalledAsCapacity
			req := validRequest()

			res := exec.Execute(context.Background(), &req, 0)
			if res.Kind != tt.want {
				t.Errorf("result = %v, want %v", res.Kind, tt.want)
			}
			if res.Reason == "" {
				t.Error("stalled result must carry a reason")
			}
		})
	}
}
