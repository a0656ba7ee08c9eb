package telephony

import (
	"context"
	"errors"
	"testing"

	"voicedesk/internal/config"
	"voicedesk/internal/events"
)

type stubClient struct {
	name      string
	simulated bool
	healthErr error
}

func (c *stubClient) Name() string                          { return c.name }
func (c *stubClient) Simulated() bool                       { return c.simulated }
func (c *stubClient) HealthCheck(context.Context) error     { return c.healthErr }
func (c *stubClient) CreateCall(context.Context, CallParams) (Dispatch, error) {
	return Dispatch{SID: "CA0", Status: "queued"}, nil
}
func (c *stubClient) CreateMessage(context.Context, MessageParams) (Dispatch, error) {
	return Dispatch{SID: "SM0", Status: "queued"}, nil
}
func (c *stubClient) CreateAccessToken(context.Context, TokenParams) (AccessToken, error) {
	return AccessToken{Token: "t", Simulated: c.simulated}, nil
}

func liveCreds() config.TwilioConfig {
	return config.TwilioConfig{AccountSID: "AC1", AuthToken: "tok"}
}

func TestResolver_NoCredentialsMeansSimulated(t *testing.T) {
	sim := &stubClient{name: "simulated", simulated: true}
	r := NewResolver(config.TwilioConfig{}, &stubClient{name: "twilio"}, sim, events.NewNotifier(nil), nil)

	cap := r.Resolve(context.Background())
	if cap.Mode != ModeSimulated {
		t.Fatalf("expected simulated mode, got %s", cap.Mode)
	}
	if cap.Reason == "" {
		t.Fatalf("expected a reason for simulated mode")
	}
	if r.Client() != Client(sim) {
		t.Fatalf("expected simulated client")
	}
}

func TestResolver_HealthyCredentialsGoLive(t *testing.T) {
	live := &stubClient{name: "twilio"}
	r := NewResolver(liveCreds(), live, &stubClient{simulated: true}, events.NewNotifier(nil), nil)

	cap := r.Resolve(context.Background())
	if cap.Mode != ModeLive {
		t.Fatalf("expected live mode, got %s (%s)", cap.Mode, cap.Reason)
	}
	if r.Client() != Client(live) {
		t.Fatalf("expected live client")
	}
}

func TestResolver_ProbeFailureDowngradesAndAnnounces(t *testing.T) {
	notifier := events.NewNotifier(nil)
	var downgrades []events.Event
	notifier.Subscribe(func(e events.Event) {
		if e.Type == events.EventModeDowngraded {
			downgrades = append(downgrades, e)
		}
	})

	live := &stubClient{name: "twilio", healthErr: errors.New("401 unauthorized")}
	r := NewResolver(liveCreds(), live, &stubClient{simulated: true}, notifier, nil)

	cap := r.Resolve(context.Background())
	if cap.Mode != ModeSimulated {
		t.Fatalf("expected simulated mode after probe failure")
	}
	if len(downgrades) != 1 || downgrades[0].Reason == "" {
		t.Fatalf("expected one mode_downgraded event with reason, got %v", downgrades)
	}
}

func TestResolver_ReportFailure_UnreachableDowngrades(t *testing.T) {
	notifier := events.NewNotifier(nil)
	downgraded := 0
	notifier.Subscribe(func(e events.Event) {
		if e.Type == events.EventModeDowngraded {
			downgraded++
		}
	})

	r := NewResolver(liveCreds(), &stubClient{}, &stubClient{simulated: true}, notifier, nil)
	if cap := r.Resolve(context.Background()); cap.Mode != ModeLive {
		t.Fatalf("setup: expected live")
	}

	r.ReportFailure(&ProviderError{Op: "create_call", Unreachable: true, Message: "dial tcp: timeout"})

	if cap := r.Capability(); cap.Mode != ModeSimulated {
		t.Fatalf("expected downgrade after unreachable failure")
	}
	if downgraded != 1 {
		t.Fatalf("expected one downgrade event, got %d", downgraded)
	}
}

func TestResolver_ReportFailure_RequestRejectionKeepsLive(t *testing.T) {
	r := NewResolver(liveCreds(), &stubClient{}, &stubClient{simulated: true}, events.NewNotifier(nil), nil)
	r.Resolve(context.Background())

	r.ReportFailure(&ProviderError{Op: "create_call", StatusCode: 400, Message: "invalid number"})
	r.ReportFailure(errors.New("some unrelated error"))

	if cap := r.Capability(); cap.Mode != ModeLive {
		t.Fatalf("request rejection must not downgrade, got %s", cap.Mode)
	}
}

func TestResolver_ReportFailure_AlreadySimulatedNoDuplicateEvent(t *testing.T) {
	notifier := events.NewNotifier(nil)
	downgraded := 0
	notifier.Subscribe(func(e events.Event) {
		if e.Type == events.EventModeDowngraded {
			downgraded++
		}
	})

	r := NewResolver(config.TwilioConfig{}, nil, &stubClient{simulated: true}, notifier, nil)
	r.Resolve(context.Background())

	r.ReportFailure(&ProviderError{Op: "create_call", Unreachable: true})

	if downgraded != 0 {
		t.Fatalf("already-simulated resolver must not announce downgrades, got %d", downgraded)
	}
}
