package telephony

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"voicedesk/internal/config"
	"voicedesk/internal/events"
)

type Mode string

const (
	ModeLive      Mode = "live"
	ModeSimulated Mode = "simulated"
)

// Capability describes how provider operations will be executed.
// Reason is set whenever the mode is simulated.
type Capability struct {
	Mode   Mode   `json:"mode"`
	Reason string `json:"reason,omitempty"`
}

// Resolver decides between the live and simulated clients.
//
// Policy: prefer live; any failure downgrades to simulated rather than
// failing the caller. Resolve never returns an error. Callers must
// treat simulated results as non-authoritative.
type Resolver struct {
	mu   sync.Mutex
	cap  Capability
	live Client
	sim  Client

	cfg      config.TwilioConfig
	notifier *events.Notifier
	log      *slog.Logger
}

func NewResolver(cfg config.TwilioConfig, live, sim Client, notifier *events.Notifier, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		cfg:      cfg,
		live:     live,
		sim:      sim,
		notifier: notifier,
		log:      log,
		cap:      Capability{Mode: ModeSimulated, Reason: "not yet resolved"},
	}
}

// Resolve determines the current capability. Call it at startup; it is
// safe to call again to retry going live.
func (r *Resolver) Resolve(ctx context.Context) Capability {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.cfg.HasLiveCredentials() {
		r.cap = Capability{Mode: ModeSimulated, Reason: "provider credentials not configured"}
		r.log.Info("capability resolved", "mode", string(r.cap.Mode), "reason", r.cap.Reason)
		return r.cap
	}
	if r.live == nil {
		r.setSimulatedLocked("live client not available")
		return r.cap
	}
	if err := r.live.HealthCheck(ctx); err != nil {
		r.setSimulatedLocked("provider health check failed: " + err.Error())
		return r.cap
	}

	r.cap = Capability{Mode: ModeLive}
	r.log.Info("capability resolved", "mode", string(r.cap.Mode))
	return r.cap
}

// Capability returns the current capability snapshot.
func (r *Resolver) Capability() Capability {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cap
}

// Client returns the adapter for the current mode.
func (r *Resolver) Client() Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cap.Mode == ModeLive && r.live != nil {
		return r.live
	}
	return r.sim
}

// ReportFailure lets dispatch paths feed provider outcomes back. An
// unreachable provider downgrades the capability; request-level
// rejections (bad number, quota) do not.
func (r *Resolver) ReportFailure(err error) {
	var pe *ProviderError
	if !errors.As(err, &pe) || !pe.Unreachable {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cap.Mode != ModeLive {
		return
	}
	r.setSimulatedLocked("provider unreachable: " + pe.Error())
}

// setSimulatedLocked downgrades and announces it. Credentials were
// present, so the operator expected live mode; the UI shows a banner
// off the mode_downgraded event.
func (r *Resolver) setSimulatedLocked(reason string) {
	r.cap = Capability{Mode: ModeSimulated, Reason: reason}
	r.log.Warn("capability downgraded to simulated", "reason", reason)
	if r.notifier != nil {
		r.notifier.Publish(events.Event{
			Type:      events.EventModeDowngraded,
			Reason:    reason,
			Simulated: true,
		})
	}
}
