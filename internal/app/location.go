package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// PermissionState is the answer from a location-permission query.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionPrompt  PermissionState = "prompt"
	PermissionDenied  PermissionState = "denied"
)

// LocationStatus is the acquirer's lifecycle state.
type LocationStatus string

const (
	LocationUnknown     LocationStatus = "unknown"
	LocationChecking    LocationStatus = "checking"
	LocationResolved    LocationStatus = "resolved"
	LocationFailed      LocationStatus = "failed"
	LocationUnsupported LocationStatus = "unsupported"
)

// PermissionQuerier exposes the environment's location-permission state.
// Subscribe delivers state changes until the returned cancel func is called;
// implementations that cannot watch may return a no-op cancel.
type PermissionQuerier interface {
	Query(ctx context.Context) (PermissionState, error)
	Subscribe(fn func(PermissionState)) (cancel func(), err error)
}

// Geolocator is the precise on-device position source.
type Geolocator interface {
	Current(ctx context.Context, opts LocateOptions) (Coordinates, error)
}

// LocateOptions bounds a device location request. The device request is the
// only network-ish call in the client that carries a timeout.
type LocateOptions struct {
	Timeout      time.Duration
	MaximumAge   time.Duration
	HighAccuracy bool
}

// LocationSnapshot is what consumers read: at most one of ErrorText/InfoText
// accompanies the coordinates.
type LocationSnapshot struct {
	Status    LocationStatus
	Coords    *Coordinates
	ErrorText string
	InfoText  string
}

const approxLocationNote = "Approximate location based on network address."

// LocationAcquirer resolves coordinates through a tiered strategy: precise
// on-device geolocation gated by permission state, falling back to a coarse
// network-address lookup when permission is denied. The IP fallback failing
// is swallowed on purpose — the user already declined precise location and
// should not see a second alarm for the consolation path.
type LocationAcquirer struct {
	perms     PermissionQuerier
	device    Geolocator
	opts      LocateOptions
	lookupURL string
	httpc     *http.Client
	logger    *Logger

	mu     sync.Mutex
	closed bool
	snap   LocationSnapshot
	cancel func()
	notify func(LocationSnapshot)
}

func NewLocationAcquirer(perms PermissionQuerier, device Geolocator, opts LocateOptions, lookupURL string, logger *Logger) *LocationAcquirer {
	if opts.Timeout <= 0 {
		opts.Timeout = 12 * time.Second
	}
	if opts.MaximumAge <= 0 {
		opts.MaximumAge = time.Minute
	}
	opts.HighAccuracy = true
	if logger == nil {
		logger = NewLogger(io.Discard)
	}
	return &LocationAcquirer{
		perms:     perms,
		device:    device,
		opts:      opts,
		lookupURL: lookupURL,
		httpc:     &http.Client{},
		logger:    logger,
		snap:      LocationSnapshot{Status: LocationUnknown},
	}
}

// OnChange registers the single consumer callback, invoked after every state
// transition that survives the teardown check.
func (a *LocationAcquirer) OnChange(fn func(LocationSnapshot)) {
	a.mu.Lock()
	a.notify = fn
	a.mu.Unlock()
}

// Snapshot returns the current state.
func (a *LocationAcquirer) Snapshot() LocationSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap
}

// Acquire runs the whole check sequence once and registers the live
// permission subscription so a later grant or denial re-runs the branch logic
// without a restart.
func (a *LocationAcquirer) Acquire(ctx context.Context) {
	a.runBranch(ctx)

	if a.perms != nil {
		cancel, err := a.perms.Subscribe(func(PermissionState) {
			// State change re-runs the same branch logic; the fresh Query
			// inside runBranch picks up the new state.
			a.runBranch(context.Background())
		})
		if err == nil {
			a.mu.Lock()
			a.cancel = cancel
			a.mu.Unlock()
		}
	}
}

// Close suppresses every update that arrives after the owning view has gone.
func (a *LocationAcquirer) Close() {
	a.mu.Lock()
	a.closed = true
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (a *LocationAcquirer) runBranch(ctx context.Context) {
	a.set(LocationSnapshot{Status: LocationChecking})

	state := PermissionGranted
	if a.perms != nil {
		queried, err := a.perms.Query(ctx)
		if err == nil {
			state = queried
		}
		// A failing permission query falls through to the device request, the
		// same as an environment with no query capability at all.
	}

	switch state {
	case PermissionDenied:
		a.lookupByNetwork(ctx)
	default:
		a.requestDevice(ctx)
	}
}

func (a *LocationAcquirer) requestDevice(ctx context.Context) {
	if a.device == nil {
		// Capability absent. Terminal state: informational, not blocking.
		a.set(LocationSnapshot{Status: LocationUnsupported, ErrorText: ErrLocationUnsupported.Error()})
		return
	}
	coords, err := a.device.Current(ctx, a.opts)
	if err != nil {
		a.logger.Warn("device location failed", map[string]interface{}{"error": err.Error()})
		a.set(LocationSnapshot{Status: LocationFailed, ErrorText: err.Error()})
		return
	}
	a.set(LocationSnapshot{Status: LocationResolved, Coords: &coords})
}

// lookupByNetwork is best-effort: success yields approximate coordinates and
// an informational note, failure leaves the prior snapshot untouched except
// for the status, with no error text.
func (a *LocationAcquirer) lookupByNetwork(ctx context.Context) {
	if a.lookupURL == "" {
		a.set(LocationSnapshot{Status: LocationFailed})
		return
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, a.lookupURL, nil)
	if err != nil {
		a.set(LocationSnapshot{Status: LocationFailed})
		return
	}
	resp, err := a.httpc.Do(request)
	if err != nil {
		a.logger.Warn("network location lookup failed", map[string]interface{}{"error": err.Error()})
		a.set(LocationSnapshot{Status: LocationFailed})
		return
	}
	defer resp.Body.Close()

	var payload struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if resp.StatusCode >= 300 || json.NewDecoder(resp.Body).Decode(&payload) != nil ||
		payload.Latitude == nil || payload.Longitude == nil {
		a.logger.Warn("network location lookup unusable", map[string]interface{}{
			"status": fmt.Sprintf("%d", resp.StatusCode),
		})
		a.set(LocationSnapshot{Status: LocationFailed})
		return
	}

	a.set(LocationSnapshot{
		Status:   LocationResolved,
		Coords:   &Coordinates{Lat: *payload.Latitude, Lon: *payload.Longitude},
		InfoText: approxLocationNote,
	})
}

func (a *LocationAcquirer) set(snap LocationSnapshot) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.snap = snap
	notify := a.notify
	a.mu.Unlock()
	if notify != nil {
		notify(snap)
	}
}
