package app

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ExecGeolocator asks an external helper for a precise position. The helper
// (e.g. termux-location, corelocationcli) must print JSON with numeric
// latitude/longitude fields. Results are reusable within MaximumAge, so a
// permission-change re-run shortly after a fix does not spawn the helper
// again.
type ExecGeolocator struct {
	Command string

	mu       sync.Mutex
	cached   Coordinates
	cachedAt time.Time
}

func NewExecGeolocator(command string) *ExecGeolocator {
	return &ExecGeolocator{Command: command}
}

func (g *ExecGeolocator) Current(ctx context.Context, opts LocateOptions) (Coordinates, error) {
	g.mu.Lock()
	if !g.cachedAt.IsZero() && time.Since(g.cachedAt) <= opts.MaximumAge {
		coords := g.cached
		g.mu.Unlock()
		return coords, nil
	}
	g.mu.Unlock()

	if strings.TrimSpace(g.Command) == "" {
		return Coordinates{}, errors.New("no location command configured")
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", g.Command)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return Coordinates{}, errors.New("location request timed out")
		}
		return Coordinates{}, err
	}

	var payload struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.Unmarshal(output, &payload); err != nil {
		return Coordinates{}, err
	}
	if payload.Latitude == nil || payload.Longitude == nil {
		return Coordinates{}, errors.New("location helper returned no coordinates")
	}

	coords := Coordinates{Lat: *payload.Latitude, Lon: *payload.Longitude}
	g.mu.Lock()
	g.cached = coords
	g.cachedAt = time.Now()
	g.mu.Unlock()
	return coords, nil
}

// StaticPermissions reports a fixed permission state from configuration.
// There is nothing to watch, so Subscribe hands back a no-op cancel.
type StaticPermissions struct {
	State PermissionState
}

func (p StaticPermissions) Query(context.Context) (PermissionState, error) {
	switch p.State {
	case PermissionGranted, PermissionPrompt, PermissionDenied:
		return p.State, nil
	}
	return PermissionPrompt, nil
}

func (p StaticPermissions) Subscribe(func(PermissionState)) (func(), error) {
	return func() {}, nil
}
