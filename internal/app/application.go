package app

import (
	"path/filepath"
	"time"
)

// Application wires the core components together for the TUI and the CLI
// subcommands.
type Application struct {
	Config   Config
	Logger   *Logger
	Client   *BackendClient
	Goals    *GoalReconciler
	Session  *ConversationSession
	Location *LocationAcquirer
	Prefs    *PreferenceStore
}

func NewApplication(cfg Config) (*Application, error) {
	logger := NewFileLogger(filepath.Join(cfg.DataDir, "dolma.log"))
	client := NewBackendClient(cfg.BackendURL, logger)
	goals := NewGoalReconciler(client, logger)
	prefs := NewPreferenceStore(cfg.DataDir, logger)

	var location *LocationAcquirer
	if cfg.LocationEnabled {
		var device Geolocator
		if cfg.LocationCommand != "" {
			device = NewExecGeolocator(cfg.LocationCommand)
		}
		location = NewLocationAcquirer(
			StaticPermissions{State: PermissionState(cfg.LocationPermission)},
			device,
			LocateOptions{
				Timeout:    time.Duration(cfg.DeviceTimeoutSeconds) * time.Second,
				MaximumAge: time.Duration(cfg.DeviceMaxAgeSeconds) * time.Second,
			},
			cfg.GeoLookupURL,
			logger,
		)
	}

	store := NewTranscriptStore(cfg.DataDir)
	session := NewConversationSession(client, goals, location, store, logger)
	goals.OnSystemMessage(session.AppendSystemNotice)

	return &Application{
		Config:   cfg,
		Logger:   logger,
		Client:   client,
		Goals:    goals,
		Session:  session,
		Location: location,
		Prefs:    prefs,
	}, nil
}

// Close releases the log sink and stops location updates.
func (a *Application) Close() {
	if a.Location != nil {
		a.Location.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Close()
	}
}
