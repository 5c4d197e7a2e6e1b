package source

import (
	"context"

	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

// Target receives the startup events. Both the store and the controller
// satisfy it.
type Target interface {
	Load(events []model.Event)
	Reset()
}

// LoadInto loads location into dst. A failed load is logged and leaves dst
// empty instead of keeping whatever it held before; it is never fatal.
// It returns the number of events loaded.
func LoadInto(ctx context.Context, l *Loader, dst Target, location string) int {
	events, err := l.Load(ctx, location)
	if err != nil {
		appLog.Error("failed to load events; starting empty", err, "source", Describe(location))
		dst.Reset()
		return 0
	}
	dst.Load(events)
	appLog.Info("events loaded", "source", Describe(location), "count", len(events))
	return len(events)
}

// Describe returns location fit for logs: URLs lose everything after the host.
func Describe(location string) string {
	if isRemote(location) {
		return redactURL(location)
	}
	return location
}
