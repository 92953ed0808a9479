// Package feed exposes the realtime change stream as a capability interface:
// subscribe to one user's task changes, receive events, release with the
// returned stop function. The concrete transport stays behind the interface.
package feed

import (
	"context"

	"taskmanagerx/internal/model"
)

// Event is one row-level change delivered by the stream. New is set for
// INSERT/UPDATE, Old for UPDATE/DELETE.
type Event struct {
	Type string
	New  *model.Task
	Old  *model.Task
}

// Feed delivers change events for one user's tasks. Subscribe returns the
// event channel and a stop function; callers must call stop on every exit
// path. The channel is closed after stop or when the transport ends.
type Feed interface {
	Subscribe(ctx context.Context, userID int) (<-chan Event, func(), error)
}
