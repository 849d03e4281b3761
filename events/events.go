// Package events fans change notifications out to connected observers.
//
// Mutations publish an envelope to a Redis channel after they commit; a
// relay subscribed to that channel hands each envelope to an in-process
// broker, which broadcasts it to every observer of the board. Delivery is
// at-most-once: there is no queue and no replay, an observer that connects
// after an event never sees it.
package events

import "encoding/json"

// Wire event names, one per mutation kind.
const (
	TaskCreated  = "task:created"
	TaskUpdated  = "task:updated"
	TaskDeleted  = "task:deleted"
	TaskMoved    = "task:moved"
	TasksSeeded  = "tasks:seeded"
	TasksCleared = "tasks:cleared"
)

// Envelope is the unit published to Redis and delivered to observers.
type Envelope struct {
	Board string          `json:"board"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
