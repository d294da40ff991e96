// Package realtime pushes course authoring events to connected editors over
// websockets. Events are read from the Redis course channels that
// events.Publisher writes, so every API instance delivers every event.
package realtime
