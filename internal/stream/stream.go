// Package stream provides the append-only event primitives connecting this
// service to the asynchronous lint/format workers.
//
// One durable Redis stream exists per job kind ("stream.lint",
// "stream.format") plus one result stream ("stream.status") written by the
// lint worker and consumed here. Delivery is at-least-once: payloads must be
// safe to apply twice, which compliance updates are.
package stream

import "context"

// Publisher appends a payload to a named stream. From the orchestrator's
// point of view publishing is fire-and-forget: once the append is
// acknowledged by the backend, delivery to workers is the backend's problem.
type Publisher interface {
	Publish(ctx context.Context, stream string, payload []byte) error
}

// Handler processes one consumed message. Returning an error leaves the
// message pending for redelivery; the consumer loop itself never stops over
// a single bad message.
type Handler func(ctx context.Context, payload []byte) error
