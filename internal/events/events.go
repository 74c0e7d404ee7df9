// Package events carries structured operational events from the services to
// whichever sinks the application wires up: the log, the message broker and
// the metrics registry.
package events

import (
	"context"
	"time"
)

// Level is the severity of an event.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event names emitted by the application.
const (
	ProductCreated        = "product.created"
	ProductCreateRejected = "product.create_rejected"
	ProductCreateFailed   = "product.create_failed"
	ProductDeleted        = "product.deleted"
	ProductDeleteFailed   = "product.delete_failed"
	ProductNotFound       = "product.not_found"
	ProductListFailed     = "product.list_failed"
	ProductGetFailed      = "product.get_failed"
	NearExpiryInvalidDate = "near_expiry.invalid_date"
	NearExpiryFailed      = "near_expiry.failed"
	NearExpirySweep       = "near_expiry.sweep"
)

// Event is a single structured observation.
type Event struct {
	Name   string         `json:"event"`
	Level  Level          `json:"level"`
	Fields map[string]any `json:"fields,omitempty"`
	Time   time.Time      `json:"time"`
}

// Sink receives events. Implementations must not block for long and must not
// fail the caller.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// New builds an event stamped with the current time.
func New(name string, level Level, fields map[string]any) Event {
	return Event{Name: name, Level: level, Fields: fields, Time: time.Now()}
}

// Info, Warn and Error are shorthands for New.
func Info(name string, fields map[string]any) Event  { return New(name, LevelInfo, fields) }
func Warn(name string, fields map[string]any) Event  { return New(name, LevelWarn, fields) }
func Error(name string, fields map[string]any) Event { return New(name, LevelError, fields) }

// Multi fans an event out to several sinks in order.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, e)
		}
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, e Event)

func (f SinkFunc) Emit(ctx context.Context, e Event) { f(ctx, e) }
