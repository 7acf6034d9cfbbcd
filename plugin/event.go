package plugin

import (
	"context"
	"errors"
	"time"
)

var (
	ErrBusClosed = errors.New("event bus is closed")

	// ErrPublishTimeout is returned when the buffer stays full until ctx expires.
	ErrPublishTimeout = errors.New("event publish timeout: buffer full")
)

// Topics published by the framework.
const (
	EventPluginActivated = "plugin.activated"
	EventPluginEnabled   = "plugin.enabled"
)

type Event struct {
	Name      string
	Data      any
	Source    string // plugin name or identifier
	Timestamp time.Time
}

// Activation is the payload of EventPluginActivated.
type Activation struct {
	Namespace  string `json:"namespace"`
	Identifier string `json:"identifier"`
	Directory  string `json:"directory"`
	RequestID  string `json:"requestId,omitempty"`
}

type EventHandler func(ctx context.Context, event Event) error

type Subscription interface {
	Unsubscribe()
}

// EventBus delivers events asynchronously to topic subscribers.
type EventBus interface {
	// Publish blocks while the buffer is full, until ctx expires.
	Publish(ctx context.Context, event Event) error
	Subscribe(topic string, handler EventHandler) Subscription
	// Close drains pending events and waits for running handlers.
	Close() error
}
