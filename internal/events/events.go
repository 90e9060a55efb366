// Package events carries in-process notifications between the sync
// orchestrator and the components that react to new local files.
package events

import (
	"context"

	"github.com/asaskevich/EventBus"

	"github.com/okian/nutrimon/pkg/logger"
)

// Topics.
const (
	// TopicDataSynced fires after a data sync pass finished. Handler: func(DataSynced).
	TopicDataSynced = "sync:data:completed"
	// TopicIconsSynced fires after an icon pass. Handler: func(IconsSynced).
	TopicIconsSynced = "sync:icons:completed"
	// TopicDatasetInvalidated fires when the cached dataset generation moved.
	// Handler: func(uint64).
	TopicDatasetInvalidated = "dataset:invalidated"
)

// DataSynced describes a finished data sync.
type DataSynced struct {
	RunID    string
	OK       bool
	Message  string
	Files    int
	Failures int
}

// IconsSynced describes a finished icon sync.
type IconsSynced struct {
	RunID    string
	OK       bool
	Files    int
	Failures int
}

// Bus is a synchronous topic bus. Publish returns after every subscriber ran,
// in subscription order. Handlers must not publish on the same bus.
type Bus struct {
	bus    EventBus.Bus
	logger logger.Logger
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{bus: EventBus.New(), logger: logger.Get().Named("events")}
}

// Subscribe registers fn for topic. fn must be a func taking the topic's
// payload type.
func (b *Bus) Subscribe(topic string, fn any) error {
	return b.bus.Subscribe(topic, fn)
}

// Unsubscribe removes fn from topic.
func (b *Bus) Unsubscribe(topic string, fn any) error {
	return b.bus.Unsubscribe(topic, fn)
}

// HasSubscribers reports whether topic has any handler.
func (b *Bus) HasSubscribers(topic string) bool {
	return b.bus.HasCallback(topic)
}

// PublishDataSynced notifies data sync subscribers.
func (b *Bus) PublishDataSynced(ev DataSynced) {
	b.publish(TopicDataSynced, ev)
}

// PublishIconsSynced notifies icon sync subscribers.
func (b *Bus) PublishIconsSynced(ev IconsSynced) {
	b.publish(TopicIconsSynced, ev)
}

// PublishInvalidated notifies that the dataset generation is now gen.
func (b *Bus) PublishInvalidated(gen uint64) {
	b.publish(TopicDatasetInvalidated, gen)
}

func (b *Bus) publish(topic string, arg any) {
	if b == nil || !b.bus.HasCallback(topic) {
		return
	}
	b.logger.Debug(context.Background(), "publish", logger.String("topic", topic))
	b.bus.Publish(topic, arg)
}
