package core

import (
	"accountsec/internal/configuration"
	"accountsec/internal/messaging"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

// EventsManager owns the in-process bus and one publisher/subscriber pair per topic. Every pair
// shares the same GoChannel, so a subscriber sees what any publisher of its topic sends.
type EventsManager struct {
	channel     *gochannel.GoChannel
	publishers  map[string]messaging.IPublisher
	subscribers map[string]messaging.ISubscriber
}

func NewEventsManager(topics ...string) *EventsManager {
	if len(topics) == 0 {
		topics = []string{configuration.TopicSnapshots, configuration.TopicNotifications}
	}

	manager := &EventsManager{
		channel:     messaging.NewMemoryChannel(),
		publishers:  make(map[string]messaging.IPublisher),
		subscribers: make(map[string]messaging.ISubscriber),
	}
	for _, topic := range topics {
		manager.publishers[topic] = messaging.NewMemoryPublisher(manager.channel, topic)
		manager.subscribers[topic] = messaging.NewMemorySubscriber(manager.channel, topic)
	}
	return manager
}

// GetPublisher returns the publisher of topic, nil for an unknown topic.
func (em *EventsManager) GetPublisher(topic string) messaging.IPublisher {
	publisher, ok := em.publishers[topic]
	if !ok {
		zap.L().Warn("Unknown event topic", zap.String("topic", topic))
	}
	return publisher
}

// GetSubscriber returns the subscriber of topic, nil for an unknown topic.
func (em *EventsManager) GetSubscriber(topic string) messaging.ISubscriber {
	subscriber, ok := em.subscribers[topic]
	if !ok {
		zap.L().Warn("Unknown event topic", zap.String("topic", topic))
	}
	return subscriber
}

func (em *EventsManager) Close() error {
	return em.channel.Close()
}
