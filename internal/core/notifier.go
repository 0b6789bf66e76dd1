package core

import (
	"accountsec/internal/configuration"
	"accountsec/internal/models"
	"accountsec/internal/notifier"
)

// NewBoard creates the notification board and announces every notification on the bus.
func NewBoard(config models.AppConfiguration, events *EventsManager) *notifier.Board {
	return notifier.NewBoard(config.NotificationTTL(), events.GetPublisher(configuration.TopicNotifications))
}
