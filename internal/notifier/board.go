package notifier

import (
	"sync"
	"time"

	"accountsec/internal/messaging"
	"accountsec/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Board holds at most one visible notification per channel. Each channel has its own dismiss timer;
// showing a message restarts only that channel's timer.
type Board struct {
	mu        sync.Mutex
	ttl       time.Duration
	entries   map[models.Channel]*entry
	publisher messaging.IPublisher
}

type entry struct {
	notification models.Notification
	timer        *time.Timer
}

// NewBoard creates a board whose notifications expire after ttl. publisher may be nil.
func NewBoard(ttl time.Duration, publisher messaging.IPublisher) *Board {
	return &Board{
		ttl:       ttl,
		entries:   make(map[models.Channel]*entry),
		publisher: publisher,
	}
}

func (b *Board) Success(channel models.Channel, message string) models.Notification {
	return b.Show(channel, models.NotificationSuccess, message)
}

func (b *Board) Error(channel models.Channel, message string) models.Notification {
	return b.Show(channel, models.NotificationError, message)
}

// Show replaces the channel's notification and restarts its timer.
func (b *Board) Show(channel models.Channel, kind models.NotificationType, message string) models.Notification {
	notification := models.Notification{
		ID:        uuid.New(),
		Channel:   channel,
		Type:      kind,
		Message:   message,
		CreatedAt: time.Now(),
	}

	b.mu.Lock()
	if previous, ok := b.entries[channel]; ok {
		previous.timer.Stop()
	}
	b.entries[channel] = &entry{
		notification: notification,
		timer:        time.AfterFunc(b.ttl, func() { b.expire(channel, notification.ID) }),
	}
	b.mu.Unlock()

	if b.publisher != nil {
		if err := messaging.PublishJSON(b.publisher, notification); err != nil {
			zap.L().Warn("Failed to publish notification",
				zap.String("channel", string(channel)),
				zap.Error(err))
		}
	}

	return notification
}

// expire removes the notification only if it is still the one the timer was started for.
func (b *Board) expire(channel models.Channel, id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if current, ok := b.entries[channel]; ok && current.notification.ID == id {
		delete(b.entries, channel)
	}
}

func (b *Board) Current(channel models.Channel) (models.Notification, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	current, ok := b.entries[channel]
	if !ok {
		return models.Notification{}, false
	}
	return current.notification, true
}

// All returns a copy of every visible notification keyed by channel.
func (b *Board) All() map[models.Channel]models.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[models.Channel]models.Notification, len(b.entries))
	for channel, current := range b.entries {
		out[channel] = current.notification
	}
	return out
}

func (b *Board) Dismiss(channel models.Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if current, ok := b.entries[channel]; ok {
		current.timer.Stop()
		delete(b.entries, channel)
	}
}

// Close stops every pending timer and clears the board.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for channel, current := range b.entries {
		current.timer.Stop()
		delete(b.entries, channel)
	}
}
