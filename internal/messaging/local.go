package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

type MemoryPublisher struct {
	topicName string
	channel   *gochannel.GoChannel
}

type MemorySubscriber struct {
	topicName string
	channel   *gochannel.GoChannel
}

// NewMemoryChannel creates the in-process bus shared by every topic. Messages published before a
// subscriber attaches are dropped; subscribers only see what happens after they subscribe.
func NewMemoryChannel() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NopLogger{})
}

func NewMemoryPublisher(channel *gochannel.GoChannel, topicName string) IPublisher {
	return &MemoryPublisher{topicName: topicName, channel: channel}
}

func NewMemorySubscriber(channel *gochannel.GoChannel, topicName string) ISubscriber {
	return &MemorySubscriber{topicName: topicName, channel: channel}
}

func (p *MemoryPublisher) Publish(messages ...*message.Message) error {
	return p.channel.Publish(p.topicName, messages...)
}

func (p *MemoryPublisher) Close() error {
	return p.channel.Close()
}

// Subscribe returns the topic's message stream, closed when ctx is done or the channel is closed.
func (s *MemorySubscriber) Subscribe(ctx context.Context) <-chan *message.Message {
	sub, err := s.channel.Subscribe(ctx, s.topicName)
	if err != nil {
		zap.L().Error("Failed to subscribe to memory topic", zap.String("topic", s.topicName), zap.Error(err))
		return nil
	}
	return sub
}

func (s *MemorySubscriber) Close() error {
	return s.channel.Close()
}

// PublishJSON encodes payload as one JSON message.
func PublishJSON(publisher IPublisher, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return publisher.Publish(message.NewMessage(watermill.NewUUID(), body))
}

// DecodeJSON acks msg and decodes its payload.
func DecodeJSON[T any](msg *message.Message) (T, error) {
	var payload T
	msg.Ack()
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal message %s: %w", msg.UUID, err)
	}
	return payload, nil
}
