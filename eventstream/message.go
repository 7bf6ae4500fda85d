package eventstream

import "time"

// Message is a payload delivered to the subscribers of a topic.
type Message struct {
	topic       string
	payload     any
	publishedAt time.Time
}

// Topic returns the message topic
func (m Message) Topic() string {
	return m.topic
}

// Payload returns the message payload
func (m Message) Payload() any {
	return m.payload
}

// PublishedAt returns the time the message was handed to the stream.
func (m Message) PublishedAt() time.Time {
	return m.publishedAt
}

// NewMessage creates an instance of Stream Message
func NewMessage(topic string, payload any) *Message {
	return &Message{
		topic:       topic,
		payload:     payload,
		publishedAt: time.Now().UTC(),
	}
}
