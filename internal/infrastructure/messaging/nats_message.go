// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/linuxfoundation/lfx-v2-appointment-service/internal/domain"
)

// NatsMessage adapts a *nats.Msg to [domain.Message].
type NatsMessage struct {
	msg *nats.Msg
}

// NewNatsMessage wraps a received NATS message.
func NewNatsMessage(msg *nats.Msg) *NatsMessage {
	return &NatsMessage{msg: msg}
}

func (m *NatsMessage) Subject() string {
	return m.msg.Subject
}

func (m *NatsMessage) Data() []byte {
	return m.msg.Data
}

// HasReply reports whether the sender is waiting for a response.
func (m *NatsMessage) HasReply() bool {
	return m.msg.Reply != ""
}

func (m *NatsMessage) Respond(data []byte) error {
	return m.msg.Respond(data)
}

// Context extracts the trace context propagated in the message headers.
func (m *NatsMessage) Context(parent context.Context) context.Context {
	if m.msg.Header == nil {
		return parent
	}
	return otel.GetTextMapPropagator().Extract(parent, propagation.HeaderCarrier(m.msg.Header))
}

// Subscriber subscribes message handlers to subjects in a queue group.
type Subscriber interface {
	QueueSubscribe(subject, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// SubscribeHandler subscribes handler to every subject in the queue group, so
// replicas share the load.
func SubscribeHandler(ctx context.Context, conn Subscriber, queue string, handler domain.MessageHandler, subjects ...string) ([]*nats.Subscription, error) {
	subs := make([]*nats.Subscription, 0, len(subjects))
	for _, subject := range subjects {
		sub, err := conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
			natsMsg := NewNatsMessage(msg)
			handler.HandleMessage(natsMsg.Context(ctx), natsMsg)
		})
		if err != nil {
			return subs, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}
