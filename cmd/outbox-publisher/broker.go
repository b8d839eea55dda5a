package main

import (
	"context"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// brokerTopics adapts the broker's shared *Publisher handles to publisher.
// The broker caches them per topic and flushes them on Close.
func brokerTopics(b broker) func(topic string) publisher {
	return func(topic string) publisher {
		raw := b.Publisher(topic)
		if raw == nil {
			return nil
		}
		return gcpPublisher{raw}
	}
}

type gcpPublisher struct {
	pub *gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.pub.Publish(ctx, msg)
}
