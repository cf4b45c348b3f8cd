package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/baovptse192440/NongSanProject-sub002/internal/services"
)

// PubSubMailPublisher publishes order mail jobs to a Pub/Sub topic.
type PubSubMailPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

var _ services.MailJobPublisher = (*PubSubMailPublisher)(nil)

// NewPubSubMailPublisher constructs a Pub/Sub backed mail job publisher.
func NewPubSubMailPublisher(topic *pubsub.Topic) (*PubSubMailPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub mail publisher: topic is required")
	}
	return &PubSubMailPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishMailJob enqueues a mail job on the configured topic and returns the server message id.
func (p *PubSubMailPublisher) PublishMailJob(ctx context.Context, job services.MailJob) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub mail publisher: not initialised")
	}

	data, err := p.marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal mail job: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "jobId", job.JobID)
	setAttr(attrs, "kind", string(job.Kind))
	setAttr(attrs, "orderNumber", job.Order.Number)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish mail job: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
