// Package pubsub wraps the Google Cloud Pub/Sub v2 client for the outbox
// relay: topic verification at boot and one long-lived publisher per topic.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storetrack-backend/pkg/config"
	"github.com/angelmondragon/storetrack-backend/pkg/logger"
)

var errProjectIDRequired = errors.New("gcp project id is required")

type Client struct {
	api        *pubsub.Client
	projectID  string
	required   []string
	autoCreate bool
	settings   pubsub.PublishSettings

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient dials Pub/Sub and verifies every topic the relay publishes to.
// With AutoCreateTopics set, missing topics are created instead.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.SalesTopic) == "" {
		return nil, errors.New("pubsub sales topic is required")
	}

	api, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := newClient(project, cfg)
	c.api = api
	if err := c.verifyTopics(ctx); err != nil {
		_ = api.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"gcp_project": project,
			"topics":      c.required,
		}), "pubsub.ready")
	}
	return c, nil
}

func newClient(project string, cfg config.PubSubConfig) *Client {
	settings := pubsub.DefaultPublishSettings
	if cfg.PublishDelayMS > 0 {
		settings.DelayThreshold = time.Duration(cfg.PublishDelayMS) * time.Millisecond
	}
	if cfg.PublishCountThreshold > 0 {
		settings.CountThreshold = cfg.PublishCountThreshold
	}
	return &Client{
		projectID:  project,
		required:   []string{strings.TrimSpace(cfg.SalesTopic)},
		autoCreate: cfg.AutoCreateTopics,
		settings:   settings,
		publishers: make(map[string]*pubsub.Publisher),
	}
}

func (c *Client) verifyTopics(ctx context.Context) error {
	for _, topic := range c.required {
		if err := c.verifyTopic(ctx, topic); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) verifyTopic(ctx context.Context, topic string) error {
	name := c.resourceName(topic)
	if name == "" {
		return fmt.Errorf("topic %q not configured", topic)
	}

	_, err := c.api.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
	switch {
	case err == nil:
		return nil
	case status.Code(err) != codes.NotFound:
		return fmt.Errorf("checking topic %q: %w", topic, err)
	case !c.autoCreate:
		return fmt.Errorf("topic %q does not exist", topic)
	}

	_, err = c.api.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: name})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("creating topic %q: %w", topic, err)
	}
	return nil
}

// Publisher returns the shared publisher for topic (an id or a full
// projects/<p>/topics/<t> name). Nil means the topic cannot be resolved.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.api == nil {
		return nil
	}
	name := c.resourceName(topic)
	if name == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if pub, ok := c.publishers[name]; ok {
		return pub
	}
	pub := c.api.Publisher(name)
	pub.PublishSettings = c.settings
	c.publishers[name] = pub
	return pub
}

// Ping re-checks the configured topics.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.verifyTopics(ctx)
}

// Close flushes every publisher before closing the connection.
func (c *Client) Close() error {
	if c == nil || c.api == nil {
		return nil
	}
	c.mu.Lock()
	for name, pub := range c.publishers {
		pub.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.api.Close()
}

func (c *Client) resourceName(topic string) string {
	topic = strings.TrimSpace(topic)
	switch {
	case topic == "":
		return ""
	case strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/"):
		return topic
	case c.projectID == "":
		return ""
	}
	return "projects/" + c.projectID + "/topics/" + topic
}
