package pubsub

import (
	"context"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storetrack-backend/pkg/config"
)

func TestResourceName(t *testing.T) {
	c := newClient("storetrack-dev", config.PubSubConfig{SalesTopic: "sales"})

	cases := map[string]string{
		"storetrack-sales-events": "projects/storetrack-dev/topics/storetrack-sales-events",
		"  padded  ":              "projects/storetrack-dev/topics/padded",
		"projects/other/topics/storetrack-sales-events": "projects/other/topics/storetrack-sales-events",
		"": "",
	}
	for in, want := range cases {
		require.Equal(t, want, c.resourceName(in), "resourceName(%q)", in)
	}
	require.Empty(t, (&Client{}).resourceName("sales"))
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{SalesTopic: "sales"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{SalesTopic: " "}, nil)
	require.ErrorContains(t, err, "sales topic is required")
}

func TestPublishSettingsFromConfig(t *testing.T) {
	c := newClient("p", config.PubSubConfig{SalesTopic: "sales", PublishDelayMS: 25, PublishCountThreshold: 7, AutoCreateTopics: true})
	require.Equal(t, 25*time.Millisecond, c.settings.DelayThreshold)
	require.Equal(t, 7, c.settings.CountThreshold)
	require.True(t, c.autoCreate)
	require.Equal(t, []string{"sales"}, c.required)

	defaults := newClient("p", config.PubSubConfig{SalesTopic: "sales"})
	require.Equal(t, pubsub.DefaultPublishSettings.DelayThreshold, defaults.settings.DelayThreshold)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	require.Nil(t, c.Publisher("sales"))
	require.Error(t, c.Ping(context.Background()))
	require.NoError(t, c.Close())
}
