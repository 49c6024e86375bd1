package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sns"
	"github.com/ThreeDotsLabs/watermill-aws/sqs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/abrflow/internal/runtime/config"
	"github.com/drblury/abrflow/transport"
	"github.com/drblury/abrflow/transport/transporttest"
)

func stubAWS(t *testing.T) {
	t.Helper()
	loader, resolver, pub, queue := DefaultConfigLoader, TopicResolverFactory, PublisherFactory, QueuePublisherFactory
	t.Cleanup(func() {
		DefaultConfigLoader, TopicResolverFactory, PublisherFactory, QueuePublisherFactory = loader, resolver, pub, queue
	})
	DefaultConfigLoader = func(ctx context.Context, opts ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{Region: "us-east-1"}, nil
	}
	TopicResolverFactory = func(accountID, region string) (*sns.GenerateArnTopicResolver, error) {
		return &sns.GenerateArnTopicResolver{}, nil
	}
}

func TestRegister(t *testing.T) {
	previous := transport.DefaultRegistry
	t.Cleanup(func() { transport.DefaultRegistry = previous })
	transport.DefaultRegistry = transport.NewRegistry()

	Register()

	assert.True(t, transport.DefaultRegistry.Has(TransportName))
	assert.True(t, transport.DefaultRegistry.Has(QueueTransportName))
	assert.Equal(t, "sqs", transport.GetCapabilities(QueueTransportName).Name)
	assert.Equal(t, transport.AWSCapabilities, Capabilities())
}

func TestBuild(t *testing.T) {
	t.Run("creates sns publisher", func(t *testing.T) {
		stubAWS(t)
		fake := &transporttest.Publisher{}
		var got sns.PublisherConfig
		PublisherFactory = func(cfg sns.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			got = cfg
			return fake, nil
		}

		cfg := &config.Config{Sink: TransportName, AWSRegion: "ap-southeast-2", AWSAccountID: "123456789012"}
		tr, err := Build(context.Background(), cfg, watermill.NopLogger{})

		require.NoError(t, err)
		assert.Same(t, fake, tr.Publisher)
		assert.Nil(t, tr.Subscriber)
		assert.Equal(t, "ap-southeast-2", got.AWSConfig.Region)
		assert.Empty(t, got.OptFns)
	})

	t.Run("overrides endpoint for localstack", func(t *testing.T) {
		stubAWS(t)
		var got sns.PublisherConfig
		PublisherFactory = func(cfg sns.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			got = cfg
			return &transporttest.Publisher{}, nil
		}

		cfg := &config.Config{AWSRegion: "us-east-1", AWSEndpoint: "http://localhost:4566"}
		_, err := Build(context.Background(), cfg, watermill.NopLogger{})

		require.NoError(t, err)
		assert.Len(t, got.OptFns, 1)
	})

	t.Run("returns error when config loader fails", func(t *testing.T) {
		stubAWS(t)
		DefaultConfigLoader = func(ctx context.Context, opts ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
			return aws.Config{}, errors.New("config error")
		}

		_, err := Build(context.Background(), &config.Config{AWSRegion: "us-east-1"}, watermill.NopLogger{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config error")
	})

	t.Run("returns error when publisher factory fails", func(t *testing.T) {
		stubAWS(t)
		PublisherFactory = func(cfg sns.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			return nil, errors.New("publisher error")
		}

		_, err := Build(context.Background(), &config.Config{AWSRegion: "us-east-1"}, watermill.NopLogger{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "publisher error")
	})
}

func TestBuildQueue(t *testing.T) {
	stubAWS(t)
	fake := &transporttest.Publisher{}
	var got sqs.PublisherConfig
	QueuePublisherFactory = func(cfg sqs.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		got = cfg
		return fake, nil
	}

	cfg := &config.Config{AWSRegion: "us-east-1", AWSEndpoint: "http://localhost:4566"}
	tr, err := BuildQueue(context.Background(), cfg, watermill.NopLogger{})

	require.NoError(t, err)
	assert.Same(t, fake, tr.Publisher)
	assert.Len(t, got.OptFns, 1)
}

func TestResolveAccountAndRegion(t *testing.T) {
	t.Run("uses config values", func(t *testing.T) {
		cfg := &config.Config{AWSAccountID: "123456789012", AWSRegion: "us-west-2"}
		accountID, region := resolveAccountAndRegion(cfg, watermill.NopLogger{}, "us-east-1")
		assert.Equal(t, "123456789012", accountID)
		assert.Equal(t, "us-west-2", region)
	})

	t.Run("uses fallback region", func(t *testing.T) {
		cfg := &config.Config{AWSAccountID: "'123456789012'"}
		accountID, region := resolveAccountAndRegion(cfg, watermill.NopLogger{}, "us-east-1")
		assert.Equal(t, "123456789012", accountID)
		assert.Equal(t, "us-east-1", region)
	})

	t.Run("uses localstack account for short ids", func(t *testing.T) {
		cfg := &config.Config{AWSEndpoint: "http://localhost:4566", AWSAccountID: "42"}
		accountID, _ := resolveAccountAndRegion(cfg, watermill.NopLogger{}, "us-east-1")
		assert.Equal(t, localstackAccountID, accountID)
	})
}

func TestAwsEndpointURL(t *testing.T) {
	u, err := awsEndpointURL(&config.Config{})
	assert.NoError(t, err)
	assert.Nil(t, u)

	u, err = awsEndpointURL(&config.Config{AWSEndpoint: "http://localhost:4566"})
	require.NoError(t, err)
	assert.Equal(t, "localhost:4566", u.Host)
}
