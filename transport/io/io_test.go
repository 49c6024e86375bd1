package io

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/abrflow/internal/runtime/config"
	"github.com/drblury/abrflow/transport"
)

func TestRegister(t *testing.T) {
	previous := transport.DefaultRegistry
	t.Cleanup(func() { transport.DefaultRegistry = previous })
	transport.DefaultRegistry = transport.NewRegistry()

	Register()

	caps := transport.GetCapabilities(TransportName)
	assert.True(t, caps.SupportsOrdering)
	assert.Equal(t, transport.IOCapabilities, Capabilities())
}

func TestBuildUsesDefaultPath(t *testing.T) {
	tr, err := Build(context.Background(), &config.Config{}, watermill.NopLogger{})
	require.NoError(t, err)
	p := tr.Publisher.(*Publisher)
	assert.Equal(t, "abr.records.ndjson", p.PathFor("abr.records"))
	assert.NoError(t, tr.Close())
}

func TestPublisherWritesOneLinePerMessage(t *testing.T) {
	dir := t.TempDir()
	p := NewPublisher(filepath.Join(dir, "out", TopicPlaceholder+".ndjson"), nil)

	require.NoError(t, p.Publish("records",
		message.NewMessage("1", []byte(`{"abn":"1"}`)),
		message.NewMessage("2", []byte(`{"abn":"2"}`)),
	))
	require.NoError(t, p.Publish("rejections", message.NewMessage("3", []byte(`{"line":7}`))))
	require.NoError(t, p.Publish("records", message.NewMessage("4", []byte(`{"abn":"4"}`))))

	// flushed per call, readable before Close
	records, err := os.ReadFile(filepath.Join(dir, "out", "records.ndjson"))
	require.NoError(t, err)
	assert.Equal(t, "{\"abn\":\"1\"}\n{\"abn\":\"2\"}\n{\"abn\":\"4\"}\n", string(records))

	rejections, err := os.ReadFile(filepath.Join(dir, "out", "rejections.ndjson"))
	require.NoError(t, err)
	assert.Equal(t, "{\"line\":7}\n", string(rejections))

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Error(t, p.Publish("records", message.NewMessage("5", nil)))
}

func TestPublisherAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all.ndjson")
	require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0o644))

	p := NewPublisher(path, watermill.NopLogger{})
	require.NoError(t, p.Publish("records", message.NewMessage("1", []byte("a"))))
	require.NoError(t, p.Publish("rejections", message.NewMessage("2", []byte("b"))))
	require.NoError(t, p.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing\na\nb\n", string(data))
}
