// Package io appends record payloads to local files, one payload per line.
// With JSON encoding the files are plain line-delimited JSON.
package io

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/abrflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "io"

// TopicPlaceholder in the configured path is replaced with the topic name.
const TopicPlaceholder = "{topic}"

// DefaultFilePath gives every topic its own file in the working directory.
const DefaultFilePath = TopicPlaceholder + ".ndjson"

func init() {
	Register()
}

// Register adds the io sink to the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.IOCapabilities)
}

// Build creates a file publisher. A path without the topic placeholder makes
// every topic append to the same file.
func Build(_ context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	path := cfg.GetIOFile()
	if path == "" {
		path = DefaultFilePath
	}
	return transport.Transport{Publisher: NewPublisher(path, logger)}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.IOCapabilities
}

// Publisher writes payload lines to one file per resolved path. Files stay
// open until Close and are flushed at the end of every Publish call.
type Publisher struct {
	pathTemplate string
	logger       watermill.LoggerAdapter

	mu     sync.Mutex
	files  map[string]*openFile
	closed bool
}

type openFile struct {
	f *os.File
	w *bufio.Writer
}

// NewPublisher creates a publisher for pathTemplate.
func NewPublisher(pathTemplate string, logger watermill.LoggerAdapter) *Publisher {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Publisher{pathTemplate: pathTemplate, logger: logger, files: make(map[string]*openFile)}
}

// PathFor resolves the file a topic is written to.
func (p *Publisher) PathFor(topic string) string {
	return strings.ReplaceAll(p.pathTemplate, TopicPlaceholder, topic)
}

func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("io publisher is closed")
	}

	of, err := p.open(p.PathFor(topic))
	if err != nil {
		return err
	}
	for _, msg := range messages {
		if _, err := of.w.Write(msg.Payload); err != nil {
			return fmt.Errorf("write %s: %w", of.f.Name(), err)
		}
		if err := of.w.WriteByte('\n'); err != nil {
			return fmt.Errorf("write %s: %w", of.f.Name(), err)
		}
	}
	if err := of.w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", of.f.Name(), err)
	}
	return nil
}

func (p *Publisher) open(path string) (*openFile, error) {
	if of, ok := p.files[path]; ok {
		return of, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	p.logger.Debug("Opened output file", watermill.LogFields{"path": path})
	of := &openFile{f: f, w: bufio.NewWriterSize(f, 1<<20)}
	p.files[path] = of
	return of, nil
}

// Close flushes and closes every open file.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for _, of := range p.files {
		errs = append(errs, of.w.Flush(), of.f.Close())
	}
	p.files = nil
	return errors.Join(errs...)
}
