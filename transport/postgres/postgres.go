// Package postgres stores published records in a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/lib/pq"

	"github.com/drblury/abrflow/internal/runtime/jsoncodec"
	"github.com/drblury/abrflow/internal/runtime/metadata"
	"github.com/drblury/abrflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "postgres"

// DefaultSchemaName holds the messages table.
const DefaultSchemaName = "abrflow"

var schemaNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// OpenFunc allows overriding the database handle for testing.
var OpenFunc = func(dsn string) (*sql.DB, error) {
	return sql.Open("postgres", dsn)
}

func init() {
	Register()
}

// Register adds the sink under "postgres" and the "postgresql" alias.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.PostgresCapabilities)
	transport.RegisterWithCapabilities("postgresql", Build, transport.PostgresCapabilities)
}

// Build connects and creates the schema.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	p, err := New(ctx, Config{ConnectionString: cfg.GetPostgresURL()}, logger)
	if err != nil {
		return transport.Transport{}, err
	}
	return transport.Transport{Publisher: p}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.PostgresCapabilities
}

// Config holds PostgreSQL settings.
type Config struct {
	ConnectionString string
	// SchemaName must be a plain lower-case identifier.
	SchemaName   string
	MaxOpenConns int
	MaxIdleConns int
}

func (c Config) withDefaults() Config {
	if c.SchemaName == "" {
		c.SchemaName = DefaultSchemaName
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 4
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 2
	}
	return c
}

func (c Config) validate() error {
	if c.ConnectionString == "" {
		return errors.New("PostgreSQL connection string is required")
	}
	if !schemaNamePattern.MatchString(c.SchemaName) {
		return fmt.Errorf("invalid schema name %q", c.SchemaName)
	}
	return nil
}

// Publisher inserts messages into <schema>.messages. A Publish call is one
// transaction; re-publishing a known UUID is a no-op.
type Publisher struct {
	db     *sql.DB
	config Config
	logger watermill.LoggerAdapter

	mu     sync.Mutex
	closed bool
}

// New connects using cfg.
func New(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (*Publisher, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	db, err := OpenFunc(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	p := &Publisher{db: db, config: cfg, logger: logger}
	if err := p.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return p, nil
}

func (p *Publisher) table() string {
	return pq.QuoteIdentifier(p.config.SchemaName) + ".messages"
}

func (p *Publisher) initSchema(ctx context.Context) error {
	schema := pq.QuoteIdentifier(p.config.SchemaName)
	if _, err := p.db.ExecContext(ctx, `CREATE SCHEMA IF NOT EXISTS `+schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		id BIGSERIAL PRIMARY KEY,
		uuid TEXT NOT NULL UNIQUE,
		topic TEXT NOT NULL,
		abn TEXT,
		payload BYTEA NOT NULL,
		metadata JSONB DEFAULT '{}',
		created_at TIMESTAMPTZ DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS messages_topic_idx ON %[1]s(topic, id);
	CREATE INDEX IF NOT EXISTS messages_abn_idx ON %[1]s(abn);
	`, p.table()))
	return err
}

// InsertStatement is the statement Publish prepares.
func (p *Publisher) InsertStatement() string {
	return `INSERT INTO ` + p.table() + ` (uuid, topic, abn, payload, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (uuid) DO NOTHING`
}

func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("postgres publisher is closed")
	}

	ctx := context.Background()
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			p.logger.Error("failed to rollback transaction", err, nil)
		}
	}()

	stmt, err := tx.PrepareContext(ctx, p.InsertStatement())
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, msg := range messages {
		meta, err := jsoncodec.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		abn := sql.NullString{String: msg.Metadata.Get(metadata.KeyABN), Valid: msg.Metadata.Get(metadata.KeyABN) != ""}
		if _, err := stmt.ExecContext(ctx, msg.UUID, topic, abn, msg.Payload, string(meta)); err != nil {
			return fmt.Errorf("failed to insert message %s: %w", msg.UUID, err)
		}
	}
	return tx.Commit()
}

// Close closes the database handle.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}
