// Package sqlite stores published records in a SQLite table, one row per
// message, so a run can be queried locally without a broker.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/drblury/abrflow/internal/runtime/jsoncodec"
	"github.com/drblury/abrflow/internal/runtime/metadata"
	"github.com/drblury/abrflow/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "sqlite"

// DefaultFilePath is used when no file is configured.
const DefaultFilePath = "abrflow.db"

func init() {
	Register()
}

// Register adds the sqlite sink to the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.SQLiteCapabilities)
}

// Build opens the database and creates the schema.
func Build(_ context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	p, err := New(cfg.GetSQLiteFile(), logger)
	if err != nil {
		return transport.Transport{}, err
	}
	return transport.Transport{Publisher: p}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.SQLiteCapabilities
}

// Publisher inserts messages into the messages table. A Publish call is one
// transaction; re-publishing a known UUID is a no-op.
type Publisher struct {
	db     *sql.DB
	logger watermill.LoggerAdapter

	mu     sync.Mutex
	closed bool
}

// New opens path, which may be ":memory:".
func New(path string, logger watermill.LoggerAdapter) (*Publisher, error) {
	if path == "" {
		path = DefaultFilePath
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// one connection keeps ":memory:" databases alive and serialises writes
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	p := &Publisher{db: db, logger: logger}
	if err := p.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return p, nil
}

func (p *Publisher) initSchema() error {
	_, err := p.db.Exec(`
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid TEXT NOT NULL UNIQUE,
		topic TEXT NOT NULL,
		abn TEXT,
		payload BLOB NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_messages_topic ON messages(topic, id);
	CREATE INDEX IF NOT EXISTS idx_messages_abn ON messages(abn);
	`)
	return err
}

func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("sqlite publisher is closed")
	}

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			p.logger.Error("failed to rollback transaction", err, nil)
		}
	}()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO messages (uuid, topic, abn, payload, metadata) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, msg := range messages {
		meta, err := jsoncodec.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if _, err := stmt.Exec(msg.UUID, topic, nullable(msg.Metadata.Get(metadata.KeyABN)), msg.Payload, string(meta)); err != nil {
			return fmt.Errorf("failed to insert message %s: %w", msg.UUID, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of rows stored for topic.
func (p *Publisher) Count(ctx context.Context, topic string) (int64, error) {
	var n int64
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE topic = ?`, topic).Scan(&n)
	return n, err
}

// Payloads returns the stored payloads of topic in insertion order.
func (p *Publisher) Payloads(ctx context.Context, topic string) ([][]byte, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT payload FROM messages WHERE topic = ? ORDER BY id`, topic)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		out = append(out, payload)
	}
	return out, rows.Err()
}

// Close closes the database.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
