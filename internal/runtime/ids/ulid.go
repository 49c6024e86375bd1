package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns the identifier stamped on every message of one pipeline run.
func NewRunID() string {
	return newULID(time.Now())
}

// NewMessageID returns a time-sortable ULID for a published record or rejection.
// IDs created within one process are strictly increasing, so message order can
// be recovered from the ids alone.
func NewMessageID() string {
	return newULID(time.Now())
}

// Timestamp extracts the creation time encoded in id.
func Timestamp(id string) (time.Time, error) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}

func newULID(at time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(at), entropy).String()
}
