package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/nerrad567/gateway-module-core/model"
	"github.com/nerrad567/gateway-module-core/persistence"
)

const (
	dirPermissions  = 0o750
	filePermissions = 0o600
	busyTimeoutMs   = 5000
)

// queue item kinds, stored in the kind column of the queue table.
const (
	kindReading = "reading"
	kindAlarm   = "alarm"
)

// slot item kinds, stored in the kind column of the slot table.
const (
	kindStatus        = "status"
	kindConfiguration = "configuration"
)

// Store is a durable persistence.Store backed by a single SQLite file.
//
// Thread Safety:
//   - All methods are safe for concurrent use; SQLite serialises writers
//     through the single pooled connection.
type Store struct {
	db *sql.DB
}

// Open creates (or reopens) a SQLite-backed store at the given path.
//
// It enables WAL mode and a busy timeout, creates the schema if missing, and
// restricts file permissions to the owning user.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	connStr := fmt.Sprintf(
		"file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL",
		path, busyTimeoutMs,
	)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	// SQLite supports only one writer; a single pooled connection avoids
	// SQLITE_BUSY churn between producers and the drain.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, err
	}

	_ = os.Chmod(path, filePermissions) //nolint:errcheck // file may not exist until first write

	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS queue_items (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		key  TEXT NOT NULL,
		item TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_queue_kind_key ON queue_items(kind, key, id);

	CREATE TABLE IF NOT EXISTS slot_items (
		kind TEXT NOT NULL,
		key  TEXT NOT NULL,
		item TEXT NOT NULL,
		seq  INTEGER NOT NULL,
		PRIMARY KEY (kind, key)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// storedReading is the JSON row format for sensor readings.
type storedReading struct {
	Reference string   `json:"reference"`
	Values    []string `json:"values"`
	RTC       uint64   `json:"rtc"`
}

// storedAlarm is the JSON row format for alarms.
type storedAlarm struct {
	Reference string `json:"reference"`
	Active    bool   `json:"active"`
	RTC       uint64 `json:"rtc"`
}

// PutSensorReading appends a reading to the key's queue.
func (s *Store) PutSensorReading(key string, reading model.SensorReading) error {
	return s.pushQueue(kindReading, key, storedReading{
		Reference: reading.Reference,
		Values:    reading.Values,
		RTC:       reading.RTC,
	})
}

// GetSensorReadings peeks at up to n readings from the front of the key's queue.
func (s *Store) GetSensorReadings(key string, n int) ([]model.SensorReading, error) {
	rows, err := s.peekQueue(kindReading, key, n)
	if err != nil {
		return nil, err
	}

	out := make([]model.SensorReading, 0, len(rows))
	for _, raw := range rows {
		var r storedReading
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("decoding reading: %w", err)
		}
		out = append(out, model.SensorReading{Reference: r.Reference, Values: r.Values, RTC: r.RTC})
	}
	return out, nil
}

// RemoveSensorReadings pops up to n readings from the front of the key's queue.
func (s *Store) RemoveSensorReadings(key string, n int) error {
	return s.popQueue(kindReading, key, n)
}

// GetSensorReadingsKeys returns the keys holding readings, in insertion order.
func (s *Store) GetSensorReadingsKeys() []string {
	return s.queueKeys(kindReading)
}

// PutAlarm appends an alarm to the key's queue.
func (s *Store) PutAlarm(key string, alarm model.Alarm) error {
	return s.pushQueue(kindAlarm, key, storedAlarm{
		Reference: alarm.Reference,
		Active:    alarm.Active,
		RTC:       alarm.RTC,
	})
}

// GetAlarms peeks at up to n alarms from the front of the key's queue.
func (s *Store) GetAlarms(key string, n int) ([]model.Alarm, error) {
	rows, err := s.peekQueue(kindAlarm, key, n)
	if err != nil {
		return nil, err
	}

	out := make([]model.Alarm, 0, len(rows))
	for _, raw := range rows {
		var a storedAlarm
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decoding alarm: %w", err)
		}
		out = append(out, model.Alarm{Reference: a.Reference, Active: a.Active, RTC: a.RTC})
	}
	return out, nil
}

// RemoveAlarms pops up to n alarms from the front of the key's queue.
func (s *Store) RemoveAlarms(key string, n int) error {
	return s.popQueue(kindAlarm, key, n)
}

// GetAlarmsKeys returns the keys holding alarms, in insertion order.
func (s *Store) GetAlarmsKeys() []string {
	return s.queueKeys(kindAlarm)
}

// PutActuatorStatus stores the status for the key, replacing any previous one.
func (s *Store) PutActuatorStatus(key string, status model.ActuatorStatus) error {
	return s.putSlot(kindStatus, key, status)
}

// GetActuatorStatus returns the stored status for the key, if any.
func (s *Store) GetActuatorStatus(key string) (model.ActuatorStatus, bool, error) {
	var status model.ActuatorStatus
	ok, err := s.getSlot(kindStatus, key, &status)
	return status, ok, err
}

// RemoveActuatorStatus drops the stored status for the key.
func (s *Store) RemoveActuatorStatus(key string) error {
	return s.removeSlot(kindStatus, key)
}

// GetActuatorStatusKeys returns the keys holding statuses, in insertion order.
func (s *Store) GetActuatorStatusKeys() []string {
	return s.slotKeys(kindStatus)
}

// PutConfiguration stores the snapshot for the device, replacing any previous one.
func (s *Store) PutConfiguration(deviceKey string, configuration model.ConfigurationSnapshot) error {
	return s.putSlot(kindConfiguration, deviceKey, configuration)
}

// GetConfiguration returns the stored snapshot for the device, if any.
func (s *Store) GetConfiguration(deviceKey string) (model.ConfigurationSnapshot, bool, error) {
	var snapshot model.ConfigurationSnapshot
	ok, err := s.getSlot(kindConfiguration, deviceKey, &snapshot)
	return snapshot, ok, err
}

// RemoveConfiguration drops the stored snapshot for the device.
func (s *Store) RemoveConfiguration(deviceKey string) error {
	return s.removeSlot(kindConfiguration, deviceKey)
}

// GetConfigurationKeys returns the device keys holding snapshots, in insertion order.
func (s *Store) GetConfigurationKeys() []string {
	return s.slotKeys(kindConfiguration)
}

// IsEmpty reports whether no items of any kind remain.
func (s *Store) IsEmpty() bool {
	var count int
	err := s.db.QueryRow(
		`SELECT (SELECT COUNT(*) FROM queue_items) + (SELECT COUNT(*) FROM slot_items)`,
	).Scan(&count)
	if err != nil {
		return false
	}
	return count == 0
}

func (s *Store) pushQueue(kind, key string, item any) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", kind, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO queue_items (kind, key, item) VALUES (?, ?, ?)`,
		kind, key, string(payload),
	)
	if err != nil {
		return fmt.Errorf("storing %s: %w", kind, err)
	}
	return nil
}

func (s *Store) peekQueue(kind, key string, n int) ([][]byte, error) {
	rows, err := s.db.Query(
		`SELECT item FROM queue_items WHERE kind = ? AND key = ? ORDER BY id LIMIT ?`,
		kind, key, n,
	)
	if err != nil {
		return nil, fmt.Errorf("reading %s queue: %w", kind, err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var out [][]byte
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", kind, err)
		}
		out = append(out, []byte(item))
	}
	return out, rows.Err()
}

func (s *Store) popQueue(kind, key string, n int) error {
	_, err := s.db.Exec(
		`DELETE FROM queue_items WHERE id IN (
			SELECT id FROM queue_items WHERE kind = ? AND key = ? ORDER BY id LIMIT ?
		)`,
		kind, key, n,
	)
	if err != nil {
		return fmt.Errorf("removing %s items: %w", kind, err)
	}
	return nil
}

func (s *Store) queueKeys(kind string) []string {
	rows, err := s.db.Query(
		`SELECT key FROM queue_items WHERE kind = ? GROUP BY key ORDER BY MIN(id)`,
		kind,
	)
	if err != nil {
		return nil
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return keys
		}
		keys = append(keys, key)
	}
	return keys
}

func (s *Store) slotKeys(kind string) []string {
	rows, err := s.db.Query(
		`SELECT key FROM slot_items WHERE kind = ? ORDER BY seq`,
		kind,
	)
	if err != nil {
		return nil
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return keys
		}
		keys = append(keys, key)
	}
	return keys
}

func (s *Store) putSlot(kind, key string, item any) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", kind, err)
	}

	// seq preserves first-insertion order for key listings even across
	// replacements of the same key.
	_, err = s.db.Exec(
		`INSERT INTO slot_items (kind, key, item, seq)
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM slot_items))
		 ON CONFLICT(kind, key) DO UPDATE SET item = excluded.item`,
		kind, key, string(payload),
	)
	if err != nil {
		return fmt.Errorf("storing %s: %w", kind, err)
	}
	return nil
}

func (s *Store) getSlot(kind, key string, out any) (bool, error) {
	var item string
	err := s.db.QueryRow(
		`SELECT item FROM slot_items WHERE kind = ? AND key = ?`,
		kind, key,
	).Scan(&item)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", kind, err)
	}
	if err := json.Unmarshal([]byte(item), out); err != nil {
		return false, fmt.Errorf("decoding %s: %w", kind, err)
	}
	return true, nil
}

func (s *Store) removeSlot(kind, key string) error {
	_, err := s.db.Exec(`DELETE FROM slot_items WHERE kind = ? AND key = ?`, kind, key)
	if err != nil {
		return fmt.Errorf("removing %s: %w", kind, err)
	}
	return nil
}

// compile-time interface check
var _ persistence.Store = (*Store)(nil)
