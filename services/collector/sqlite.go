package collector

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/smartvision/visionhome/detection"
)

// SQLiteStore keeps records in a single table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	// a single connection serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	self := &SQLiteStore{db: db}
	if err := self.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrating database")
	}
	return self, nil
}

func (self *SQLiteStore) migrate() error {
	_, err := self.db.Exec(`
	CREATE TABLE IF NOT EXISTS detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		object TEXT NOT NULL,
		confidence REAL NOT NULL,
		hour INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_detections_object ON detections(object);
	`)
	return err
}

func (self *SQLiteStore) Append(r detection.Record) error {
	_, err := self.db.Exec(
		`INSERT INTO detections (timestamp, object, confidence, hour) VALUES (?, ?, ?, ?)`,
		r.Timestamp, r.Object, r.Confidence, r.Hour)
	return errors.Wrap(err, "inserting detection")
}

func (self *SQLiteStore) All() ([]detection.Record, error) {
	records := []detection.Record{}
	rows, err := self.db.Query(`SELECT timestamp, object, confidence, hour FROM detections ORDER BY id DESC`)
	if err != nil {
		return records, errors.Wrap(err, "querying detections")
	}
	defer rows.Close()
	for rows.Next() {
		var r detection.Record
		if err := rows.Scan(&r.Timestamp, &r.Object, &r.Confidence, &r.Hour); err != nil {
			return records, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (self *SQLiteStore) Close() error {
	return self.db.Close()
}
