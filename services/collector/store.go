package collector

import (
	"github.com/pkg/errors"

	"github.com/smartvision/visionhome/detection"
)

// Store persists detection records.
type Store interface {
	Append(r detection.Record) error
	// All returns every record, most recent first.
	All() ([]detection.Record, error)
	Close() error
}

// OpenStore opens the named backend at path.
func OpenStore(kind, path string) (Store, error) {
	switch kind {
	case "", "csv":
		return NewCSVStore(path), nil
	case "sqlite":
		return NewSQLiteStore(path)
	}
	return nil, errors.Errorf("unknown store %q", kind)
}

func reverse(rs []detection.Record) {
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
}
