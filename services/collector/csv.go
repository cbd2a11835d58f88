package collector

import (
	"encoding/csv"
	"io"
	"log"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/smartvision/visionhome/detection"
)

// CSVStore appends records to a flat file with a header row, in the format
// the dashboard reads.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

func (self *CSVStore) Append(r detection.Record) error {
	self.mu.Lock()
	defer self.mu.Unlock()

	f, err := os.OpenFile(self.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "opening %s", self.path)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		w.Write(detection.Header)
	}
	w.Write(r.Row())
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrapf(err, "writing %s", self.path)
	}
	return nil
}

// All reads the whole file. A missing file has no records; rows that fail
// to parse are logged and skipped.
func (self *CSVStore) All() ([]detection.Record, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	records := []detection.Record{}
	f, err := os.Open(self.path)
	if os.IsNotExist(err) {
		return records, nil
	}
	if err != nil {
		return records, errors.Wrapf(err, "opening %s", self.path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	for line := 1; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return records, errors.Wrapf(err, "reading %s", self.path)
		}
		if line == 1 && len(row) > 0 && row[0] == detection.Header[0] {
			continue
		}
		record, err := detection.FromRow(row)
		if err != nil {
			log.Printf("collector: %s line %d: %s", self.path, line, err)
			continue
		}
		records = append(records, record)
	}
	reverse(records)
	return records, nil
}

func (self *CSVStore) Close() error {
	return nil
}
