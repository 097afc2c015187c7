package logbook

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/sweeney/home-controller/internal/device"
	"github.com/sweeney/home-controller/internal/sensor"
)

// Default file names inside the data directory.
const (
	DefaultReadingFile = "sensor_data.csv"
	DefaultActionFile  = "device_logs.csv"
)

var (
	readingHeader = []string{"Timestamp", "Temperature"}
	actionHeader  = []string{"Timestamp", "Device", "Action"}
)

// csvFile is an append-only CSV file with a fixed header. The file is
// opened, written and closed on every append so a crash never leaves a
// buffered row behind.
type csvFile struct {
	path   string
	header []string
	mu     sync.Mutex
}

// init creates the file with its header if it does not exist yet.
func (f *csvFile) init() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appendLocked(nil)
}

func (f *csvFile) append(row []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.appendLocked(row)
}

func (f *csvFile) appendLocked(row []string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrPersistence, f.path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", ErrPersistence, f.path, err)
	}

	w := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := w.Write(f.header); err != nil {
			return fmt.Errorf("%w: write header %s: %w", ErrPersistence, f.path, err)
		}
	}
	if row != nil {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("%w: write %s: %w", ErrPersistence, f.path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flush %s: %w", ErrPersistence, f.path, err)
	}
	return file.Close()
}

// rows returns every data row, without the header. A missing file has no rows.
func (f *csvFile) rows() ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrPersistence, f.path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(f.header)

	var out [][]string
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrPersistence, f.path, err)
		}
		if first {
			first = false
			if rec[0] == f.header[0] {
				continue
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// ActionCSV is the action log file: Timestamp,Device,Action.
type ActionCSV struct {
	file csvFile
}

// NewActionCSV returns an action log at path. Nothing is touched until
// Init or the first append.
func NewActionCSV(path string) *ActionCSV {
	return &ActionCSV{file: csvFile{path: path, header: actionHeader}}
}

// Init creates the file with its header if missing.
func (l *ActionCSV) Init() error { return l.file.init() }

// Path returns the file path.
func (l *ActionCSV) Path() string { return l.file.path }

// AppendAction writes one row.
func (l *ActionCSV) AppendAction(e ActionEntry) error {
	return l.file.append([]string{e.Timestamp(), e.DeviceID, string(e.Action)})
}

// RecentActions returns the last limit rows, oldest first. Origin is not
// stored in the CSV and is left empty.
func (l *ActionCSV) RecentActions(limit int) ([]ActionEntry, error) {
	rows, err := l.file.rows()
	if err != nil {
		return nil, err
	}
	rows = tail(rows, limit)

	out := make([]ActionEntry, 0, len(rows))
	for _, rec := range rows {
		ts, err := time.ParseInLocation(sensor.TimestampLayout, rec[0], time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrMalformedRecord, rec[0], err)
		}
		state, err := device.ParseState(rec[2])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
		}
		out = append(out, ActionEntry{Time: ts, DeviceID: rec[1], Action: state})
	}
	return out, nil
}

// ReadingCSV is the reading log file: Timestamp,Temperature.
type ReadingCSV struct {
	file csvFile
}

// NewReadingCSV returns a reading log at path.
func NewReadingCSV(path string) *ReadingCSV {
	return &ReadingCSV{file: csvFile{path: path, header: readingHeader}}
}

// Init creates the file with its header if missing.
func (l *ReadingCSV) Init() error { return l.file.init() }

// Path returns the file path.
func (l *ReadingCSV) Path() string { return l.file.path }

// AppendReading writes one row with the temperature at two decimal places.
func (l *ReadingCSV) AppendReading(r sensor.Reading) error {
	return l.file.append([]string{r.Timestamp(), strconv.FormatFloat(r.Value, 'f', 2, 64)})
}

// RecentReadings returns the last limit rows, oldest first.
func (l *ReadingCSV) RecentReadings(limit int) ([]sensor.Reading, error) {
	rows, err := l.file.rows()
	if err != nil {
		return nil, err
	}
	rows = tail(rows, limit)

	out := make([]sensor.Reading, 0, len(rows))
	for _, rec := range rows {
		ts, err := time.ParseInLocation(sensor.TimestampLayout, rec[0], time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrMalformedRecord, rec[0], err)
		}
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrMalformedRecord, rec[1], err)
		}
		out = append(out, sensor.Reading{Time: ts, Value: v})
	}
	return out, nil
}
