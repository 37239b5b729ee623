package acquisition

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roman-kulish/geomag-logger/internal/record"
)

// DefaultBatchSize is the number of records buffered before a flush.
const DefaultBatchSize = 11

// PositionProvider returns the current position of the platform.
type PositionProvider interface {
	Coordinates() (record.Position, error)
}

// IMU is an inertial measurement unit with a magnetometer.
type IMU interface {
	Compass() (record.Vector, error)
	GyroscopeOrientation() (record.Orientation, error)
	AccelerometerOrientation() (record.Orientation, error)
	GyroscopeRaw() (record.Vector, error)
	AccelerometerRaw() (record.Vector, error)
}

// Thermometer reads a temperature in degrees C.
type Thermometer interface {
	Temperature() (float64, error)
}

// BatchWriter persists encoded rows.
type BatchWriter interface {
	AppendBatch(rows [][]string) error
}

// Sources groups the collaborators a Task reads from on every tick.
type Sources struct {
	Position PositionProvider
	IMU      IMU
	Ambient  Thermometer
	CPU      Thermometer
}

func (s Sources) validate() error {
	switch {
	case s.Position == nil:
		return errors.New("position provider required")
	case s.IMU == nil:
		return errors.New("IMU required")
	case s.Ambient == nil:
		return errors.New("ambient thermometer required")
	case s.CPU == nil:
		return errors.New("CPU thermometer required")
	}
	return nil
}

// WithLogger sets the logger for the task
func WithLogger(logger *slog.Logger) func(*Task) {
	return func(t *Task) {
		t.logger = logger
	}
}

// WithBatchSize sets the number of records buffered before a flush.
func WithBatchSize(size int) func(*Task) {
	return func(t *Task) {
		t.batchSize = size
	}
}

// WithClock sets the clock used to timestamp records.
func WithClock(clock func() time.Time) func(*Task) {
	return func(t *Task) {
		t.clock = clock
	}
}

// Task samples every source once per Acquire call, buffers the resulting
// records and writes them out in batches.
type Task struct {
	sources Sources
	writer  BatchWriter
	batch   *Batch

	batchSize int
	clock     func() time.Time
	logger    *slog.Logger
}

// NewTask creates a Task reading from sources and flushing into writer.
func NewTask(sources Sources, writer BatchWriter, options ...func(*Task)) (*Task, error) {
	if err := sources.validate(); err != nil {
		return nil, err
	}
	if writer == nil {
		return nil, errors.New("writer required")
	}

	t := Task{
		sources:   sources,
		writer:    writer,
		batchSize: DefaultBatchSize,
		clock:     time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&t)
	}

	batch, err := NewBatch(t.batchSize)
	if err != nil {
		return nil, err
	}
	t.batch = batch

	return &t, nil
}

// Acquire reads one record and buffers it, flushing the batch once it is
// full. A failing source aborts the tick before anything is buffered, so a
// record is either complete or absent.
func (t *Task) Acquire() error {
	r, err := t.read()
	if err != nil {
		return err
	}

	t.batch.Append(r)

	if t.batch.IsFull() {
		return t.Flush()
	}
	return nil
}

// Flush writes all buffered records and empties the batch. The batch is
// emptied even when the write fails so it never grows past its capacity.
func (t *Task) Flush() error {
	if t.batch.Size() == 0 {
		return nil
	}
	defer t.batch.Clear()

	rows := t.batch.Rows()
	if err := t.writer.AppendBatch(rows); err != nil {
		return fmt.Errorf("flushing %d records: %w", len(rows), err)
	}

	t.logger.Debug("batch flushed", slog.Int("records", len(rows)))
	return nil
}

// Pending returns the number of buffered, not yet written records.
func (t *Task) Pending() int {
	return t.batch.Size()
}

func (t *Task) read() (r record.Record, err error) {
	steps := []struct {
		msg string
		fn  func() error
	}{
		{"reading position", func() (err error) { r.Position, err = t.sources.Position.Coordinates(); return }},
		{"reading magnetometer", func() (err error) { r.Magnetometer, err = t.sources.IMU.Compass(); return }},
		{"reading gyroscope orientation", func() (err error) { r.GyroOrientation, err = t.sources.IMU.GyroscopeOrientation(); return }},
		{"reading accelerometer orientation", func() (err error) { r.AccelOrientation, err = t.sources.IMU.AccelerometerOrientation(); return }},
		{"reading gyroscope", func() (err error) { r.GyroRaw, err = t.sources.IMU.GyroscopeRaw(); return }},
		{"reading accelerometer", func() (err error) { r.AccelRaw, err = t.sources.IMU.AccelerometerRaw(); return }},
		{"reading temperature", func() (err error) { r.Temperature, err = t.sources.Ambient.Temperature(); return }},
		{"reading CPU temperature", func() (err error) { r.CPUTemperature, err = t.sources.CPU.Temperature(); return }},
	}
	for _, s := range steps {
		if err = s.fn(); err != nil {
			return record.Record{}, fmt.Errorf("%s: %w", s.msg, err)
		}
	}

	r.Timestamp = t.clock().UnixNano()
	return r, nil
}
