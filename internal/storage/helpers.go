package storage

import (
	"database/sql"
	"errors"

	"github.com/roman-kulish/geomag-logger/internal/record"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

func sampleValues(missionID int64, r record.Record) []any {
	return []any{
		missionID,
		r.Timestamp,
		r.Temperature,
		r.CPUTemperature,
		r.Magnetometer.X,
		r.Magnetometer.Y,
		r.Magnetometer.Z,
		r.GyroOrientation.Pitch,
		r.GyroOrientation.Roll,
		r.GyroOrientation.Yaw,
		r.AccelOrientation.Pitch,
		r.AccelOrientation.Roll,
		r.AccelOrientation.Yaw,
		r.GyroRaw.X,
		r.GyroRaw.Y,
		r.GyroRaw.Z,
		r.AccelRaw.X,
		r.AccelRaw.Y,
		r.AccelRaw.Z,
		r.Position.Latitude,
		r.Position.Longitude,
		r.Position.Elevation,
	}
}

func sampleDest(r *record.Record) []any {
	return []any{
		&r.Timestamp,
		&r.Temperature,
		&r.CPUTemperature,
		&r.Magnetometer.X,
		&r.Magnetometer.Y,
		&r.Magnetometer.Z,
		&r.GyroOrientation.Pitch,
		&r.GyroOrientation.Roll,
		&r.GyroOrientation.Yaw,
		&r.AccelOrientation.Pitch,
		&r.AccelOrientation.Roll,
		&r.AccelOrientation.Yaw,
		&r.GyroRaw.X,
		&r.GyroRaw.Y,
		&r.GyroRaw.Z,
		&r.AccelRaw.X,
		&r.AccelRaw.Y,
		&r.AccelRaw.Z,
		&r.Position.Latitude,
		&r.Position.Longitude,
		&r.Position.Elevation,
	}
}
