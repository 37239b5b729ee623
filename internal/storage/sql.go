package storage

import (
	_ "embed"
)

//go:embed schema.sql
var initSchemaSQL string

//go:embed indexes.sql
var initIndexesSQL string

const (
	insertMissionSQL = `
INSERT INTO missions (created_at,
                      source,
                      config)
VALUES (?, ?, ?)`

	selectMissionSQL = `
SELECT 
    id, 
    created_at, 
    source, 
    config 
FROM missions 
WHERE 
    id = ?`

	selectMissionsSQL = `
SELECT 
    id, 
    created_at, 
    source, 
    config 
FROM missions
ORDER BY created_at, id`

	insertSamplesSQL = `
INSERT INTO samples (mission_id,
                     timestamp,
                     temperature,
                     cpu_temp,
                     magnet_x,
                     magnet_y,
                     magnet_z,
                     gyro_pitch,
                     gyro_roll,
                     gyro_yaw,
                     accel_pitch,
                     accel_roll,
                     accel_yaw,
                     gyro_x,
                     gyro_y,
                     gyro_z,
                     accel_x,
                     accel_y,
                     accel_z,
                     latitude,
                     longitude,
                     elevation)
VALUES `

	samplePlaceholder = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	sampleColumns     = 22

	selectTimeBoundsSQL = `
SELECT 
    MIN(timestamp), 
    MAX(timestamp)
FROM samples
WHERE mission_id = ?`

	selectSamplesSQL = `
SELECT 
    timestamp,
    temperature,
    cpu_temp,
    magnet_x,
    magnet_y,
    magnet_z,
    gyro_pitch,
    gyro_roll,
    gyro_yaw,
    accel_pitch,
    accel_roll,
    accel_yaw,
    gyro_x,
    gyro_y,
    gyro_z,
    accel_x,
    accel_y,
    accel_z,
    latitude,
    longitude,
    elevation
FROM samples
WHERE 
    mission_id = ?
    AND timestamp BETWEEN ? AND ?
ORDER BY timestamp, id`
)
