package postgres

import "time"

// Config holds the connection settings for the driver. ConnString is the
// only required field; the pool knobs fall back to the package defaults.
type Config struct {
	ConnString        string
	MaxConns          int32
	MinConns          int32
	HealthCheckPeriod time.Duration
}
