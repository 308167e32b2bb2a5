package logger

// SetupLogger builds a logger from CLI flag values and installs it as the
// process default.
func SetupLogger(logLevel string, logJSON, logSource bool) Logger {
	log := NewLogger(&Config{
		Level:      LogLevel(logLevel),
		JSON:       logJSON,
		AddSource:  logSource,
		TimeFormat: "15:04:05",
	})
	SetDefault(log)
	return log
}
