package logger

// SetupLogger installs the process-wide logger; unknown levels fall back to info.
func SetupLogger(logLevel LogLevel, logJSON, logSource bool) {
	switch logLevel {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel, DisabledLevel:
	default:
		logLevel = InfoLevel
	}
	Init(&Config{
		Level:      logLevel,
		JSON:       logJSON,
		AddSource:  logSource,
		TimeFormat: "15:04:05",
	})
}
