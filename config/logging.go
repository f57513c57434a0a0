package config

import (
	"io"
	"log"
	"os"
	"path/filepath"
)

// LogWriter is shared by the standard logger and gorm.
var LogWriter io.Writer = os.Stdout

// LogFilePath is LOG_DIR/ip-tracking.log, LOG_DIR defaulting to ./logs.
func LogFilePath() string {
	return filepath.Join(stringEnv("LOG_DIR", "logs"), "ip-tracking.log")
}

// InitLogging tees the standard logger into the log file. The returned file
// is nil when it could not be opened; logging then stays on stdout.
func InitLogging() (*os.File, io.Writer) {
	path := LogFilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("Warning: Failed to create logs directory: %v", err)
	}

	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("Warning: Failed to open log file: %v", err)
		LogWriter = os.Stdout
	} else {
		LogWriter = io.MultiWriter(os.Stdout, logFile)
	}
	log.SetOutput(LogWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return logFile, LogWriter
}
