// Package logger provides centralized logging for the application.
// File: logger/logger.go
package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// ------------------- global loggers -------------------

// four logger levels accessible throughout the application
var (
	Info  *log.Logger
	Warn  *log.Logger
	Error *log.Logger
	Debug *log.Logger
)

const flags = log.Ldate | log.Ltime | log.Lshortfile

// ------------------- logger initialization -------------------

// InitLogger reinitializes the loggers so they write to stdout and to a
// timestamped file under dir. The directory is created when missing.
func InitLogger(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	logFileName := filepath.Join(dir, time.Now().Format("2006-01-02_15-04-05")+".log")
	file, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) // #nosec
	if err != nil {
		return err
	}

	configure(io.MultiWriter(os.Stdout, file))
	return nil
}

// configure points every logger at w with the shared prefixes and flags.
func configure(w io.Writer) {
	Info = log.New(w, "INFO: ", flags)
	Warn = log.New(w, "WARN: ", flags)
	Error = log.New(w, "ERROR: ", flags)
	Debug = log.New(w, "DEBUG: ", flags)
}

// SetLogLevel adjusts the Debug logger's output depending on environment.
// In production debug output is discarded entirely.
func SetLogLevel(env string) {
	if env == "production" {
		Debug.SetOutput(io.Discard)
	}
}

// stdout-only until main decides where log files go
func init() {
	configure(os.Stdout)
}
