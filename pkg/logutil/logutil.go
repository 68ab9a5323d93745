// Package logutil provides shared utilities for logging. Loggers are silent
// until an output is installed with SetOutput or SetOutputFile.
package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	out     io.Writer = io.Discard
	outFile *os.File
	loggers []*log.Logger
)

// GetLogger gets a logger with the given prefix. Conventionally the prefix
// identifies the package, like "[eval] ".
func GetLogger(prefix string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	logger := log.New(out, prefix, log.LstdFlags)
	loggers = append(loggers, logger)
	return logger
}

// SetOutput redirects the output of all loggers, current and future, to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	closeOutFile()
	out = w
	for _, logger := range loggers {
		logger.SetOutput(out)
	}
}

// SetOutputFile redirects the output of all loggers to the named file. An
// empty name reverts to discarding output.
func SetOutputFile(fname string) error {
	if fname == "" {
		SetOutput(io.Discard)
		return nil
	}
	f, err := os.OpenFile(fname, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("cannot open log file: %w", err)
	}
	mu.Lock()
	defer mu.Unlock()
	closeOutFile()
	out, outFile = f, f
	for _, logger := range loggers {
		logger.SetOutput(out)
	}
	return nil
}

func closeOutFile() {
	if outFile != nil {
		outFile.Close()
		outFile = nil
	}
}
