package middleware

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/shrek82/jrecord/core"
)

// SlowLogMiddleware logs store operations that take longer than the specified threshold.
type SlowLogMiddleware struct {
	Threshold time.Duration
	LogPath   string
	logger    *log.Logger
	file      *os.File
}

// NewSlowLog creates a new SlowLogMiddleware.
// threshold: operations taking longer than this will be logged.
// logPath: path to the log file. If empty, logs to standard output.
func NewSlowLog(threshold time.Duration, logPath string) *SlowLogMiddleware {
	return &SlowLogMiddleware{
		Threshold: threshold,
		LogPath:   logPath,
	}
}

// SetOutput sets the output destination for the logger.
func (m *SlowLogMiddleware) SetOutput(w io.Writer) {
	m.logger = log.New(w, "[SLOW STORE] ", log.LstdFlags)
}

func (m *SlowLogMiddleware) Name() string {
	return "SlowLog"
}

func (m *SlowLogMiddleware) Init(e *core.Engine) error {
	// If logger is already set (e.g. by SetOutput), don't overwrite it
	if m.logger != nil {
		return nil
	}

	if m.LogPath != "" {
		f, err := os.OpenFile(m.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open slow log file: %w", err)
		}
		m.file = f
		m.logger = log.New(f, "[SLOW STORE] ", log.LstdFlags)
	} else {
		m.logger = log.New(os.Stdout, "[SLOW STORE] ", log.LstdFlags)
	}
	return nil
}

func (m *SlowLogMiddleware) Shutdown() error {
	if m.file != nil {
		return m.file.Close()
	}
	return nil
}

func (m *SlowLogMiddleware) Process(ctx context.Context, op *core.Operation, next core.OpFunc) (*core.OpResult, error) {
	start := time.Now()
	res, err := next(ctx, op)
	duration := time.Since(start)

	if duration >= m.Threshold {
		m.logger.Printf("duration=%v | op=%s | collection=%s | id=%v | err=%v", duration, op.Kind, op.Collection, resultID(op, res), err)
	}

	return res, err
}

func resultID(op *core.Operation, res *core.OpResult) any {
	if op.ID != nil || res == nil {
		return op.ID
	}
	return res.ID
}
