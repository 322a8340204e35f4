package storage

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// ErrorLog appends caught errors to a plain-text file, one line per error:
//
//	<timestamp> - <context message>: <error>
type ErrorLog struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewErrorLog(path string) *ErrorLog {
	return &ErrorLog{path: path, now: time.Now}
}

func (l *ErrorLog) Append(msg string, cause error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open error log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s - %s: %v\n", l.now().Format(timeLayout), msg, cause)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append error log: %w", err)
	}
	return nil
}
