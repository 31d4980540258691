package logging

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// Defaults applied by NewLogstashWriter when the corresponding Config field
// is zero.
const (
	defaultDialTimeout   = 2 * time.Second
	defaultWriteTimeout  = time.Second
	defaultRetryInterval = 5 * time.Second
)

// Config tunes the connection behavior of a LogstashWriter.
type Config struct {
	DialTimeout   time.Duration
	WriteTimeout  time.Duration
	RetryInterval time.Duration
}

// LogstashWriter forwards log lines to a Logstash TCP input without ever
// blocking the caller on network trouble. While Logstash is unreachable it
// drops lines and retries the connection after a cool-down, so a dead log
// pipeline can never take the API down with it.
type LogstashWriter struct {
	addr string
	cfg  Config

	mu      sync.Mutex
	conn    net.Conn
	retryAt time.Time
	closed  bool
}

// NewLogstashWriter returns a writer that ships log output to the Logstash
// TCP input at addr. Safe for concurrent use.
func NewLogstashWriter(addr string, cfg Config) (*LogstashWriter, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("logstash: empty address")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	return &LogstashWriter{addr: addr, cfg: cfg}, nil
}

// Write implements io.Writer. Lines are newline-terminated on the wire, the
// way the Logstash json_lines codec expects. Write never returns a transport
// error: the line is either shipped or dropped.
func (w *LogstashWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	line := make([]byte, len(p), len(p)+1)
	copy(line, p)
	if line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, io.ErrClosedPipe
	}
	if !w.connectLocked() {
		return len(p), nil
	}

	_ = w.conn.SetWriteDeadline(time.Now().Add(w.cfg.WriteTimeout))
	if _, err := w.conn.Write(line); err != nil {
		w.dropConnLocked()
		return len(p), nil
	}
	return len(p), nil
}

// Close tears down the TCP connection. Further writes fail with
// io.ErrClosedPipe.
func (w *LogstashWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}

func (w *LogstashWriter) connectLocked() bool {
	if w.conn != nil {
		return true
	}
	if time.Now().Before(w.retryAt) {
		return false
	}
	conn, err := net.DialTimeout("tcp", w.addr, w.cfg.DialTimeout)
	if err != nil {
		w.retryAt = time.Now().Add(w.cfg.RetryInterval)
		return false
	}
	w.conn = conn
	w.retryAt = time.Time{}
	return true
}

func (w *LogstashWriter) dropConnLocked() {
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
	w.retryAt = time.Now().Add(w.cfg.RetryInterval)
}
