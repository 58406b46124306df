// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package logging

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	dialTimeout  = 2 * time.Second
	writeTimeout = 5 * time.Second
	redialDelay  = time.Second
)

var stderr io.Writer = os.Stderr

// LogstashWriter ships newline-delimited JSON to a Logstash TCP input. Write
// never blocks: records go through a bounded queue and are dropped when it
// is full or when the connection is down.
type LogstashWriter struct {
	addr  string
	queue chan []byte
	done  chan struct{}
	wg    sync.WaitGroup

	closeOnce sync.Once
	closed    atomic.Bool
	dropped   atomic.Int64

	dial func(network, addr string, timeout time.Duration) (net.Conn, error)
}

func NewLogstashWriter(addr string, queueSize int) *LogstashWriter {
	if queueSize <= 0 {
		queueSize = 1
	}
	w := &LogstashWriter{
		addr:  addr,
		queue: make(chan []byte, queueSize),
		done:  make(chan struct{}),
		dial:  net.DialTimeout,
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *LogstashWriter) Addr() string {
	return w.addr
}

// Write queues one record. slog handlers call it once per record.
func (w *LogstashWriter) Write(p []byte) (int, error) {
	if w.closed.Load() {
		w.dropped.Add(1)
		return len(p), nil
	}
	line := make([]byte, len(p))
	copy(line, p)
	select {
	case w.queue <- line:
	default:
		w.dropped.Add(1)
	}
	return len(p), nil
}

// Dropped is the number of records discarded so far.
func (w *LogstashWriter) Dropped() int64 {
	return w.dropped.Load()
}

// Close sends what is already queued, best effort, and disconnects.
func (w *LogstashWriter) Close() error {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		close(w.done)
	})
	w.wg.Wait()
	return nil
}

type logstashConn struct {
	conn     net.Conn
	buf      *bufio.Writer
	lastFail time.Time
	warned   bool
}

func (w *LogstashWriter) run() {
	defer w.wg.Done()
	c := &logstashConn{}
	defer func() {
		if c.conn != nil {
			_ = c.buf.Flush()
			_ = c.conn.Close()
		}
	}()

	for {
		select {
		case line := <-w.queue:
			w.send(c, line)
		case <-w.done:
			for {
				select {
				case line := <-w.queue:
					w.send(c, line)
				default:
					return
				}
			}
		}
	}
}

func (w *LogstashWriter) send(c *logstashConn, line []byte) {
	if c.conn == nil {
		if time.Since(c.lastFail) < redialDelay {
			w.dropped.Add(1)
			return
		}
		conn, err := w.dial("tcp", w.addr, dialTimeout)
		if err != nil {
			c.lastFail = time.Now()
			w.dropped.Add(1)
			if !c.warned {
				// the default logger may route back here
				c.warned = true
				slog.New(slog.NewTextHandler(stderr, nil)).Warn("Logstash connection failed",
					slog.String("address", w.addr), slog.Any("error", err))
			}
			return
		}
		c.warned = false
		c.conn = conn
		c.buf = bufio.NewWriter(conn)
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := c.buf.Write(line)
	if err == nil && len(w.queue) == 0 {
		err = c.buf.Flush()
	}
	if err != nil {
		w.dropped.Add(1)
		_ = c.conn.Close()
		c.conn = nil
		c.lastFail = time.Now()
	}
}
