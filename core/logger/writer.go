package logger

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Sink is a destination that accepts lines at or above MinLevel.
type Sink struct {
	Writer   io.Writer
	MinLevel slog.Level
}

type routedSink struct {
	buf *bufio.Writer
	min slog.Level
}

type entry struct {
	level slog.Level
	data  []byte
}

// asyncWriter fans formatted lines out to level-routed sinks from a single goroutine.
type asyncWriter struct {
	queue    chan entry
	flushReq chan chan error
	done     chan struct{}
	once     sync.Once
	closeMu  sync.RWMutex
	closed   chan struct{}
	sinks    []routedSink
	sinkMu   sync.Mutex
	writeErr error
}

func newAsyncWriter(sinks []Sink, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	routed := make([]routedSink, 0, len(sinks))
	for _, s := range sinks {
		if s.Writer == nil {
			continue
		}
		routed = append(routed, routedSink{buf: bufio.NewWriterSize(s.Writer, bufSize), min: s.MinLevel})
	}
	aw := &asyncWriter{
		queue:    make(chan entry, 256),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
		closed:   make(chan struct{}),
		sinks:    routed,
	}
	go aw.loop()
	return aw
}

func (w *asyncWriter) loop() {
	for {
		select {
		case e, ok := <-w.queue:
			if !ok {
				w.flushAll()
				close(w.done)
				return
			}
			if len(e.data) == 0 {
				continue
			}
			if err := w.writeAll(e); err != nil {
				w.setErr(err)
			}
		case ack := <-w.flushReq:
			// drain what is already queued so Flush observes every prior Write
			for drained := false; !drained; {
				select {
				case e, ok := <-w.queue:
					if !ok {
						drained = true
						break
					}
					if err := w.writeAll(e); err != nil {
						w.setErr(err)
					}
				default:
					drained = true
				}
			}
			ack <- w.flushAll()
		}
	}
}

// Write enqueues the payload for every sink that accepts level.
func (w *asyncWriter) Write(level slog.Level, p []byte) error {
	if err := w.getErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.closeMu.RLock()
	defer w.closeMu.RUnlock()
	select {
	case <-w.closed:
		return errWriterClosed
	default:
	}
	data := make([]byte, len(p))
	copy(data, p)
	// blocks while the queue is full
	w.queue <- entry{level: level, data: data}
	return nil
}

var errWriterClosed = errors.New("logger: writer closed")

// Flush waits until every line queued before the call reached the sinks.
func (w *asyncWriter) Flush() error {
	select {
	case <-w.closed:
		return w.getErr()
	default:
	}
	ack := make(chan error, 1)
	select {
	case w.flushReq <- ack:
	case <-w.done:
		return w.getErr()
	}
	if err := <-ack; err != nil {
		return err
	}
	return w.getErr()
}

// Close drains the queue and reports the first encountered write error.
func (w *asyncWriter) Close() error {
	w.once.Do(func() {
		w.closeMu.Lock()
		close(w.closed)
		close(w.queue)
		w.closeMu.Unlock()
	})
	<-w.done
	return w.getErr()
}

func (w *asyncWriter) writeAll(e entry) error {
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	for _, s := range w.sinks {
		if e.level < s.min {
			continue
		}
		if _, err := s.buf.Write(e.data); err != nil {
			return err
		}
		if err := s.buf.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flushAll() error {
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	var errs []error
	for _, s := range w.sinks {
		if err := s.buf.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) getErr() error {
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	return w.writeErr
}

func (w *asyncWriter) setErr(err error) {
	if err == nil {
		return
	}
	w.sinkMu.Lock()
	defer w.sinkMu.Unlock()
	if w.writeErr == nil {
		w.writeErr = err
	}
}
