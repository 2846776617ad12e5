// io.go adapts the teacher's channel-based output fan-in (src/util/io.go)
// from assembler text lines to Quadrate's diagnostic and IR-dump text: each
// Writer funnels its formatted text to a single flushing goroutine so text
// from concurrently-running Writers never interleaves mid-line. In this
// repository only the driver (internal/driver) creates a Writer.
package util

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Writer buffers text from one worker and flushes it as a single write to
// the shared output sink.
type Writer struct {
	sb strings.Builder
	c  chan string
}

var wc chan string
var cc chan struct{}
var dc chan struct{}
var wg *sync.WaitGroup

// Write appends a formatted line to the Writer's buffer.
func (w *Writer) Write(format string, args ...interface{}) {
	w.sb.WriteString(fmt.Sprintf(format, args...))
}

// WriteString appends s verbatim to the Writer's buffer.
func (w *Writer) WriteString(s string) {
	w.sb.WriteString(s)
}

// Flush sends the buffer's contents to the shared sink and resets it.
func (w *Writer) Flush() {
	if w.sb.Len() == 0 {
		return
	}
	w.c <- w.sb.String()
	w.sb.Reset()
}

// Close flushes any remaining text and releases this Writer's slot in the
// wait group passed to ListenWrite.
func (w *Writer) Close() {
	w.Flush()
	w.c = nil
	wg.Done()
}

// NewWriter returns a Writer bound to the sink started by ListenWrite. Must
// not be called before ListenWrite.
func NewWriter() Writer {
	wg.Add(1)
	return Writer{c: wc}
}

// ListenWrite starts the fan-in goroutine that serialises writes from
// concurrently-running Writers to f (or stdout if f is nil).
func ListenWrite(threads int, f *os.File, wgg *sync.WaitGroup) {
	wg = wgg
	if threads > 1 {
		wc = make(chan string, threads+1)
	} else {
		wc = make(chan string, 1)
	}
	cc = make(chan struct{})
	dc = make(chan struct{})

	var out *bufio.Writer
	if f != nil {
		out = bufio.NewWriter(f)
	} else {
		out = bufio.NewWriter(os.Stdout)
	}

	go func() {
		defer close(dc)
		defer out.Flush()
		for {
			select {
			case s := <-wc:
				out.WriteString(s)
				out.Flush()
			case <-cc:
				for {
					select {
					case s := <-wc:
						out.WriteString(s)
					default:
						return
					}
				}
			}
		}
	}()
}

// Close signals the fan-in goroutine to stop after draining pending writes.
func Close() {
	close(cc)
	<-dc
}
