package log

import (
	"io"
	"os"
	"sync"
)

// WriterOutput writes formatted entries to an io.Writer.
type WriterOutput struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterOutput returns an output writing to w.
func NewWriterOutput(w io.Writer) *WriterOutput { return &WriterOutput{w: w} }

func (o *WriterOutput) Write(_ *Entry, formatted []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.w.Write(formatted)
	return err
}

func (o *WriterOutput) Close() error { return nil }

// ConsoleOutput writes to stderr.
type ConsoleOutput = WriterOutput

// NewConsoleOutput returns an output writing to stderr.
func NewConsoleOutput() *ConsoleOutput { return NewWriterOutput(os.Stderr) }

// NullOutput discards everything.
type NullOutput struct{}

func (*NullOutput) Write(*Entry, []byte) error { return nil }
func (*NullOutput) Close() error               { return nil }
