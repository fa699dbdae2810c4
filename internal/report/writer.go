package report

import "io"

// Writer renders a Status.
type Writer interface {
	// Write renders s and returns the number of bytes written.
	Write(s *Status) (int, error)
}

// MultiWriter writes a Status to several Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter returns a Writer that fans out to writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write stops at the first error.
func (m *MultiWriter) Write(s *Status) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(s)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

const timeLayout = "2006-01-02 15:04:05 MST"
