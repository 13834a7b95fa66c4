package writer

import (
	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
)

type MultiWriterOptions struct {
	Writers []*ref.TypeOptions `cfg:"writers" validate:"required,min=1"`
}

// MultiWriter 同时写入多个输出器，任意一个失败即返回错误
type MultiWriter struct {
	writers []Writer
}

func NewMultiWriterWithOptions(options *MultiWriterOptions) (*MultiWriter, error) {
	if options == nil || len(options.Writers) == 0 {
		return nil, errors.New("at least one writer is required")
	}
	m := &MultiWriter{}
	for i, o := range options.Writers {
		w, err := NewWriterWithOptions(o)
		if err != nil {
			_ = m.Close()
			return nil, errors.WithMessagef(err, "create writer %d failed", i)
		}
		m.writers = append(m.writers, w)
	}
	return m, nil
}

// NewMultiWriter 组合已创建的输出器
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) Write(p []byte) (int, error) {
	for i, w := range m.writers {
		if _, err := w.Write(p); err != nil {
			return 0, errors.WithMessagef(err, "writer %d failed", i)
		}
	}
	return len(p), nil
}

func (m *MultiWriter) Close() error {
	var lastErr error
	for i, w := range m.writers {
		if err := w.Close(); err != nil {
			lastErr = errors.WithMessagef(err, "close writer %d failed", i)
		}
	}
	return lastErr
}
