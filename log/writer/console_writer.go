package writer

import (
	"io"
	"os"
)

type ConsoleWriterOptions struct {
	// Target stdout 或 stderr，默认 stderr，避免和命令行输出混在一起
	Target string `cfg:"target" def:"stderr" validate:"omitempty,oneof=stdout stderr"`
}

type ConsoleWriter struct {
	w io.Writer
}

func NewConsoleWriterWithOptions(options *ConsoleWriterOptions) (*ConsoleWriter, error) {
	if options != nil && options.Target == "stdout" {
		return &ConsoleWriter{w: os.Stdout}, nil
	}
	return &ConsoleWriter{w: os.Stderr}, nil
}

func (c *ConsoleWriter) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

// Close 标准输出不需要关闭
func (c *ConsoleWriter) Close() error {
	return nil
}
