// Package log 提供默认日志器和按配置创建日志器的入口
package log

import (
	"sync"

	"github.com/hatlonely/dbview/log/logger"
	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
)

var (
	mu            sync.RWMutex
	defaultLogger logger.Logger
)

func init() {
	l, err := logger.NewSLogWithOptions(&logger.SLogOptions{Level: "info", Format: "text"})
	if err != nil {
		panic("init default logger failed: " + err.Error())
	}
	defaultLogger = l
}

// Default 返回全局默认日志器
func Default() logger.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetDefault 替换全局默认日志器，nil 被忽略
func SetDefault(l logger.Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

// NewLoggerWithOptions 按配置创建日志器，options 为 nil 时返回默认日志器
func NewLoggerWithOptions(options *ref.TypeOptions) (logger.Logger, error) {
	if options == nil || options.Type == "" {
		return Default(), nil
	}
	l, err := ref.NewWithOptions[logger.Logger](options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.NewWithOptions failed")
	}
	return l, nil
}
