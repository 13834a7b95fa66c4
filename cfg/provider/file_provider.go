package provider

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/hatlonely/dbview/log"
	"github.com/hatlonely/dbview/log/logger"
	"github.com/pkg/errors"
)

type FileProviderOptions struct {
	FilePath string `cfg:"filePath" validate:"required"`
}

// FileProvider 监听文件所在目录，编辑器先写临时文件再重命名时也能收到变更
type FileProvider struct {
	filePath string
	logger   logger.Logger

	mu       sync.RWMutex
	watcher  *fsnotify.Watcher
	onChange []func(data []byte) error
	done     chan struct{}
	once     sync.Once
}

func NewFileProviderWithOptions(options *FileProviderOptions) (*FileProvider, error) {
	if options == nil || options.FilePath == "" {
		return nil, errors.New("file path is required")
	}
	absPath, err := filepath.Abs(options.FilePath)
	if err != nil {
		return nil, errors.Wrapf(err, "filepath.Abs [%s] failed", options.FilePath)
	}
	return &FileProvider{
		filePath: absPath,
		logger:   log.Default().WithGroup("fileProvider").With("file", absPath),
		done:     make(chan struct{}),
	}, nil
}

func (p *FileProvider) Load() ([]byte, error) {
	data, err := os.ReadFile(p.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "os.ReadFile [%s] failed", p.filePath)
	}
	return data, nil
}

func (p *FileProvider) Save(data []byte) error {
	if err := os.WriteFile(p.filePath, data, 0644); err != nil {
		return errors.Wrapf(err, "os.WriteFile [%s] failed", p.filePath)
	}
	return nil
}

func (p *FileProvider) OnChange(fn func(data []byte) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = append(p.onChange, fn)
}

func (p *FileProvider) Watch() error {
	var err error
	p.once.Do(func() {
		var watcher *fsnotify.Watcher
		if watcher, err = fsnotify.NewWatcher(); err != nil {
			err = errors.Wrap(err, "fsnotify.NewWatcher failed")
			return
		}
		if err = watcher.Add(filepath.Dir(p.filePath)); err != nil {
			_ = watcher.Close()
			err = errors.Wrap(err, "watcher.Add failed")
			return
		}
		p.mu.Lock()
		p.watcher = watcher
		p.mu.Unlock()
		go p.loop(watcher)
	})
	return err
}

func (p *FileProvider) loop(watcher *fsnotify.Watcher) {
	defer close(p.done)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.filePath || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			data, err := os.ReadFile(p.filePath)
			if err != nil {
				p.logger.Warn("read changed file failed", "error", err.Error())
				continue
			}
			p.mu.RLock()
			handlers := append([]func([]byte) error(nil), p.onChange...)
			p.mu.RUnlock()
			for _, fn := range handlers {
				if err := fn(data); err != nil {
					p.logger.Warn("handle file change failed", "error", err.Error())
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("watch file failed", "error", err.Error())
		}
	}
}

// Close 停止监听并等待监听协程退出
func (p *FileProvider) Close() error {
	p.mu.Lock()
	watcher := p.watcher
	p.watcher = nil
	p.mu.Unlock()
	if watcher == nil {
		return nil
	}
	if err := watcher.Close(); err != nil {
		return errors.Wrap(err, "watcher.Close failed")
	}
	<-p.done
	return nil
}
