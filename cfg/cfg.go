// Package cfg 从配置文件加载配置，转换为组件的 Options 并在文件变化时通知
//
// 配置文件由 provider 读取，decoder 解码为存储，存储按 cfg tag 转换为结构体，
// 转换前填充 def tag 的默认值，转换后按 validate tag 校验。
//
//	config, _ := cfg.NewConfig("dbview.yaml")
//	var options roworder.Options
//	_ = config.Sub("rowOrder").ConvertTo(&options)
package cfg

import (
	"sync"

	"github.com/hatlonely/dbview/cfg/decoder"
	"github.com/hatlonely/dbview/cfg/provider"
	"github.com/hatlonely/dbview/cfg/storage"
	"github.com/hatlonely/dbview/cfg/validator"
	"github.com/hatlonely/dbview/log"
	"github.com/hatlonely/dbview/log/logger"
	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
)

type Options struct {
	Provider ref.TypeOptions  `cfg:"provider"`
	Decoder  *ref.TypeOptions `cfg:"decoder"`
	Logger   *ref.TypeOptions `cfg:"logger"`
}

type handler struct {
	sub *Config
	fn  func(c *Config) error
}

type Config struct {
	root *root
	key  string
}

// root 多个子配置共享同一份数据和回调
type root struct {
	provider provider.Provider
	decoder  decoder.Decoder
	logger   logger.Logger

	mu       sync.RWMutex
	storage  storage.Storage
	handlers []handler
}

// NewConfig 按文件扩展名选择解码器
func NewConfig(path string) (*Config, error) {
	d, err := decoder.NewDecoderByExtension(path)
	if err != nil {
		return nil, err
	}
	p, err := provider.NewFileProviderWithOptions(&provider.FileProviderOptions{FilePath: path})
	if err != nil {
		return nil, errors.WithMessage(err, "provider.NewFileProviderWithOptions failed")
	}
	return newConfig(p, d, log.Default())
}

func NewConfigWithOptions(options *Options) (*Config, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	p, err := provider.NewProviderWithOptions(&options.Provider)
	if err != nil {
		return nil, errors.WithMessage(err, "provider.NewProviderWithOptions failed")
	}
	var d decoder.Decoder = decoder.NewYamlDecoder()
	if options.Decoder != nil {
		if d, err = decoder.NewDecoderWithOptions(options.Decoder); err != nil {
			return nil, errors.WithMessage(err, "decoder.NewDecoderWithOptions failed")
		}
	}
	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "log.NewLoggerWithOptions failed")
	}
	return newConfig(p, d, l)
}

func newConfig(p provider.Provider, d decoder.Decoder, l logger.Logger) (*Config, error) {
	data, err := p.Load()
	if err != nil {
		return nil, errors.WithMessage(err, "provider.Load failed")
	}
	s, err := d.Decode(data)
	if err != nil {
		return nil, errors.WithMessage(err, "decoder.Decode failed")
	}
	r := &root{provider: p, decoder: d, logger: l.WithGroup("config"), storage: s}
	p.OnChange(r.onChange)
	return &Config{root: r}, nil
}

// Sub 子配置，key 相对于当前配置
func (c *Config) Sub(key string) *Config {
	if key == "" {
		return c
	}
	if c.key != "" {
		key = c.key + "." + key
	}
	return &Config{root: c.root, key: key}
}

func (c *Config) Storage() storage.Storage {
	c.root.mu.RLock()
	defer c.root.mu.RUnlock()
	return c.root.storage.Sub(c.key)
}

// ConvertTo 填充默认值，转换并校验
func (c *Config) ConvertTo(object any) error {
	if err := c.Storage().ConvertTo(object); err != nil {
		return errors.WithMessagef(err, "convert config [%s] failed", c.key)
	}
	if err := validator.ValidateStruct(object); err != nil {
		return errors.WithMessagef(err, "validate config [%s] failed", c.key)
	}
	return nil
}

// OnChange 当前配置的内容变化时回调
func (c *Config) OnChange(fn func(c *Config) error) {
	c.OnKeyChange("", fn)
}

// OnKeyChange key 对应的子配置内容变化时回调，回调返回的错误只记录日志
func (c *Config) OnKeyChange(key string, fn func(c *Config) error) {
	sub := c.Sub(key)
	c.root.mu.Lock()
	defer c.root.mu.Unlock()
	c.root.handlers = append(c.root.handlers, handler{sub: sub, fn: fn})
}

// Watch 开始监听配置文件
func (c *Config) Watch() error {
	return c.root.provider.Watch()
}

func (c *Config) Close() error {
	return c.root.provider.Close()
}

// onChange 解码失败时保留旧配置
func (r *root) onChange(data []byte) error {
	s, err := r.decoder.Decode(data)
	if err != nil {
		return errors.WithMessage(err, "decoder.Decode failed")
	}

	r.mu.Lock()
	old := r.storage
	r.storage = s
	var changed []handler
	for _, h := range r.handlers {
		if !old.Sub(h.sub.key).Equals(s.Sub(h.sub.key)) {
			changed = append(changed, h)
		}
	}
	r.mu.Unlock()

	for _, h := range changed {
		if err := h.fn(h.sub); err != nil {
			r.logger.Warn("handle config change failed", "key", h.sub.key, "error", err.Error())
		}
	}
	return nil
}
