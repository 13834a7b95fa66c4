// Package provider 读取配置文件的原始数据并监听变更
package provider

import (
	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[*FileProvider](NewFileProviderWithOptions)
}

// Provider 配置数据提供者接口
type Provider interface {
	// Load 读取配置数据
	Load() ([]byte, error)
	// Save 保存配置数据
	Save(data []byte) error
	// OnChange 注册配置数据变更回调函数，Watch 之后才会触发
	OnChange(fn func(data []byte) error)
	// Watch 启动配置变更监听
	Watch() error
	Close() error
}

func NewProviderWithOptions(options *ref.TypeOptions) (Provider, error) {
	p, err := ref.NewWithOptions[Provider](options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.NewWithOptions failed")
	}
	return p, nil
}
