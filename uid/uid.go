// Package uid 生成行、视图、排序和过滤条件的 ID
package uid

import (
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[*UUIDGenerator](NewUUIDGeneratorWithOptions)
}

type Generator interface {
	Generate() string
}

// NewGeneratorWithOptions options 为 nil 时使用 v7 UUID，按生成时间有序
func NewGeneratorWithOptions(options *ref.TypeOptions) (Generator, error) {
	if options == nil {
		return NewUUIDGeneratorWithOptions(nil), nil
	}
	g, err := ref.NewWithOptions[Generator](options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.NewWithOptions failed")
	}
	return g, nil
}

type UUIDOptions struct {
	Version string `cfg:"version" def:"v7" validate:"oneof=v4 v7"`
	// WithHyphens 是否包含连字符，默认为 32 位十六进制
	WithHyphens bool `cfg:"withHyphens"`
}

type UUIDGenerator struct {
	version     string
	withHyphens bool
}

func NewUUIDGeneratorWithOptions(options *UUIDOptions) *UUIDGenerator {
	g := &UUIDGenerator{version: "v7"}
	if options != nil {
		if options.Version != "" {
			g.version = options.Version
		}
		g.withHyphens = options.WithHyphens
	}
	return g
}

func (g *UUIDGenerator) Generate() string {
	u := uuid.New()
	if g.version == "v7" {
		// 只在随机源读取失败时出错
		if v7, err := uuid.NewV7(); err == nil {
			u = v7
		}
	}
	if g.withHyphens {
		return u.String()
	}
	return hex.EncodeToString(u[:])
}
