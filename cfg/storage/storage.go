// Package storage 保存解码后的配置数据，按 key 取子配置并转换为任意结构
package storage

// Storage 配置存储接口
type Storage interface {
	// Sub 获取子配置，key 支持点号表示多级嵌套，[] 表示数组索引，例如 "views[0].sorts"
	Sub(key string) Storage
	// ConvertTo 将配置数据转成结构体或者 map/slice 等任意结构
	ConvertTo(object any) error
	// Equals 判断两个存储的数据是否相同，用于变更检测
	Equals(other Storage) bool
}
