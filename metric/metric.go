// Package metric prometheus 指标注册
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Register 注册指标，同名指标已经注册时返回已注册的实例
// 同一个组件创建多个实例时共享指标，reg 为 nil 时使用默认 registry
func Register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// DurationBuckets 单位为秒，覆盖从内存操作到慢速存储
var DurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0}
