// Package ref 按 namespace:type 注册构造函数，根据配置创建组件实例
//
// 构造函数可以没有参数或接收一个 options 参数，返回对象或 (对象, error)。
// options 实现了 Convertable 时（例如配置存储），会先转换为构造函数的参数类型。
package ref

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// TypeOptions 组件的类型和构造参数
type TypeOptions struct {
	Namespace string `cfg:"namespace"`
	Type      string `cfg:"type"`
	Options   any    `cfg:"options"`
}

// Convertable 可以转换为任意结构的配置数据
type Convertable interface {
	ConvertTo(object any) error
}

type constructor struct {
	fn           reflect.Value
	param        reflect.Type
	returnsError bool
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func newConstructor(fn any) (*constructor, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, errors.Errorf("constructor must be a function, got %T", fn)
	}
	t := v.Type()
	if t.NumIn() > 1 {
		return nil, errors.Errorf("constructor must have 0 or 1 input parameters, got %d", t.NumIn())
	}
	if t.NumOut() != 1 && t.NumOut() != 2 {
		return nil, errors.Errorf("constructor must have 1 or 2 return values, got %d", t.NumOut())
	}
	if t.NumOut() == 2 && !t.Out(1).Implements(errorType) {
		return nil, errors.New("second return value must be error")
	}

	c := &constructor{fn: v, returnsError: t.NumOut() == 2}
	if t.NumIn() == 1 {
		c.param = t.In(0)
	}
	return c, nil
}

func (c *constructor) call(options any) (any, error) {
	var args []reflect.Value
	if c.param != nil {
		arg, err := c.argument(options)
		if err != nil {
			return nil, err
		}
		args = []reflect.Value{arg}
	}

	out := c.fn.Call(args)
	if c.returnsError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// argument 构造调用参数，nil 得到零值（指针类型为 nil），Convertable 转换为参数类型
func (c *constructor) argument(options any) (reflect.Value, error) {
	if options == nil {
		return reflect.Zero(c.param), nil
	}
	if conv, ok := options.(Convertable); ok {
		if c.param.Kind() == reflect.Pointer {
			v := reflect.New(c.param.Elem())
			if err := conv.ConvertTo(v.Interface()); err != nil {
				return reflect.Value{}, errors.WithMessagef(err, "convert options to %v failed", c.param)
			}
			return v, nil
		}
		v := reflect.New(c.param)
		if err := conv.ConvertTo(v.Interface()); err != nil {
			return reflect.Value{}, errors.WithMessagef(err, "convert options to %v failed", c.param)
		}
		return v.Elem(), nil
	}

	v := reflect.ValueOf(options)
	switch {
	case v.Type().AssignableTo(c.param):
		return v, nil
	case c.param.Kind() == reflect.Pointer && v.Type().AssignableTo(c.param.Elem()):
		p := reflect.New(c.param.Elem())
		p.Elem().Set(v)
		return p, nil
	case v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Type().AssignableTo(c.param):
		return v.Elem(), nil
	}
	return reflect.Value{}, errors.Errorf("options %T is not assignable to %v", options, c.param)
}

var constructors sync.Map

// Register 注册构造函数，重复注册同一个函数是安全的
func Register(namespace string, typ string, fn any) error {
	c, err := newConstructor(fn)
	if err != nil {
		return errors.WithMessagef(err, "register %s:%s failed", namespace, typ)
	}
	key := namespace + ":" + typ
	if existing, loaded := constructors.LoadOrStore(key, c); loaded {
		if existing.(*constructor).fn.Pointer() != c.fn.Pointer() {
			return errors.Errorf("constructor for %s already registered with different function", key)
		}
	}
	return nil
}

func MustRegister(namespace string, typ string, fn any) {
	if err := Register(namespace, typ, fn); err != nil {
		panic(err)
	}
}

// RegisterT 以 T 的包路径和类型名注册
func RegisterT[T any](fn any) error {
	namespace, typ, err := TypeName[T]()
	if err != nil {
		return err
	}
	return Register(namespace, typ, fn)
}

func MustRegisterT[T any](fn any) {
	if err := RegisterT[T](fn); err != nil {
		panic(err)
	}
}

// TypeName 返回 T 去掉指针后的包路径和类型名
// 泛型实例的类型名包含类型参数的完整路径，例如 "SyncMapStore[string,github.com/x/y.Value]"
func TypeName[T any]() (string, string, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return "", "", errors.Errorf("cannot determine package path or type name for %v", t)
	}
	return t.PkgPath(), t.Name(), nil
}

// TypeOptionsOf 返回指向 T 的 TypeOptions，用于构造默认组件
func TypeOptionsOf[T any](options any) *TypeOptions {
	namespace, typ, _ := TypeName[T]()
	return &TypeOptions{Namespace: namespace, Type: typ, Options: options}
}

// New 按 namespace:type 创建实例
func New(namespace string, typ string, options any) (any, error) {
	key := namespace + ":" + typ
	v, ok := constructors.Load(key)
	if !ok {
		return nil, errors.Errorf("constructor not found for %s", key)
	}
	obj, err := v.(*constructor).call(options)
	if err != nil {
		return nil, errors.WithMessagef(err, "new %s failed", key)
	}
	return obj, nil
}

// NewT 以 T 的类型名创建实例并做类型断言
func NewT[T any](options any) (T, error) {
	var zero T
	namespace, typ, err := TypeName[T]()
	if err != nil {
		return zero, err
	}
	obj, err := New(namespace, typ, options)
	if err != nil {
		return zero, err
	}
	t, ok := obj.(T)
	if !ok {
		return zero, errors.Errorf("created object %T is not %T", obj, zero)
	}
	return t, nil
}

// NewWithOptions 按 TypeOptions 创建实例并断言为接口 T
func NewWithOptions[T any](options *TypeOptions) (T, error) {
	var zero T
	if options == nil {
		return zero, errors.New("type options is nil")
	}
	obj, err := New(options.Namespace, options.Type, options.Options)
	if err != nil {
		return zero, err
	}
	t, ok := obj.(T)
	if !ok {
		return zero, errors.Errorf("%s:%s does not implement %v", options.Namespace, options.Type, reflect.TypeOf((*T)(nil)).Elem())
	}
	return t, nil
}
