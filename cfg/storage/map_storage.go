package storage

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hatlonely/dbview/ref"
	"github.com/pkg/errors"
)

// MapStorage 基于 map 和 slice 的存储实现，yaml/json/toml/ini 解码的结果都是这种结构
//
// 结构体字段按 cfg tag 匹配 key，没有 tag 时使用字段名，匹配时忽略大小写。
// 转换前先按 def tag 填充默认值，配置中出现的字段再覆盖默认值。
// ref.TypeOptions 的 Options 字段保留为子存储，由 ref 在创建组件时转换为构造函数的参数。
type MapStorage struct {
	data any
}

func NewMapStorage(data any) *MapStorage {
	return &MapStorage{data: data}
}

// Data 获取存储的原始数据
func (ms *MapStorage) Data() any {
	return ms.data
}

func (ms *MapStorage) Sub(key string) Storage {
	if key == "" {
		return ms
	}
	current := ms.data
	for _, k := range parseKey(key) {
		current = valueByKey(current, k)
		if current == nil {
			break
		}
	}
	return NewMapStorage(current)
}

func (ms *MapStorage) ConvertTo(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.Errorf("object must be a non-nil pointer, got %T", object)
	}
	if err := setDefaults(rv.Elem()); err != nil {
		return errors.WithMessage(err, "set defaults failed")
	}
	return convertValue(ms.data, rv.Elem(), "")
}

func (ms *MapStorage) Equals(other Storage) bool {
	o, ok := other.(*MapStorage)
	if !ok || o == nil {
		return false
	}
	return reflect.DeepEqual(ms.data, o.data)
}

// parseKey 解析 key 字符串，支持点号和数组索引
func parseKey(key string) []string {
	var keys []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			keys = append(keys, current.String())
			current.Reset()
		}
	}
	for _, c := range key {
		switch c {
		case '.', '[', ']':
			flush()
		default:
			current.WriteRune(c)
		}
	}
	flush()
	return keys
}

func valueByKey(data any, key string) any {
	rv := reflect.ValueOf(data)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		if v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key())); v.IsValid() {
			return v.Interface()
		}
		return nil
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil
		}
		return rv.Index(i).Interface()
	}
	return nil
}

var (
	durationType    = reflect.TypeOf(time.Duration(0))
	timeType        = reflect.TypeOf(time.Time{})
	typeOptionsType = reflect.TypeOf(ref.TypeOptions{})
)

// convertValue 将数据转换为目标类型，path 用于错误信息
func convertValue(src any, dst reflect.Value, path string) error {
	sv := reflect.ValueOf(src)
	for sv.Kind() == reflect.Pointer || sv.Kind() == reflect.Interface {
		if sv.IsNil() {
			return nil
		}
		sv = sv.Elem()
	}
	if !sv.IsValid() {
		return nil
	}

	if dst.Kind() == reflect.Pointer {
		if dst.IsNil() {
			elem := reflect.New(dst.Type().Elem())
			if err := setDefaults(elem.Elem()); err != nil {
				return errors.WithMessagef(err, "set defaults of [%s] failed", path)
			}
			dst.Set(elem)
		}
		return convertValue(sv.Interface(), dst.Elem(), path)
	}

	switch dst.Type() {
	case durationType:
		return convertDuration(sv, dst, path)
	case timeType:
		return convertTime(sv, dst, path)
	case typeOptionsType:
		return convertTypeOptions(sv, dst, path)
	}

	switch dst.Kind() {
	case reflect.Struct:
		return convertStruct(sv, dst, path)
	case reflect.Map:
		return convertMap(sv, dst, path)
	case reflect.Slice:
		return convertSlice(sv, dst, path)
	case reflect.Interface:
		if sv.Type().AssignableTo(dst.Type()) {
			dst.Set(sv)
			return nil
		}
		return errors.Errorf("cannot convert %v to %v at [%s]", sv.Type(), dst.Type(), path)
	}

	// ini 和环境变量中的值都是字符串
	if sv.Kind() == reflect.String && dst.Kind() != reflect.String {
		return errors.WithMessagef(setString(dst, sv.String()), "convert [%s] failed", path)
	}
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}
	if isNumber(sv.Kind()) && isNumber(dst.Kind()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	if sv.Kind() == dst.Kind() && sv.Type().ConvertibleTo(dst.Type()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	return errors.Errorf("cannot convert %v to %v at [%s]", sv.Type(), dst.Type(), path)
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// convertDuration 字符串按 time.ParseDuration 解析，整数为纳秒，浮点数为秒
func convertDuration(sv, dst reflect.Value, path string) error {
	switch sv.Kind() {
	case reflect.String:
		d, err := time.ParseDuration(sv.String())
		if err != nil {
			return errors.Wrapf(err, "parse duration [%s] failed", path)
		}
		dst.SetInt(int64(d))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.SetInt(sv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		dst.SetInt(int64(sv.Uint()))
	case reflect.Float32, reflect.Float64:
		dst.SetInt(int64(sv.Float() * float64(time.Second)))
	default:
		return errors.Errorf("cannot convert %v to time.Duration at [%s]", sv.Type(), path)
	}
	return nil
}

var timeFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// convertTime 字符串按常见格式解析，数字为 unix 秒
func convertTime(sv, dst reflect.Value, path string) error {
	switch sv.Kind() {
	case reflect.String:
		for _, format := range timeFormats {
			if t, err := time.Parse(format, sv.String()); err == nil {
				dst.Set(reflect.ValueOf(t))
				return nil
			}
		}
		return errors.Errorf("parse time %q at [%s] failed", sv.String(), path)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.Set(reflect.ValueOf(time.Unix(sv.Int(), 0)))
	case reflect.Float32, reflect.Float64:
		sec := sv.Float()
		dst.Set(reflect.ValueOf(time.Unix(int64(sec), int64((sec-float64(int64(sec)))*1e9))))
	default:
		if t, ok := sv.Interface().(time.Time); ok {
			dst.Set(reflect.ValueOf(t))
			return nil
		}
		return errors.Errorf("cannot convert %v to time.Time at [%s]", sv.Type(), path)
	}
	return nil
}

func convertTypeOptions(sv, dst reflect.Value, path string) error {
	if sv.Kind() != reflect.Map {
		return errors.Errorf("type options at [%s] must be a map, got %v", path, sv.Type())
	}
	ms := NewMapStorage(sv.Interface())
	options := dst.Addr().Interface().(*ref.TypeOptions)
	if v, ok := ms.Sub("namespace").(*MapStorage).data.(string); ok {
		options.Namespace = v
	}
	if v, ok := ms.Sub("type").(*MapStorage).data.(string); ok {
		options.Type = v
	}
	if sub := ms.Sub("options").(*MapStorage); sub.data != nil {
		options.Options = sub
	}
	return nil
}

func fieldName(field reflect.StructField) (string, bool) {
	tag := strings.Split(field.Tag.Get("cfg"), ",")[0]
	if tag == "-" {
		return "", false
	}
	if tag != "" {
		return tag, true
	}
	return field.Name, true
}

func lookup(src reflect.Value, name string) (reflect.Value, bool) {
	if v := src.MapIndex(reflect.ValueOf(name).Convert(src.Type().Key())); v.IsValid() {
		return v, true
	}
	iter := src.MapRange()
	for iter.Next() {
		if strings.EqualFold(iter.Key().String(), name) {
			return iter.Value(), true
		}
	}
	return reflect.Value{}, false
}

func convertStruct(sv, dst reflect.Value, path string) error {
	if sv.Kind() != reflect.Map || sv.Type().Key().Kind() != reflect.String {
		return errors.Errorf("cannot convert %v to struct %v at [%s]", sv.Type(), dst.Type(), path)
	}
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := dst.Field(i)
		if !fv.CanSet() {
			continue
		}
		// 没有 tag 的嵌入结构体展开到同一层
		if field.Anonymous && field.Tag.Get("cfg") == "" && fv.Kind() == reflect.Struct {
			if err := convertStruct(sv, fv, path); err != nil {
				return err
			}
			continue
		}
		name, ok := fieldName(field)
		if !ok {
			continue
		}
		v, ok := lookup(sv, name)
		if !ok {
			continue
		}
		if err := convertValue(v.Interface(), fv, joinPath(path, name)); err != nil {
			return err
		}
	}
	return nil
}

func convertMap(sv, dst reflect.Value, path string) error {
	if sv.Kind() != reflect.Map {
		return errors.Errorf("cannot convert %v to map at [%s]", sv.Type(), path)
	}
	keyType := dst.Type().Key()
	if dst.IsNil() {
		dst.Set(reflect.MakeMapWithSize(dst.Type(), sv.Len()))
	}
	iter := sv.MapRange()
	for iter.Next() {
		key := reflect.New(keyType).Elem()
		if err := convertValue(iter.Key().Interface(), key, path); err != nil {
			return err
		}
		value := reflect.New(dst.Type().Elem()).Elem()
		if err := setDefaults(value); err != nil {
			return err
		}
		if err := convertValue(iter.Value().Interface(), value, joinPath(path, iter.Key().String())); err != nil {
			return err
		}
		dst.SetMapIndex(key, value)
	}
	return nil
}

func convertSlice(sv, dst reflect.Value, path string) error {
	// 字符串按逗号分隔，兼容 ini
	if sv.Kind() == reflect.String {
		return errors.WithMessagef(setString(dst, sv.String()), "convert [%s] failed", path)
	}
	if sv.Kind() != reflect.Slice && sv.Kind() != reflect.Array {
		return errors.Errorf("cannot convert %v to slice at [%s]", sv.Type(), path)
	}
	out := reflect.MakeSlice(dst.Type(), sv.Len(), sv.Len())
	for i := 0; i < sv.Len(); i++ {
		if err := setDefaults(out.Index(i)); err != nil {
			return err
		}
		if err := convertValue(sv.Index(i).Interface(), out.Index(i), path+"["+strconv.Itoa(i)+"]"); err != nil {
			return err
		}
	}
	dst.Set(out)
	return nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
