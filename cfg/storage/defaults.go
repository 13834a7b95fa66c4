package storage

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// SetDefaults 按 def tag 为结构体的零值字段设置默认值，嵌套的结构体和非空指针递归处理
func SetDefaults(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.Errorf("object must be a non-nil pointer, got %T", object)
	}
	return setDefaults(rv.Elem())
}

func setDefaults(rv reflect.Value) error {
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct || rv.Type() == timeType {
		return nil
	}

	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := rv.Field(i)
		if !fv.CanSet() {
			continue
		}
		if def, ok := field.Tag.Lookup("def"); ok {
			if fv.IsZero() {
				if err := setString(fv, def); err != nil {
					return errors.WithMessagef(err, "default of field [%s]", field.Name)
				}
			}
			continue
		}
		if err := setDefaults(fv); err != nil {
			return err
		}
	}
	return nil
}

// setString 将字符串解析为目标类型
func setString(dst reflect.Value, s string) error {
	switch dst.Type() {
	case durationType:
		d, err := time.ParseDuration(s)
		if err != nil {
			return errors.Wrapf(err, "parse duration %q failed", s)
		}
		dst.SetInt(int64(d))
		return nil
	case timeType:
		return convertTime(reflect.ValueOf(s), dst, "")
	}

	switch dst.Kind() {
	case reflect.String:
		dst.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return errors.Wrapf(err, "parse bool %q failed", s)
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, dst.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "parse int %q failed", s)
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, dst.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "parse uint %q failed", s)
		}
		dst.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, dst.Type().Bits())
		if err != nil {
			return errors.Wrapf(err, "parse float %q failed", s)
		}
		dst.SetFloat(f)
	case reflect.Slice:
		if s == "" {
			return nil
		}
		parts := strings.Split(s, ",")
		out := reflect.MakeSlice(dst.Type(), len(parts), len(parts))
		for i, part := range parts {
			if err := setString(out.Index(i), strings.TrimSpace(part)); err != nil {
				return err
			}
		}
		dst.Set(out)
	case reflect.Pointer:
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return setString(dst.Elem(), s)
	default:
		return errors.Errorf("unsupported type %v", dst.Type())
	}
	return nil
}
