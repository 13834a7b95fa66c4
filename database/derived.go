package database

import "strings"

// DerivedValue 关联字段文本或汇总结果，依赖其他数据库的行，按 "rowID:fieldID" 缓存
type DerivedValue struct {
	Text       string   `json:"text" msgpack:"text"`
	RawNumeric *float64 `json:"raw_numeric,omitempty" msgpack:"raw_numeric,omitempty"`
	List       []string `json:"list,omitempty" msgpack:"list,omitempty"`
}

// DerivedKey 派生值缓存的 key
func DerivedKey(rowID, fieldID string) string {
	return rowID + ":" + fieldID
}

// SplitDerivedKey 解析派生值缓存的 key，行 id 中不包含冒号
func SplitDerivedKey(key string) (rowID string, fieldID string, ok bool) {
	i := strings.Index(key, ":")
	if i <= 0 || i == len(key)-1 {
		return "", "", false
	}
	return key[:i], key[i+1:], true
}
