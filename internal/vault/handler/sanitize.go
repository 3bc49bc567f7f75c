package handler

import (
	"reflect"
	"strings"
)

// trimStrings trims surrounding whitespace from every settable string field of
// the struct v points to. Byte slices (ciphertext) are left untouched.
func trimStrings(v any) {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return
	}
	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if field.CanSet() && field.Kind() == reflect.String {
			field.SetString(strings.TrimSpace(field.String()))
		}
	}
}
