package validators

import (
	"reflect"
	"strings"
)

// TrimStrings trims surrounding whitespace from the exported string fields of
// the struct dest points to. Nested structs are not visited.
func TrimStrings(dest any) {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if field.Kind() != reflect.String || !field.CanSet() {
			continue
		}
		field.SetString(strings.TrimSpace(field.String()))
	}
}
