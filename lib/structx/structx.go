// Package structx provides reflection helpers for reading struct fields by name.
package structx

import (
	"reflect"
)

// Get returns the value of the named field of object. object may be a struct or a pointer to a struct.
func Get(object any, field string) any {
	reflectValue := reflect.Indirect(reflect.ValueOf(object))
	reflectFieldValue := reflectValue.FieldByName(field)
	return reflectFieldValue.Interface()
}
