package bytes

import (
	"bytes"
	"encoding/binary"
	"reflect"
)

// StripPadding returns a slice of b without the trailing 0s.
func StripPadding(b []byte) []byte {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != 0 {
			return b[:i+1]
		}
	}
	return []byte{}
}

// FromStruct serializes the fields of a struct to an array of bytes in the
// order in which the fields are declared and returns the total number of bytes
// converted. Panics if data is not a struct or pointer to struct, or if there
// was an error writing a field.
func FromStruct(data interface{}) ([]byte, int) {
	val := reflect.ValueOf(data)
	valKind := val.Kind()

	if valKind == reflect.Ptr {
		val = reflect.ValueOf(data).Elem()
		valKind = val.Kind()
	}

	if valKind != reflect.Struct {
		panic("FromStruct(): data must of type struct " +
			"or ptr to struct, got: " + valKind.String())
	}

	converted := new(bytes.Buffer)
	// It's possible to use binary.Write on val.Interface itself, but doing
	// so prevents this function from working with dynamically sized types.
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)

		var err error
		switch kind := field.Kind(); kind {
		case reflect.Struct, reflect.Ptr:
			b, _ := FromStruct(field.Interface())
			err = binary.Write(converted, binary.LittleEndian, b)
		default:
			err = binary.Write(converted, binary.LittleEndian, field.Interface())
		}
		if err != nil {
			panic(err.Error())
		}
	}
	return converted.Bytes(), converted.Len()
}

// ToStruct populates the struct pointed to by target by reading in a stream
// of bytes and filling the values in sequential order.
func ToStruct(data []byte, target interface{}) {
	targetVal := reflect.ValueOf(target)

	if valKind := targetVal.Kind(); valKind != reflect.Ptr {
		panic("ToStruct(): target must be a ptr to struct, got: " + valKind.String())
	}

	reader := bytes.NewReader(data)
	val := targetVal.Elem()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)

		if err := binary.Read(reader, binary.LittleEndian, field.Addr().Interface()); err != nil {
			panic(err.Error())
		}
	}
}
