package validators

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/jellydator/validation"
)

var (
	errNotAllowed = validation.NewError("validation_not_allowed", "is not allowed")
	errNotNumber  = validation.NewError("validation_not_number", "must be a number")
)

// Decode loads a loosely typed input (form values, CLI arguments) into dst and
// validates it. Keys dst does not declare are rejected, numeric strings are
// converted for numeric fields and empty strings count as missing.
func Decode(input map[string]any, dst validation.Validatable) error {
	fields, err := jsonFields(dst)
	if err != nil {
		return err
	}

	clean := make(map[string]any, len(input))
	errs := validation.Errors{}
	for key, raw := range input {
		kind, ok := fields[key]
		if !ok {
			errs[key] = errNotAllowed
			continue
		}

		s, isString := raw.(string)
		if isString {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
		}

		if isString && isNumeric(kind) {
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				errs[key] = errNotNumber
				continue
			}
			clean[key] = n
			continue
		}
		if isString {
			clean[key] = s
			continue
		}
		clean[key] = raw
	}
	if len(errs) > 0 {
		return errs
	}

	body, err := json.Marshal(clean)
	if err != nil {
		return fmt.Errorf("encode input: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}

	return dst.Validate()
}

// jsonFields maps the json names of dst's fields to their underlying kind.
func jsonFields(dst any) (map[string]reflect.Kind, error) {
	t := reflect.TypeOf(dst)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("decode target must be a struct pointer, got %T", dst)
	}
	t = t.Elem()

	fields := make(map[string]reflect.Kind, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		fields[name] = ft.Kind()
	}
	return fields, nil
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
