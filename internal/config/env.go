package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// processStructFields applies every `env`-tagged field found in s, descending
// into the section structs.
func processStructFields(s interface{}) error {
	section := reflect.Indirect(reflect.ValueOf(s))
	if section.Kind() != reflect.Struct {
		return nil
	}

	for i := 0; i < section.NumField(); i++ {
		field, meta := section.Field(i), section.Type().Field(i)
		if !meta.IsExported() {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := processStructFields(field.Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		name := meta.Tag.Get("env")
		raw, set := os.LookupEnv(name)
		if name == "" || !set {
			continue
		}
		if err := setFieldFromEnv(field, strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("env %s: %w", name, err)
		}
	}
	return nil
}

// setFieldFromEnv parses value into the field's kind; the config only uses
// strings, ints and bools.
func setFieldFromEnv(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q: %w", value, err)
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean %q: %w", value, err)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}
