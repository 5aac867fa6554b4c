package models

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/facilities_backend/utils"
)

// FieldChange is one line of an audit diff. Nil means "no value", so a
// creation shows nil -> value and a deletion value -> nil.
type FieldChange struct {
	Field    string  `json:"field"`
	OldValue *string `json:"old_value"`
	NewValue *string `json:"new_value"`
}

// EntityFields flattens a struct (or pointer to struct) into
// field-name -> string-value pairs, skipping the excluded fields. Nil
// pointers and zero times flatten to the empty string, which the diff
// treats as "no value".
func EntityFields(entity interface{}, excluded ...string) map[string]string {
	skip := make(map[string]bool, len(excluded))
	for _, f := range excluded {
		skip[f] = true
	}

	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return map[string]string{}
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return map[string]string{}
	}

	fields := make(map[string]string)
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || skip[f.Name] {
			continue
		}
		fields[f.Name] = flattenValue(v.Field(i))
	}
	return fields
}

func flattenValue(v reflect.Value) string {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}

	if t, ok := v.Interface().(time.Time); ok {
		if t.IsZero() {
			return ""
		}
		return utils.FormatStorageDate(t)
	}

	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case reflect.String:
		return v.String()
	default:
		return fmt.Sprint(v.Interface())
	}
}

// DiffEntities compares two snapshots of the same entity type and
// returns one FieldChange per changed field, in struct field order.
func DiffEntities(oldEntity, newEntity interface{}, excluded ...string) []FieldChange {
	oldFields := EntityFields(oldEntity, excluded...)
	newFields := EntityFields(newEntity, excluded...)

	var changes []FieldChange
	for _, field := range fieldOrder(newEntity, excluded...) {
		oldVal := oldFields[field]
		newVal := newFields[field]
		if auditValuesEqual(oldVal, newVal) {
			continue
		}
		changes = append(changes, FieldChange{
			Field:    field,
			OldValue: nilIfBlank(oldVal),
			NewValue: nilIfBlank(newVal),
		})
	}
	return changes
}

func fieldOrder(entity interface{}, excluded ...string) []string {
	skip := make(map[string]bool, len(excluded))
	for _, f := range excluded {
		skip[f] = true
	}

	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	var order []string
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || skip[f.Name] {
			continue
		}
		order = append(order, f.Name)
	}
	return order
}

// auditValuesEqual applies the comparison rules that keep diffs free of
// false positives: empty and absent collapse to one sentinel, booleans
// compare by identity whatever their source representation, and
// date-like strings compare at day granularity.
func auditValuesEqual(oldVal, newVal string) bool {
	oldTrim := strings.TrimSpace(oldVal)
	newTrim := strings.TrimSpace(newVal)

	if oldTrim == "" && newTrim == "" {
		return true
	}
	if oldTrim == "" || newTrim == "" {
		return false
	}

	if oldBool, ok := parseBoolToken(oldTrim); ok {
		if newBool, ok := parseBoolToken(newTrim); ok {
			return oldBool == newBool
		}
	}

	if oldDate, ok := utils.LooksLikeDate(oldTrim); ok {
		if newDate, ok := utils.LooksLikeDate(newTrim); ok {
			return utils.FormatStorageDate(oldDate) == utils.FormatStorageDate(newDate)
		}
	}

	return oldTrim == newTrim
}

func parseBoolToken(value string) (bool, bool) {
	switch strings.ToLower(value) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	default:
		return false, false
	}
}

func nilIfBlank(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
