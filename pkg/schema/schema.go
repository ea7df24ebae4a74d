package schema

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Schema maps field names to their expected types.
type Schema map[string]Type

// ParseTypeMap converts {"field": "type"} into a Schema.
func ParseTypeMap(typeMap map[string]string) (Schema, error) {
	out := make(Schema, len(typeMap))
	for _, key := range slices.Sorted(maps.Keys(typeMap)) {
		t, err := ParseType(typeMap[key])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		out[key] = t
	}
	return out, nil
}

// ParseKinds converts per-kind type maps into per-kind schemas.
func ParseKinds(kinds map[string]map[string]string) (map[string]Schema, error) {
	out := make(map[string]Schema, len(kinds))
	for _, kind := range slices.Sorted(maps.Keys(kinds)) {
		s, err := ParseTypeMap(kinds[kind])
		if err != nil {
			return nil, fmt.Errorf("kind %s: %w", kind, err)
		}
		out[kind] = s
	}
	return out, nil
}

// TypeMap is the inverse of ParseTypeMap.
func (s Schema) TypeMap() map[string]string {
	out := make(map[string]string, len(s))
	for k, t := range s {
		out[k] = t.Name()
	}
	return out
}

// Validate checks data against the schema. Every offending field is reported as a
// *FieldError, joined in field-name order.
func Validate(s Schema, data map[string]any) error {
	var errs []error
	for _, key := range slices.Sorted(maps.Keys(s)) {
		t := s[key]
		value, ok := data[key]
		if !ok || value == nil {
			if !IsOptional(t) {
				errs = append(errs, &FieldError{Key: key, Reason: "required"})
			}
			continue
		}
		if err := t.Validate(value); err != nil {
			errs = append(errs, &FieldError{Key: key, Reason: err.Error(), Value: value})
		}
	}
	return errors.Join(errs...)
}
