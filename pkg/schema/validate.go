package schema

// Schema is a map of field names to their expected types.
// Example: {"player": String(), "score": Int(), "tags": Slice(String())}
type Schema map[string]Type

// Validate checks if data conforms to the schema. Every declared field is required.
// Returns an error with all validation failures found.
func Validate(schema Schema, data map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	var errs []error
	for fieldName := range schema {
		value, exists := data[fieldName]
		if !exists {
			errs = append(errs, &ValidationError{
				Key:    fieldName,
				Reason: "required",
			})
			continue
		}
		if err := ValidateValue(schema, fieldName, value); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// ValidateValue checks a single value against its declared type.
// Keys the schema does not declare are accepted as-is.
func ValidateValue(schema Schema, key string, value any) error {
	fieldType, ok := schema[key]
	if !ok || fieldType == nil {
		return nil
	}
	if err := fieldType.Validate(value); err != nil {
		return &ValidationError{
			Key:    key,
			Reason: err.Error(),
			Value:  value,
		}
	}
	return nil
}
