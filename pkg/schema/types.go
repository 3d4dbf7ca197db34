package schema

import (
	"fmt"
	"reflect"
)

// Type describes the value carried by a data port or a parameter.
// Implementations determine how values are validated and which Go type backs them.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "int").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
	// GoType returns the Go type values of this type are stored as.
	GoType() reflect.Type
}

// Flow is the marker type of control parameters. A parameter of this type
// becomes a control port instead of a data port.
type Flow struct{}

// FlowList is the marker type of control list parameters. Its literal is the
// list of labels, one control slot per label.
type FlowList []string

var (
	anyGoType      = reflect.TypeOf((*any)(nil)).Elem()
	flowGoType     = reflect.TypeOf(Flow{})
	flowListGoType = reflect.TypeOf(FlowList(nil))
)

// --- Built-in Type Implementations ---

// StringType validates string values.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) GoType() reflect.Type { return reflect.TypeOf("") }

func (t *StringType) Validate(value any) error {
	_, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

// IntType validates integer values.
type IntType struct{}

func (t *IntType) Name() string { return "int" }

func (t *IntType) GoType() reflect.Type { return reflect.TypeOf(0) }

func (t *IntType) Validate(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return nil
	case float64:
		// Accept floats that are whole numbers (from JSON unmarshaling)
		if v == float64(int64(v)) {
			return nil
		}
		return fmt.Errorf("expected int, got float (not a whole number)")
	default:
		return fmt.Errorf("expected int, got %T", value)
	}
}

// FloatType validates single precision floating-point values.
type FloatType struct{}

func (t *FloatType) Name() string { return "float" }

func (t *FloatType) GoType() reflect.Type { return reflect.TypeOf(float32(0)) }

func (t *FloatType) Validate(value any) error {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64:
		return nil
	default:
		return fmt.Errorf("expected float, got %T", value)
	}
}

// DoubleType validates double precision floating-point values.
type DoubleType struct{}

func (t *DoubleType) Name() string { return "double" }

func (t *DoubleType) GoType() reflect.Type { return reflect.TypeOf(float64(0)) }

func (t *DoubleType) Validate(value any) error {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64:
		return nil
	default:
		return fmt.Errorf("expected double, got %T", value)
	}
}

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) GoType() reflect.Type { return reflect.TypeOf(false) }

func (t *BoolType) Validate(value any) error {
	_, ok := value.(bool)
	if !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

// AnyType is the top type. Every value conforms to it.
type AnyType struct{}

func (t *AnyType) Name() string { return "any" }

func (t *AnyType) GoType() reflect.Type { return anyGoType }

func (t *AnyType) Validate(any) error { return nil }

// FlowType is the type of control ports. Control ports carry no value.
type FlowType struct {
	list bool
}

func (t *FlowType) Name() string {
	if t.list {
		return "[flow]"
	}
	return "flow"
}

func (t *FlowType) GoType() reflect.Type {
	if t.list {
		return flowListGoType
	}
	return flowGoType
}

func (t *FlowType) Validate(value any) error {
	if t.list {
		if _, ok := value.(FlowList); ok {
			return nil
		}
		if _, ok := value.([]string); ok {
			return nil
		}
		return fmt.Errorf("expected flow labels, got %T", value)
	}
	return nil
}

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

// Elem returns the element type.
func (t *SliceType) Elem() Type { return t.elemType }

func (t *SliceType) GoType() reflect.Type { return reflect.SliceOf(t.elemType.GoType()) }

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected slice, got %T", value)
	}

	// Validate each element
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if err := t.elemType.Validate(elem); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// ObjectType wraps an arbitrary Go type exposed by a host command.
type ObjectType struct {
	rt reflect.Type
}

func (t *ObjectType) Name() string { return t.rt.String() }

func (t *ObjectType) GoType() reflect.Type { return t.rt }

func (t *ObjectType) Validate(value any) error {
	if value == nil {
		switch t.rt.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return nil
		}
		return fmt.Errorf("expected %s, got nil", t.rt)
	}
	if !reflect.TypeOf(value).AssignableTo(t.rt) {
		return fmt.Errorf("expected %s, got %T", t.rt, value)
	}
	return nil
}

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(any) error
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) GoType() reflect.Type { return anyGoType }

func (t *CustomType) Validate(value any) error {
	return t.validate(value)
}

// --- Factory Functions ---

// String creates a string type validator.
func String() Type { return &StringType{} }

// Int creates an integer type validator.
func Int() Type { return &IntType{} }

// Float creates a single precision float type validator.
func Float() Type { return &FloatType{} }

// Double creates a double precision float type validator.
func Double() Type { return &DoubleType{} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// Any creates the top type.
func Any() Type { return &AnyType{} }

// Control creates the type of a single control port.
func Control() Type { return &FlowType{} }

// ControlList creates the type of a labelled control list port.
func ControlList() Type { return &FlowType{list: true} }

// Slice creates a slice type validator for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// Custom creates a custom type validator with a user-defined function.
func Custom(name string, validate func(any) error) Type {
	return &CustomType{name: name, validate: validate}
}

// Of maps a Go type to its schema Type. Built-in kinds map to the named types,
// slices map element-wise and everything else becomes an ObjectType.
func Of(rt reflect.Type) Type {
	if rt == nil || rt == anyGoType {
		return Any()
	}
	switch rt {
	case flowGoType:
		return Control()
	case flowListGoType:
		return ControlList()
	}
	// Named types (e.g. type Celsius float64) keep their identity.
	if rt.PkgPath() == "" {
		switch rt.Kind() {
		case reflect.String:
			return String()
		case reflect.Int:
			return Int()
		case reflect.Float32:
			return Float()
		case reflect.Float64:
			return Double()
		case reflect.Bool:
			return Bool()
		case reflect.Slice:
			if rt.Elem().Kind() != reflect.Uint8 {
				return Slice(Of(rt.Elem()))
			}
		}
	}
	return &ObjectType{rt: rt}
}

// IsControl reports whether t is a control type.
func IsControl(t Type) bool {
	_, ok := t.(*FlowType)
	return ok
}

// IsAny reports whether t is the top type.
func IsAny(t Type) bool {
	_, ok := t.(*AnyType)
	return ok
}

// Zero returns the zero value of t, or nil for the top type.
func Zero(t Type) any {
	if t == nil || IsAny(t) {
		return nil
	}
	return reflect.Zero(t.GoType()).Interface()
}

// ParseType converts a string type name to a Type.
// Supports basic types: "string", "int", "float", "double", "bool", "any",
// "flow" and slices thereof such as "[string]".
func ParseType(typeStr string) (Type, error) {
	// Handle slice types: [string], [int], etc.
	if len(typeStr) > 2 && typeStr[0] == '[' && typeStr[len(typeStr)-1] == ']' {
		elemTypeStr := typeStr[1 : len(typeStr)-1]
		if elemTypeStr == "flow" {
			return ControlList(), nil
		}
		elemType, err := ParseType(elemTypeStr)
		if err != nil {
			return nil, err
		}
		return Slice(elemType), nil
	}

	// Handle built-in types
	switch typeStr {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "double":
		return Double(), nil
	case "bool":
		return Bool(), nil
	case "any":
		return Any(), nil
	case "flow":
		return Control(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", typeStr)
	}
}

// ParseTypeMap converts a map of field names to type strings into a Schema.
// Example: {"player": "string", "score": "int"}
func ParseTypeMap(typeMap map[string]string) (Schema, error) {
	result := make(Schema)
	for key, typeStr := range typeMap {
		t, err := ParseType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		result[key] = t
	}
	return result, nil
}
