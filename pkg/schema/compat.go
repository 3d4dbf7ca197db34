package schema

import (
	"fmt"
	"reflect"
)

// widening lists the implicit numeric conversions allowed between ports.
var widening = map[string][]string{
	"int":   {"float", "double"},
	"float": {"double"},
}

// CanConnect reports whether a value of type out may flow into a port of type in.
// Control types only connect to control types. Data types connect when they are
// identical, when either side is the top type, when one Go type is assignable to
// the other, or when the pair is an allowed numeric widening.
func CanConnect(out, in Type) bool {
	if out == nil || in == nil {
		return false
	}
	if IsControl(out) || IsControl(in) {
		return IsControl(out) && IsControl(in)
	}
	if IsAny(out) || IsAny(in) {
		return true
	}
	if out.Name() == in.Name() {
		return true
	}
	ot, it := out.GoType(), in.GoType()
	if ot.AssignableTo(it) || it.AssignableTo(ot) {
		return true
	}
	for _, target := range widening[out.Name()] {
		if target == in.Name() {
			return true
		}
	}
	return false
}

// Convert coerces value into the Go representation of to.
// A nil value yields the zero value of the target type.
func Convert(value any, to Type) (any, error) {
	if to == nil || IsAny(to) {
		return value, nil
	}
	if IsControl(to) {
		if list, ok := value.([]string); ok {
			return FlowList(list), nil
		}
		return value, nil
	}
	if value == nil {
		return Zero(to), nil
	}
	out, err := convertValue(reflect.ValueOf(value), to.GoType())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTypeMismatch, err)
	}
	return out.Interface(), nil
}

func convertValue(rv reflect.Value, target reflect.Type) (reflect.Value, error) {
	if target == anyGoType {
		out := reflect.New(target).Elem()
		out.Set(rv)
		return out, nil
	}
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Zero(target), nil
		}
		rv = rv.Elem()
	}
	st := rv.Type()
	switch {
	case st.AssignableTo(target):
		out := reflect.New(target).Elem()
		out.Set(rv)
		return out, nil
	case isNumeric(st.Kind()) && isNumeric(target.Kind()):
		return rv.Convert(target), nil
	case st.Kind() == target.Kind() && st.ConvertibleTo(target):
		// Named types sharing an underlying kind.
		return rv.Convert(target), nil
	case (st.Kind() == reflect.Slice || st.Kind() == reflect.Array) && target.Kind() == reflect.Slice:
		out := reflect.MakeSlice(target, rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem, err := convertValue(rv.Index(i), target.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(elem)
		}
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", st, target)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
