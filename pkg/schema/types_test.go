package schema

import (
	"fmt"
	"reflect"
	"testing"
	"time"
)

func TestScalarTypes(t *testing.T) {
	tests := []struct {
		typ     Type
		name    string
		value   any
		wantErr bool
	}{
		{String(), "string", "hello", false},
		{String(), "string", 42, true},
		{Int(), "int", 42, false},
		{Int(), "int", int64(42), false},
		{Int(), "int", float64(42), false},
		{Int(), "int", 42.5, true},
		{Int(), "int", "42", true},
		{Float(), "float", float32(1.5), false},
		{Float(), "float", 3, false},
		{Float(), "float", "3.14", true},
		{Double(), "double", 3.14, false},
		{Double(), "double", true, true},
		{Bool(), "bool", false, false},
		{Bool(), "bool", 1, true},
		{Any(), "any", nil, false},
		{Any(), "any", struct{}{}, false},
	}

	for _, tt := range tests {
		if tt.typ.Name() != tt.name {
			t.Errorf("Name() = %q, want %q", tt.typ.Name(), tt.name)
		}
		err := tt.typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s.Validate(%v) error = %v, wantErr %v", tt.name, tt.value, err, tt.wantErr)
		}
	}
}

func TestGoTypes(t *testing.T) {
	tests := []struct {
		typ  Type
		want reflect.Type
	}{
		{String(), reflect.TypeOf("")},
		{Int(), reflect.TypeOf(0)},
		{Float(), reflect.TypeOf(float32(0))},
		{Double(), reflect.TypeOf(float64(0))},
		{Slice(Int()), reflect.TypeOf([]int(nil))},
		{Control(), reflect.TypeOf(Flow{})},
		{ControlList(), reflect.TypeOf(FlowList(nil))},
	}

	for _, tt := range tests {
		if got := tt.typ.GoType(); got != tt.want {
			t.Errorf("%s.GoType() = %v, want %v", tt.typ.Name(), got, tt.want)
		}
	}
}

func TestSliceType(t *testing.T) {
	intSlice := Slice(Int())

	tests := []struct {
		value   any
		wantErr bool
		desc    string
	}{
		{[]int{1, 2, 3}, false, "int slice"},
		{[]any{1, 2, 3}, false, "any slice with ints"},
		{[]any{1, "2", 3}, true, "mixed slice"},
		{"not a slice", true, "string instead of slice"},
	}

	for _, tt := range tests {
		err := intSlice.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate(%v) error = %v, wantErr %v", tt.desc, tt.value, err, tt.wantErr)
		}
	}
}

func TestOf(t *testing.T) {
	type celsius float64

	tests := []struct {
		rt   reflect.Type
		want string
	}{
		{reflect.TypeOf(""), "string"},
		{reflect.TypeOf(0), "int"},
		{reflect.TypeOf(float32(0)), "float"},
		{reflect.TypeOf(float64(0)), "double"},
		{reflect.TypeOf(true), "bool"},
		{reflect.TypeOf([]string(nil)), "[string]"},
		{reflect.TypeOf((*any)(nil)).Elem(), "any"},
		{reflect.TypeOf(Flow{}), "flow"},
		{reflect.TypeOf(FlowList(nil)), "[flow]"},
		{reflect.TypeOf(time.Duration(0)), "time.Duration"},
		{reflect.TypeOf(celsius(0)), "schema.celsius"},
	}

	for _, tt := range tests {
		if got := Of(tt.rt).Name(); got != tt.want {
			t.Errorf("Of(%v).Name() = %q, want %q", tt.rt, got, tt.want)
		}
	}
}

func TestObjectType(t *testing.T) {
	typ := Of(reflect.TypeOf(time.Duration(0)))

	if err := typ.Validate(time.Second); err != nil {
		t.Errorf("Validate(time.Second) error = %v", err)
	}
	if err := typ.Validate(1); err == nil {
		t.Error("Validate(1) should fail for time.Duration")
	}
	if err := typ.Validate(nil); err == nil {
		t.Error("Validate(nil) should fail for a value kind")
	}
}

func TestCustomType(t *testing.T) {
	evenNumber := Custom("even", func(v any) error {
		i, ok := v.(int)
		if !ok {
			return fmt.Errorf("not an int")
		}
		if i%2 != 0 {
			return fmt.Errorf("not even")
		}
		return nil
	})

	if evenNumber.Name() != "even" {
		t.Errorf("Name() = %q, want %q", evenNumber.Name(), "even")
	}
	if err := evenNumber.Validate(4); err != nil {
		t.Errorf("Validate(4) error = %v", err)
	}
	if err := evenNumber.Validate(3); err == nil {
		t.Error("Validate(3) should fail")
	}
}

func TestZero(t *testing.T) {
	if Zero(Any()) != nil {
		t.Error("Zero(any) should be nil")
	}
	if Zero(Int()) != 0 {
		t.Errorf("Zero(int) = %v, want 0", Zero(Int()))
	}
	if Zero(String()) != "" {
		t.Errorf("Zero(string) = %v, want empty", Zero(String()))
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input    string
		wantErr  bool
		wantName string
	}{
		{"string", false, "string"},
		{"int", false, "int"},
		{"float", false, "float"},
		{"double", false, "double"},
		{"bool", false, "bool"},
		{"any", false, "any"},
		{"flow", false, "flow"},
		{"[flow]", false, "[flow]"},
		{"[string]", false, "[string]"},
		{"[[int]]", false, "[[int]]"},
		{"invalid", true, ""},
		{"[invalid]", true, ""},
	}

	for _, tt := range tests {
		typ, err := ParseType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && typ.Name() != tt.wantName {
			t.Errorf("ParseType(%q) Name() = %q, want %q", tt.input, typ.Name(), tt.wantName)
		}
	}
}

func TestParseTypeMapError(t *testing.T) {
	_, err := ParseTypeMap(map[string]string{"score": "invalid"})
	if err == nil {
		t.Fatal("ParseTypeMap() should return error for invalid type")
	}
}
