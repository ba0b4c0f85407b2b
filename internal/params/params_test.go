package params

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAbsentOptionalReturnsDefault(t *testing.T) {
	tests := []struct {
		name string
		def  interface{}
	}{
		{"string default", "localhost"},
		{"int default", int64(42)},
		{"nil default", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &ParamDefinition{Name: "host", Type: String, IsOptional: true, DefaultValue: tt.def}
			got, err := p.Resolve(nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.def {
				t.Errorf("Resolve(nil) = %v, want %v", got, tt.def)
			}
		})
	}
}

func TestResolveAbsentMandatoryFails(t *testing.T) {
	p := &ParamDefinition{Name: "name", Type: String}

	_, err := p.Resolve(nil)
	if !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument, got %v", err)
	}
	var missing *MissingArgumentError
	if !errors.As(err, &missing) || missing.Param != "name" {
		t.Errorf("expected MissingArgumentError{Param: name}, got %#v", err)
	}
}

func TestResolveValidatesPresentValue(t *testing.T) {
	p := &ParamDefinition{Name: "count", Type: Int}

	if got, err := p.Resolve(int64(3)); err != nil || got != int64(3) {
		t.Errorf("Resolve(3) = %v, %v", got, err)
	}

	_, err := p.Resolve("three")
	if !errors.Is(err, ErrInvalidArgumentValue) {
		t.Fatalf("expected ErrInvalidArgumentValue, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Param != "count" || verr.Type != "int" {
		t.Errorf("unexpected validation error: %#v", err)
	}
}

func TestResolveUntypedAcceptsAnything(t *testing.T) {
	p := &ParamDefinition{Name: "anything"}
	value := map[string]int{"a": 1}
	got, err := p.Resolve(value)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.(map[string]int)["a"] != 1 {
		t.Errorf("value not passed through: %v", got)
	}
}

func TestResolveVariadic(t *testing.T) {
	p := &ParamDefinition{Name: "ids", Type: Int, IsVariadic: true}

	t.Run("all elements valid", func(t *testing.T) {
		in := []interface{}{int64(1), 2, float64(3)}
		if _, err := p.Resolve(in); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("typed slice", func(t *testing.T) {
		if _, err := p.Resolve([]int{1, 2, 3}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("one bad element fails the whole argument", func(t *testing.T) {
		in := []interface{}{int64(1), "two", int64(3)}
		got, err := p.Resolve(in)
		if !errors.Is(err, ErrInvalidArgumentValue) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if got != nil {
			t.Errorf("expected no partial value, got %v", got)
		}
		var verr *ValidationError
		if errors.As(err, &verr) && verr.Value != "two" {
			t.Errorf("error should name the failing element, got %v", verr.Value)
		}
	})

	t.Run("non-list value", func(t *testing.T) {
		if _, err := p.Resolve(int64(1)); !errors.Is(err, ErrInvalidArgumentValue) {
			t.Errorf("expected validation error for scalar, got %v", err)
		}
	})
}

func TestTypeParse(t *testing.T) {
	tests := []struct {
		name    string
		typ     ArgumentType
		raw     string
		want    interface{}
		wantErr bool
	}{
		{"string", String, "hello", "hello", false},
		{"bool true", Boolean, "TRUE", true, false},
		{"bool bad", Boolean, "yes", nil, true},
		{"int decimal", Int, "42", int64(42), false},
		{"int hex", Int, "0x1f", int64(31), false},
		{"int bad", Int, "4.2", nil, true},
		{"float", Float, "1.5", 1.5, false},
		{"float bad", Float, "abc", nil, true},
		{"choice ok", Choice("dev", "prod"), "prod", "prod", false},
		{"choice bad", Choice("dev", "prod"), "stage", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.typ.Parse("arg", tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Parse(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestJSONParse(t *testing.T) {
	got, err := JSON.Parse("opts", `{"gas": 10, "tags": ["a"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := got.(map[string]interface{})
	if !ok || m["gas"] != float64(10) {
		t.Errorf("unexpected json value: %#v", got)
	}
	if _, err := JSON.Parse("opts", "{"); err == nil {
		t.Error("expected error for malformed json")
	}
	if err := JSON.Validate("opts", func() {}); err == nil {
		t.Error("expected error for non-encodable value")
	}
}

func TestInputFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "abi.json")
	if err := os.WriteFile(file, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := InputFile.Validate("abi", file); err != nil {
		t.Errorf("existing file rejected: %v", err)
	}
	if err := InputFile.Validate("abi", dir); err == nil {
		t.Error("directory accepted as input file")
	}
	if err := InputFile.Validate("abi", filepath.Join(dir, "missing")); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := InputFile.Parse("abi", file); err != nil {
		t.Errorf("Parse rejected existing file: %v", err)
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"string", "boolean", "int", "float", "inputFile", "json"} {
		typ, ok := ByName(name)
		if !ok {
			t.Errorf("ByName(%q) not found", name)
			continue
		}
		if typ.Name() != name {
			t.Errorf("ByName(%q).Name() = %q", name, typ.Name())
		}
	}
	if _, ok := ByName("bytes"); ok {
		t.Error("ByName(bytes) should not exist")
	}
}
