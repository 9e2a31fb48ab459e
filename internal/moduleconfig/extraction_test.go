package moduleconfig

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestString(t *testing.T) {
	cfg := map[string]interface{}{"column": "State", "empty": "", "number": 6}
	if got, err := String(cfg, "column"); err != nil || got != "State" {
		t.Errorf("String(column) = %q, %v", got, err)
	}
	for _, key := range []string{"missing", "empty", "number"} {
		if _, err := String(cfg, key); err == nil {
			t.Errorf("String(%s): expected error", key)
		}
	}
}

func TestOptionalStringFormatsScalars(t *testing.T) {
	tests := []struct {
		value interface{}
		want  string
	}{
		{"CA", "CA"},
		{6, "6"},
		{1.5, "1.5"},
		{true, "true"},
		{nil, "default"},
	}
	for _, tt := range tests {
		got, err := OptionalString(map[string]interface{}{"v": tt.value}, "v", "default")
		if err != nil || got != tt.want {
			t.Errorf("OptionalString(%v) = %q, %v; want %q", tt.value, got, err, tt.want)
		}
	}
	if _, err := OptionalString(map[string]interface{}{"v": []interface{}{}}, "v", ""); err == nil {
		t.Error("expected error for list value")
	}
}

func TestNumbers(t *testing.T) {
	cfg := map[string]interface{}{"n": 3, "f": 2.5, "s": "10", "bad": "x", "u": uint64(7)}

	if n, err := Int(cfg, "n", 0); err != nil || n != 3 {
		t.Errorf("Int(n) = %d, %v", n, err)
	}
	if n, err := Int(cfg, "absent", 50); err != nil || n != 50 {
		t.Errorf("Int(absent) = %d, %v", n, err)
	}
	if _, err := Int(cfg, "f", 0); err == nil {
		t.Error("Int(f): expected error for fractional value")
	}
	if f, err := OptionalFloat(cfg, "s"); err != nil || *f != 10 {
		t.Errorf("OptionalFloat(s) = %v, %v", f, err)
	}
	if f, err := OptionalFloat(cfg, "absent"); err != nil || f != nil {
		t.Errorf("OptionalFloat(absent) = %v, %v", f, err)
	}
	if _, err := OptionalFloat(cfg, "bad"); err == nil {
		t.Error("OptionalFloat(bad): expected error")
	}
	if f, ok := ToFloat(cfg["u"]); !ok || f != 7 {
		t.Errorf("ToFloat(uint64) = %v, %v", f, ok)
	}
}

func TestSlices(t *testing.T) {
	cfg := map[string]interface{}{
		"labels":     []interface{}{"small", "medium", 3},
		"boundaries": []interface{}{1000000, 1e7},
		"metrics":    []interface{}{map[string]interface{}{"op": "sum"}},
		"mixed":      []interface{}{"a", map[string]interface{}{}},
	}

	labels, err := StringSlice(cfg, "labels")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"small", "medium", "3"}, labels); diff != "" {
		t.Errorf("StringSlice mismatch (-want +got):\n%s", diff)
	}

	bounds, err := FloatSlice(cfg, "boundaries")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{1e6, 1e7}, bounds); diff != "" {
		t.Errorf("FloatSlice mismatch (-want +got):\n%s", diff)
	}

	metrics, err := MapSlice(cfg, "metrics")
	if err != nil || len(metrics) != 1 || metrics[0]["op"] != "sum" {
		t.Errorf("MapSlice = %v, %v", metrics, err)
	}

	if _, err := StringSlice(cfg, "mixed"); err == nil {
		t.Error("StringSlice(mixed): expected error")
	}
	if _, err := MapSlice(cfg, "mixed"); err == nil {
		t.Error("MapSlice(mixed): expected error")
	}
	if _, err := FloatSlice(cfg, "labels"); err == nil {
		t.Error("FloatSlice(labels): expected error")
	}
}

func TestBoolAndMap(t *testing.T) {
	cfg := map[string]interface{}{"yes": true, "str": "false", "bad": "maybe", "from": map[string]interface{}{"view": "eo1"}}
	if b, err := Bool(cfg, "yes", false); err != nil || !b {
		t.Errorf("Bool(yes) = %v, %v", b, err)
	}
	if b, err := Bool(cfg, "str", true); err != nil || b {
		t.Errorf("Bool(str) = %v, %v", b, err)
	}
	if _, err := Bool(cfg, "bad", false); err == nil {
		t.Error("Bool(bad): expected error")
	}
	if m, err := Map(cfg, "from"); err != nil || m["view"] != "eo1" {
		t.Errorf("Map(from) = %v, %v", m, err)
	}
	if _, err := Map(cfg, "yes"); err == nil {
		t.Error("Map(yes): expected error")
	}
}

func TestOnError(t *testing.T) {
	tests := []struct {
		cfg     map[string]interface{}
		want    string
		wantErr bool
	}{
		{map[string]interface{}{}, OnErrorFail, false},
		{map[string]interface{}{"onError": ""}, OnErrorFail, false},
		{map[string]interface{}{"onError": "skip"}, OnErrorSkip, false},
		{map[string]interface{}{"onError": "log"}, OnErrorLog, false},
		{map[string]interface{}{"onError": "retry"}, "", true},
	}
	for _, tt := range tests {
		got, err := OnError(tt.cfg)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("OnError(%v) = %q, %v", tt.cfg, got, err)
		}
	}
}
