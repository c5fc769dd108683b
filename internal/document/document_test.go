package document

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestDecodeKeepsFieldOrder(t *testing.T) {
	d, err := Decode([]byte(`{"z":1,"a":{"n":[1,2]},"m":null}`))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := d.Fields(), []string{"z", "a", "m"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("fields: got %v, want %v", got, want)
	}
	out, err := d.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"z":1,"a":{"n":[1,2]},"m":null}` {
		t.Fatalf("encode: got %s", out)
	}
}

func TestDecodeRejectsNonObjects(t *testing.T) {
	for _, in := range []string{"not-json", "", "5", `"s"`, "[1,2]", `{"a":1`, `{"a":1} x`} {
		if _, err := Decode([]byte(in)); !errors.Is(err, ErrMalformed) {
			t.Errorf("Decode(%q): expected ErrMalformed, got %v", in, err)
		}
	}
}

func TestNullIsNotAbsent(t *testing.T) {
	d, err := Decode([]byte(`{"n":null}`))
	if err != nil {
		t.Fatal(err)
	}
	if raw, ok := d.Get("n"); !ok || string(raw) != "null" {
		t.Fatalf("present null: got %q, %v", raw, ok)
	}
	if d.Has("missing") {
		t.Fatal("missing field reported present")
	}
	if d.Matches("missing", json.RawMessage("null")) {
		t.Fatal("absent field must not match null")
	}
	if !d.Matches("n", json.RawMessage("null")) {
		t.Fatal("present null should match null")
	}
}

func TestSetAppendsAndReplaces(t *testing.T) {
	d, _ := Decode([]byte(`{"id":3,"status":0}`))
	if err := d.Set("status", 1); err != nil {
		t.Fatal(err)
	}
	if err := d.Set("extra", "x"); err != nil {
		t.Fatal(err)
	}
	out, _ := d.Encode()
	if string(out) != `{"id":3,"status":1,"extra":"x"}` {
		t.Fatalf("got %s", out)
	}
}

func TestSetUnencodable(t *testing.T) {
	d := New()
	if err := d.Set("bad", make(chan int)); !errors.Is(err, ErrUnencodable) {
		t.Fatalf("expected ErrUnencodable, got %v", err)
	}
	if d.Has("bad") {
		t.Fatal("failed Set must not add the field")
	}
}

func TestFromValue(t *testing.T) {
	d, err := FromValue(map[string]any{"id": 9})
	if err != nil {
		t.Fatal(err)
	}
	if !d.Matches("id", json.RawMessage("9")) {
		t.Fatal("id should be 9")
	}
	if _, err := FromValue(map[string]any{"obj": func() {}}); !errors.Is(err, ErrUnencodable) {
		t.Fatalf("expected ErrUnencodable, got %v", err)
	}
	if _, err := FromValue([]int{1}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("array: expected ErrMalformed, got %v", err)
	}
}

func TestMergeAndEqual(t *testing.T) {
	d, _ := Decode([]byte(`{"id":3,"status":0}`))
	u, _ := Decode([]byte(`{"status":1,"extra":5}`))
	d.Merge(u)
	want, _ := Decode([]byte(`{"extra":5.0,"status":1,"id":3}`))
	if !d.Equal(want) {
		got, _ := d.Encode()
		t.Fatalf("merge: got %s", got)
	}
}

func TestEqualStrictTypes(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{`1`, `1`, true},
		{`1`, `1.0`, true},
		{`1e2`, `100`, true},
		{`1`, `"1"`, false},
		{`1`, `true`, false},
		{`0`, `false`, false},
		{`null`, `null`, true},
		{`null`, `0`, false},
		{`"a"`, `"a"`, true},
		{`[1,{"x":2}]`, `[1,{"x":2.0}]`, true},
		{`[1,2]`, `[2,1]`, false},
		{`{"a":1,"b":2}`, `{"b":2,"a":1}`, true},
		{`{"a":1}`, `{"a":1,"b":2}`, false},
		{`12345678901234567891`, `12345678901234567890`, false},
		{`9007199254740993`, `9007199254740992`, false},
		{`0`, `-0.0`, true},
		{`0e5`, `0`, true},
		{`-1`, `1`, false},
		{`1.50`, `15e-1`, true},
		{`0.001`, `1E-3`, true},
		{`1e99999999`, `10e99999998`, true},
		{`1e99999999`, `1e99999998`, false},
		{`1e999999`, `1e999999`, true},
		{`2e999999`, `1e999999`, false},
		{`1e99999999999999999999`, `10e99999999999999999998`, true},
	}
	for _, tt := range tests {
		if got := Equal(json.RawMessage(tt.a), json.RawMessage(tt.b)); got != tt.want {
			t.Errorf("Equal(%s, %s): got %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestEqualHugeExponentIsFast(t *testing.T) {
	a := json.RawMessage(`1e999999`)
	b := json.RawMessage(`10.0e999998`)
	start := time.Now()
	for i := 0; i < 1000; i++ {
		if !Equal(a, b) {
			t.Fatal("expected equal")
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("1000 comparisons took %s", elapsed)
	}
}

func TestAdd(t *testing.T) {
	tests := []struct {
		cur    string
		amount json.Number
		want   json.Number
		ok     bool
	}{
		{`1`, "1", "2", true},
		{`0`, "3", "3", true},
		{`-5`, "2", "-3", true},
		{`9223372036854775807`, "1", "9223372036854775808", true},
		{`1.5`, "1", "2.5", true},
		{`2`, "0.25", "2.25", true},
		{`"done"`, "1", "", false},
		{`true`, "1", "", false},
		{`null`, "1", "", false},
		{`[1]`, "1", "", false},
	}
	for _, tt := range tests {
		got, ok, err := Add(json.RawMessage(tt.cur), tt.amount)
		if err != nil {
			t.Errorf("Add(%s, %s): unexpected error %v", tt.cur, tt.amount, err)
			continue
		}
		if ok != tt.ok || got != tt.want {
			t.Errorf("Add(%s, %s): got %q, %v; want %q, %v", tt.cur, tt.amount, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAddOverflow(t *testing.T) {
	if _, _, err := Add(json.RawMessage(`1.7e308`), "1.7e308"); !errors.Is(err, ErrUnencodable) {
		t.Fatalf("expected ErrUnencodable, got %v", err)
	}
}

func TestValidNumber(t *testing.T) {
	for n, want := range map[json.Number]bool{"1": true, "-2.5e3": true, "": false, "abc": false, "1 2": false} {
		if got := ValidNumber(n); got != want {
			t.Errorf("ValidNumber(%q): got %v, want %v", n, got, want)
		}
	}
}
