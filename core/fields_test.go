package core

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestFieldsOrder(t *testing.T) {
	f := NewFields("song", "Europa", "track", 7, "artist", "Santana")
	f.Set("track", 8)

	if got := f.Names(); !reflect.DeepEqual(got, []string{"song", "track", "artist"}) {
		t.Fatalf("Names() = %v", got)
	}
	if v, _ := f.Get("track"); v != 8 {
		t.Errorf("track = %v, want 8", v)
	}

	f.Delete("song")
	f.Delete("missing")
	if got := f.Names(); !reflect.DeepEqual(got, []string{"track", "artist"}) {
		t.Errorf("Names() after delete = %v", got)
	}
	if _, ok := f.Get("song"); ok {
		t.Error("deleted field still readable")
	}
	if f.Len() != 2 {
		t.Errorf("Len() = %d, want 2", f.Len())
	}
}

func TestFieldsClone(t *testing.T) {
	f := NewFields("a", 1)
	c := f.Clone()
	c.Set("a", 2)
	c.Set("b", 3)

	if v, _ := f.Get("a"); v != 1 {
		t.Errorf("original changed through clone: a = %v", v)
	}
	if f.Len() != 1 {
		t.Errorf("original has %d fields, want 1", f.Len())
	}
}

func TestFieldsNil(t *testing.T) {
	var f *Fields
	if f.Len() != 0 || f.Names() != nil {
		t.Error("nil Fields should be empty")
	}
	if _, ok := f.Get("a"); ok {
		t.Error("nil Fields returned a value")
	}
	f.Delete("a")
}

func TestFieldsJSON(t *testing.T) {
	f := NewFields("zeta", "z", "alpha", 1, "pi", 3.5, "tags", []any{"x", 2})

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"zeta":"z","alpha":1,"pi":3.5,"tags":["x",2]}`
	if string(data) != want {
		t.Fatalf("Marshal = %s, want %s", data, want)
	}

	var back Fields
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if got := back.Names(); !reflect.DeepEqual(got, []string{"zeta", "alpha", "pi", "tags"}) {
		t.Errorf("decoded order = %v", got)
	}
	if v, _ := back.Get("alpha"); v != int64(1) {
		t.Errorf("alpha = %#v, want int64(1)", v)
	}
	if v, _ := back.Get("pi"); v != 3.5 {
		t.Errorf("pi = %#v, want 3.5", v)
	}
	if v, _ := back.Get("tags"); !reflect.DeepEqual(v, []any{"x", int64(2)}) {
		t.Errorf("tags = %#v", v)
	}

	if err := json.Unmarshal([]byte(`[1,2]`), &back); err == nil {
		t.Error("expected error decoding an array")
	}
}

func TestRecordAccessors(t *testing.T) {
	r := NewRegistry().Define("Track", nil).New("song", "Europa", "track", "7", "rating", 4.5)

	if r.Int("track") != 7 {
		t.Errorf("Int(track) = %d", r.Int("track"))
	}
	if r.Float("rating") != 4.5 {
		t.Errorf("Float(rating) = %v", r.Float("rating"))
	}
	if r.Int("missing") != 0 || r.String("missing") != "" {
		t.Error("missing fields should read as zero values")
	}
	if r.String("rating") != "4.5" {
		t.Errorf("String(rating) = %q", r.String("rating"))
	}
	if !r.IsNew() || r.ID() != nil || r.State().String() != "new" {
		t.Errorf("fresh record in state %s with id %v", r.State(), r.ID())
	}

	fields := r.Fields()
	fields.Set("song", "changed")
	if r.String("song") != "Europa" {
		t.Error("Fields() must return a copy")
	}
}

func TestRecordNewFromAndBind(t *testing.T) {
	type track struct {
		Song   string `jrecord:"song"`
		Track  int64  `jrecord:"track"`
		Hidden string `jrecord:"-"`
	}
	c := NewRegistry().Define("Track", nil)
	r, err := c.NewFrom(track{Song: "Europa", Track: 7, Hidden: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if r.Has("Hidden") || r.Has("hidden") {
		t.Error("skipped field was copied")
	}
	r.Set("track", int64(9))

	var out track
	if err := r.Bind(&out); err != nil {
		t.Fatal(err)
	}
	if out.Song != "Europa" || out.Track != 9 {
		t.Errorf("Bind = %+v", out)
	}

	if _, err := c.NewFrom(42); err == nil {
		t.Error("expected error for non-struct value")
	}
}
