package core

import (
	"context"
	"reflect"
	"testing"
)

func nop() Callback {
	return CallbackFunc(func(context.Context, *Record) (Result, error) { return Continue, nil })
}

func entryNames(c Chain) []string {
	var names []string
	for _, e := range c.Entries {
		names = append(names, e.Name)
	}
	return names
}

func TestResolveInheritance(t *testing.T) {
	reg := NewRegistry()
	base := reg.Define("Track", nil)
	child := reg.Define("Track1", base)

	base.OnNamed(EventSave, Before, "base-1", nop())
	child.OnNamed(EventSave, Before, "child-1", nop())
	// registered on the parent after the child exists, still inherited
	base.OnNamed(EventSave, Before, "base-2", nop())
	child.OnNamed(EventSave, After, "child-after", nop())

	got := entryNames(child.Resolve(EventSave, Before))
	want := []string{"base-1", "base-2", "child-1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("child before_save = %v, want %v", got, want)
	}

	got = entryNames(base.Resolve(EventSave, Before))
	want = []string{"base-1", "base-2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("base before_save = %v, want %v", got, want)
	}

	if n := base.Resolve(EventSave, After).Len(); n != 0 {
		t.Errorf("base after_save has %d entries, want 0", n)
	}

	chain := reg.Resolve("Track1", EventSave, Before)
	if chain.Entries[1].Index != 1 || chain.Entries[1].Class != "Track" {
		t.Errorf("unexpected entry metadata: %+v", chain.Entries[1])
	}
	if chain.Entries[2].Index != 0 || chain.Entries[2].Class != "Track1" {
		t.Errorf("unexpected entry metadata: %+v", chain.Entries[2])
	}
}

func TestResolveDeepInheritance(t *testing.T) {
	reg := NewRegistry()
	a := reg.Define("A", nil)
	b := reg.Define("B", a)
	c := reg.Define("C", b)

	c.OnNamed(EventDestroy, Before, "c", nop())
	b.OnNamed(EventDestroy, Before, "b", nop())
	a.OnNamed(EventDestroy, Before, "a", nop())

	got := entryNames(c.Resolve(EventDestroy, Before))
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("before_destroy = %v, want %v", got, want)
	}
	if !c.IsA(a) || a.IsA(c) {
		t.Error("IsA does not follow the lineage")
	}
}

func TestRegisterUnknownClass(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Ghost", EventCreate, After, Entry{Name: "boo", Callback: nop()})

	c, ok := reg.Lookup("Ghost")
	if !ok {
		t.Fatal("Register did not define the class")
	}
	if c.Parent() != nil {
		t.Error("implicitly defined class should be a root class")
	}
	chain := reg.Resolve("Ghost", EventCreate, After)
	if chain.Len() != 1 || chain.Entries[0].Event != EventCreate || chain.Entries[0].Phase != After {
		t.Fatalf("unexpected chain: %+v", chain)
	}
}

func TestResolveUnknownClass(t *testing.T) {
	reg := NewRegistry()
	chain := reg.Resolve("Nobody", EventSave, Before)
	if chain.Len() != 0 || chain.Event != EventSave || chain.Phase != Before {
		t.Fatalf("unexpected chain: %+v", chain)
	}
}

func TestResolveReturnsCopy(t *testing.T) {
	reg := NewRegistry()
	c := reg.Define("Track", nil)
	c.OnNamed(EventSave, Before, "one", nop())

	chain := c.Resolve(EventSave, Before)
	chain.Entries[0].Name = "mutated"
	_ = append(chain.Entries, Entry{Name: "extra"})

	got := entryNames(c.Resolve(EventSave, Before))
	if !reflect.DeepEqual(got, []string{"one"}) {
		t.Fatalf("registry changed through resolved chain: %v", got)
	}
}

func TestDefineReturnsExisting(t *testing.T) {
	reg := NewRegistry()
	first := reg.Define("Track", nil)
	again := reg.Define("Track", reg.Define("Other", nil))
	if first != again {
		t.Fatal("Define created a second class for the same name")
	}
	if again.Parent() != nil {
		t.Error("redefinition must not change the parent")
	}
}

func TestCollection(t *testing.T) {
	reg := NewRegistry()
	track := reg.Define("Track", nil)
	child := reg.Define("Track1", track)

	if got := track.Collection(); got != "tracks" {
		t.Errorf("Track collection = %q, want tracks", got)
	}
	if got := child.Collection(); got != "tracks" {
		t.Errorf("Track1 collection = %q, want inherited tracks", got)
	}

	track.SetCollection("songs")
	if got := child.Collection(); got != "songs" {
		t.Errorf("Track1 collection = %q, want songs", got)
	}
	child.SetCollection("favourites")
	if got := child.Collection(); got != "favourites" {
		t.Errorf("Track1 collection = %q, want favourites", got)
	}
	if got := reg.Define("PlayList", nil).Collection(); got != "play_lists" {
		t.Errorf("PlayList collection = %q, want play_lists", got)
	}
}
