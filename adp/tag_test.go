package adp

import "testing"

func TestRegistryRegisterLookupCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(TagSpec{Name: "MyTag", Type: ProcTag, HasEndTag: false})

	spec, ok := r.lookup("mytag")
	if !ok {
		t.Fatal("expected lookup to find tag registered under a different case")
	}
	if spec.Name != "MyTag" {
		t.Errorf("spec.Name = %q, want original casing preserved", spec.Name)
	}
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	r.Register(TagSpec{Name: "a"})
	r.Register(TagSpec{Name: "b"})

	names := r.Names()
	if len(names) != 2 {
		t.Fatalf("Names() = %v, want 2 entries", names)
	}
}

func TestRegistryRegisterReplacesExisting(t *testing.T) {
	r := NewRegistry()
	r.Register(TagSpec{Name: "tag", HasEndTag: false})
	r.Register(TagSpec{Name: "tag", HasEndTag: true})

	spec, ok := r.lookup("tag")
	if !ok || !spec.HasEndTag {
		t.Fatalf("expected second Register to replace the first, got %+v", spec)
	}
}
