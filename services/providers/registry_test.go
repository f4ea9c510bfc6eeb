package providers

import (
	"context"
	"errors"
	"testing"
)

func stubAdapter(text string) Adapter {
	return AdapterFunc(func(context.Context, string) ResponseRecord {
		return ResponseRecord{Text: text, Confidence: 0.85, Outcome: OutcomeOK}
	})
}

func TestRegistry_PreservesOrder(t *testing.T) {
	reg, err := NewRegistryBuilder().
		With(Descriptor{Name: "Cohere-Command"}, stubAdapter("a")).
		With(Descriptor{Name: "Claude-2"}, stubAdapter("b")).
		With(Descriptor{Name: "FLAN-T5"}, stubAdapter("c")).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []string{"Cohere-Command", "Claude-2", "FLAN-T5"}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if reg.Len() != 3 || len(reg.Descriptors()) != 3 || len(reg.Entries()) != 3 {
		t.Error("length accessors disagree")
	}
}

func TestRegistry_Lookup(t *testing.T) {
	reg, err := NewRegistry(Entry{Descriptor: Descriptor{Name: "GPT-2"}, Adapter: stubAdapter("x")})
	if err != nil {
		t.Fatal(err)
	}

	entry, ok := reg.Lookup("GPT-2")
	if !ok || entry.Name() != "GPT-2" {
		t.Fatalf("Lookup(GPT-2) = %v, %v", entry, ok)
	}
	if rec := entry.Adapter.Invoke(context.Background(), "q"); rec.Text != "x" {
		t.Errorf("adapter returned %q", rec.Text)
	}

	if _, ok := reg.Lookup("gpt-2"); ok {
		t.Error("lookup must be case sensitive")
	}
	if _, ok := reg.Lookup("NoSuchModel"); ok {
		t.Error("unknown name must not be found")
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(
		Entry{Descriptor: Descriptor{Name: "OPT"}, Adapter: stubAdapter("1")},
		Entry{Descriptor: Descriptor{Name: "OPT"}, Adapter: stubAdapter("2")},
	)
	if !errors.Is(err, ErrProviderAlreadyRegistered) {
		t.Errorf("error = %v, want ErrProviderAlreadyRegistered", err)
	}
}

func TestRegistry_RejectsInvalidEntries(t *testing.T) {
	if _, err := NewRegistry(Entry{Descriptor: Descriptor{Name: ""}, Adapter: stubAdapter("1")}); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("empty name error = %v", err)
	}
	if _, err := NewRegistry(Entry{Descriptor: Descriptor{Name: "OPT"}}); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("nil adapter error = %v", err)
	}
}

func TestRegistryBuilder_Replace(t *testing.T) {
	reg, err := NewRegistryBuilder().
		With(Descriptor{Name: "A"}, stubAdapter("a")).
		With(Descriptor{Name: "B"}, stubAdapter("b")).
		Replace(Descriptor{Name: "A", Description: "override"}, stubAdapter("a2")).
		Replace(Descriptor{Name: "C"}, stubAdapter("c")).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	names := reg.Names()
	if len(names) != 3 || names[0] != "A" || names[2] != "C" {
		t.Fatalf("Names() = %v", names)
	}
	entry, _ := reg.Lookup("A")
	if entry.Descriptor.Description != "override" {
		t.Errorf("replace did not update descriptor")
	}
}

func TestRegistry_DescriptorsAreCopies(t *testing.T) {
	specialties := []string{"Chat", "Analysis"}
	reg, err := NewRegistryBuilder().
		With(Descriptor{Name: "DialoGPT", Specialties: specialties}, stubAdapter("a")).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	specialties[0] = "changed by builder caller"
	reg.Descriptors()[0].Specialties[0] = "changed via Descriptors"
	reg.Entries()[0].Descriptor.Specialties[1] = "changed via Entries"
	if e, ok := reg.Lookup("DialoGPT"); ok {
		e.Descriptor.Specialties[0] = "changed via Lookup"
	}

	got := reg.Descriptors()[0].Specialties
	if len(got) != 2 || got[0] != "Chat" || got[1] != "Analysis" {
		t.Errorf("Specialties = %v, want [Chat Analysis]", got)
	}
}
