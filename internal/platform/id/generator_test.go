package id

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDGeneratorIssuesVersion7(t *testing.T) {
	t.Parallel()

	gen := NewUUIDGenerator()
	first, err := gen.NewID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := gen.NewID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Fatalf("ids must be unique: %s", first)
	}
	parsed, err := uuid.Parse(first)
	if err != nil {
		t.Fatalf("parse id: %v", err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("unexpected version: got=%d want=%d", parsed.Version(), 7)
	}
}

func TestSequence(t *testing.T) {
	t.Parallel()

	seq := &Sequence{Prefix: "run-"}
	seq.NewID()
	got, _ := seq.NewID()
	if got != "run-2" {
		t.Fatalf("unexpected id: got=%s want=%s", got, "run-2")
	}
}
