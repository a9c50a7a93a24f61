package idgen

import (
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestULIDGenerator_Generate(t *testing.T) {
	gen := NewULIDGenerator()

	prev := gen.Generate()
	if _, err := ulid.ParseStrict(prev); err != nil {
		t.Fatalf("generated id is not a ULID: %v", err)
	}

	for i := 0; i < 1000; i++ {
		next := gen.Generate()
		if next <= prev {
			t.Fatalf("ids not increasing: %s after %s", next, prev)
		}
		prev = next
	}
}
