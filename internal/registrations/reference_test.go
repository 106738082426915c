package registrations

import (
	"context"
	"regexp"
	"testing"
	"time"
)

func TestRandomReferencesFormat(t *testing.T) {
	now := time.Date(2026, 12, 31, 23, 30, 0, 0, time.FixedZone("MYT", 8*3600))
	pattern := regexp.MustCompile(`^REG-20261231-[0-9A-HJKMNP-TV-Z]{6}$`)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		ref, err := RandomReferences{}.Next(context.Background(), now)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !pattern.MatchString(ref) {
			t.Fatalf("unexpected reference format %q", ref)
		}
		seen[ref] = true
	}
	if len(seen) < 190 {
		t.Fatalf("expected references to be mostly unique, got %d distinct", len(seen))
	}
}

func TestRandomReferencesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (RandomReferences{}).Next(ctx, time.Now()); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestRulesAndSizeLabel(t *testing.T) {
	rules := DefaultRules()
	if rules.MaxFileBytes != 10*1024*1024 {
		t.Fatalf("unexpected ceiling %d", rules.MaxFileBytes)
	}
	rules.RequiredDocs[0] = DocOther
	if RequiredDocs[0] != DocBirthCert {
		t.Fatalf("DefaultRules must not alias RequiredDocs")
	}

	if got := sizeLabel(10 << 20); got != "10MB" {
		t.Fatalf("sizeLabel(10MiB) = %q", got)
	}
	if got := sizeLabel(1500); got != "1500 bytes" {
		t.Fatalf("sizeLabel(1500) = %q", got)
	}

	missing := Rules{}.MissingDocs(NewFilesByType())
	if len(missing) != 4 || missing[0] != DocBirthCert || missing[3] != DocAddressProof {
		t.Fatalf("unexpected missing docs %v", missing)
	}
}
