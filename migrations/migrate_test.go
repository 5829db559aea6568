package migrations_test

import (
	"strings"
	"testing"

	"repair-desk/migrations"
)

func TestDiscover(t *testing.T) {
	ms, err := migrations.Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(ms) == 0 {
		t.Fatal("no embedded migrations")
	}
	if ms[0].Version != "001" {
		t.Errorf("first version = %s, want 001", ms[0].Version)
	}
	for _, m := range ms {
		if len(m.Checksum) != 64 {
			t.Errorf("%s: checksum %q is not a sha256 hex digest", m.Filename, m.Checksum)
		}
	}
	if !strings.Contains(ms[0].SQL, "CREATE TABLE service_ledger") {
		t.Error("001 does not create service_ledger")
	}
}
