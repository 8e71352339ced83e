package chainid

import (
	"strings"
	"testing"
)

func TestRootDeterministic(t *testing.T) {
	a := Root("lobby")
	b := Root("lobby")
	if a != b {
		t.Errorf("expected identical roots, got %s and %s", a, b)
	}
	if Root("other") == a {
		t.Error("different names must derive different roots")
	}
	if err := Validate(a); err != nil {
		t.Errorf("root failed validation: %v", err)
	}
}

func TestChildUnique(t *testing.T) {
	parent := Root("lobby")
	ids := make(map[ID]bool)

	for i := uint64(0); i < 100; i++ {
		id := Child(parent, i)
		if ids[id] {
			t.Errorf("duplicate child id: %s", id)
		}
		ids[id] = true
		if err := Validate(id); err != nil {
			t.Errorf("child %d failed validation: %v", i, err)
		}
	}

	if Child(parent, 3) != Child(parent, 3) {
		t.Error("child derivation must be deterministic")
	}
	if Child(Root("a"), 0) == Child(Root("b"), 0) {
		t.Error("children of different parents must differ")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		id      ID
		wantErr bool
	}{
		{name: "valid ID", id: "01h5n0et5q6mt3v7ms1234abcd", wantErr: false},
		{name: "too short", id: "01h5n0et5q6mt3v7ms123", wantErr: true},
		{name: "too long", id: "01h5n0et5q6mt3v7ms1234abcdef", wantErr: true},
		{name: "invalid character", id: "01h5n0et5q6mt3v7ms1234abci", wantErr: true},
		{name: "uppercase not allowed", id: "01H5N0ET5Q6MT3V7MS1234ABCD", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAlphabet(t *testing.T) {
	if len(alphabet) != 32 {
		t.Errorf("alphabet should have 32 characters, got %d", len(alphabet))
	}
	for _, char := range "ilou" {
		if strings.ContainsRune(alphabet, char) {
			t.Errorf("alphabet should not contain %c", char)
		}
	}
}
