package depgraph

import "testing"

func TestIdentifierStringRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		id   Identifier
		want string
	}{
		{"full", Identifier{Type: "Maven", Namespace: "org.apache", Name: "commons", Version: "3.12.0"}, "Maven:org.apache:commons:3.12.0"},
		{"no namespace", Identifier{Type: "NPM", Name: "lodash", Version: "4.17.21"}, "NPM::lodash:4.17.21"},
		{"no version", Identifier{Type: "Go", Namespace: "github.com/spf13", Name: "cobra"}, "Go:github.com/spf13:cobra:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if got := ParseIdentifier(tt.want); got != tt.id {
				t.Errorf("ParseIdentifier(%q) = %+v, want %+v", tt.want, got, tt.id)
			}
		})
	}
}

func TestIdentifierCoordinates(t *testing.T) {
	id := Identifier{Type: "NPM", Namespace: "@babel", Name: "core", Version: "7.24.0"}
	if got, want := id.Coordinates(), "NPM:@babel:core"; got != want {
		t.Errorf("Coordinates() = %q, want %q", got, want)
	}
}

func TestIdentifierCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Identifier
		want int
	}{
		{"equal", Identifier{Type: "Go", Name: "x", Version: "v1.0.0"}, Identifier{Type: "Go", Name: "x", Version: "v1.0.0"}, 0},
		{"by type", Identifier{Type: "Go"}, Identifier{Type: "NPM"}, -1},
		{"by name", Identifier{Type: "Go", Name: "a"}, Identifier{Type: "Go", Name: "b"}, -1},
		{"semver order", Identifier{Type: "Go", Name: "x", Version: "1.10.0"}, Identifier{Type: "Go", Name: "x", Version: "1.9.0"}, 1},
		{"lexical fallback", Identifier{Type: "Go", Name: "x", Version: "latest"}, Identifier{Type: "Go", Name: "x", Version: "stable"}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Compare(tt.b); got != tt.want {
				t.Errorf("Compare = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsEmpty(t *testing.T) {
	if !(Identifier{}).IsEmpty() {
		t.Error("zero identifier should be empty")
	}
	if (Identifier{Type: "Go"}).IsEmpty() {
		t.Error("non-zero identifier should not be empty")
	}
}
