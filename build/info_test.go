package build

import "testing"

func TestBuildModeHelpers(t *testing.T) {
	original := Mode
	defer func() { Mode = original }()

	Mode = ModeDevelopment
	if !IsDevelopment() || IsProduction() {
		t.Fatal("expected development mode")
	}

	Mode = ModeProduction
	if IsDevelopment() || !IsProduction() {
		t.Fatal("expected production mode")
	}
}

func TestCurrentString(t *testing.T) {
	originalVersion, originalCommit := Version, Commit
	defer func() { Version, Commit = originalVersion, originalCommit }()

	Version = "v1.2.3"
	Commit = "abc123"
	info := Current()
	if info.Version != "v1.2.3" || info.Commit != "abc123" {
		t.Fatalf("info mismatch: %+v", info)
	}
	want := "metaroute v1.2.3 (commit abc123, built " + BuildDate + ", " + string(Mode) + ")"
	if got := info.String(); got != want {
		t.Fatalf("string mismatch: got=%q want=%q", got, want)
	}
}
