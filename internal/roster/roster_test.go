package roster_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyboard/internal/roster"
)

func TestSetSanitizesNameAndCapsImages(t *testing.T) {
	var r roster.Roster
	images := []string{"a", "b", "c", "d", "e", "f", "g"}
	updated, err := r.Set(1, roster.Character{Name: " Lan Anh 2 ", ReferenceImages: images, StyleNote: " red scarf "})
	if err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	got := updated[1]
	if got.Name != "LanAnh" {
		t.Fatalf("name = %q, want LanAnh", got.Name)
	}
	if len(got.ReferenceImages) != roster.MaxReferenceImages {
		t.Fatalf("images = %d, want %d", len(got.ReferenceImages), roster.MaxReferenceImages)
	}
	if got.StyleNote != "red scarf" {
		t.Fatalf("style = %q", got.StyleNote)
	}
	if !r[1].Empty() {
		t.Fatal("Set must not modify the receiver")
	}
	images[0] = "mutated"
	if updated[1].ReferenceImages[0] != "a" {
		t.Fatal("Set must copy reference images")
	}
}

func TestSetRejectsBadSlot(t *testing.T) {
	var r roster.Roster
	for _, slot := range []int{-1, roster.Slots} {
		if _, err := r.Set(slot, roster.Character{Name: "x"}); err == nil {
			t.Fatalf("expected error for slot %d", slot)
		}
	}
}

func TestLookupSkipsEmptyAndLaterSlotWins(t *testing.T) {
	r := roster.FromSlice([]roster.Character{{Name: "Lan"}, {}, {Name: "LÀN"}})
	lookup := r.Lookup()
	if len(lookup) != 1 {
		t.Fatalf("lookup = %v, want one entry", lookup)
	}
	if lookup["lan"] != 2 {
		t.Fatalf("lookup[lan] = %d, want 2", lookup["lan"])
	}
	if named := r.Named(); len(named) != 2 || named[0] != 0 || named[1] != 2 {
		t.Fatalf("Named = %v", named)
	}
}

func TestFromSlicePadsAndTruncates(t *testing.T) {
	short := roster.FromSlice([]roster.Character{{Name: "A"}})
	if short[0].Name != "A" || !short[1].Empty() || !short[2].Empty() {
		t.Fatalf("unexpected padded roster: %+v", short)
	}
	long := roster.FromSlice([]roster.Character{{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"}})
	if long[2].Name != "C" {
		t.Fatalf("unexpected truncated roster: %+v", long)
	}
}

func TestCharacterSet(t *testing.T) {
	set := roster.NewSet(2, 0, 2, roster.None)
	if set.String() != "0+2" {
		t.Fatalf("String = %q, want 0+2", set.String())
	}
	if !set.Equal(roster.CharacterSet{2, 0}) {
		t.Fatal("expected order-insensitive equality")
	}
	if set.Equal(roster.NewSet(0)) {
		t.Fatal("expected inequality")
	}
	if roster.NewSet().String() != "none" || len(roster.NewSet()) != 0 {
		t.Fatal("expected empty set to render as none")
	}
	if !roster.NewSet(roster.Random).IsRandom() {
		t.Fatal("expected random sentinel")
	}
}

func TestParseSet(t *testing.T) {
	tests := []struct {
		in      string
		want    roster.CharacterSet
		wantErr bool
	}{
		{in: "none", want: roster.CharacterSet{}},
		{in: "", want: roster.CharacterSet{}},
		{in: "Random", want: roster.CharacterSet{roster.Random}},
		{in: "2,0", want: roster.CharacterSet{0, 2}},
		{in: "1+1", want: roster.CharacterSet{1}},
		{in: "3", wantErr: true},
		{in: "x", wantErr: true},
	}
	for _, tt := range tests {
		got, err := roster.ParseSet(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseSet(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseSet(%q) returned error: %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("ParseSet(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadFileResolvesImagesAndDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.yaml")
	content := `default: 1
characters:
  - slot: 0
    name: Lan
    style: red scarf
    images: [refs/lan.png]
  - slot: 1
    name: Hùng
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	file, err := roster.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}
	if got := file.Characters[0].Images[0]; got != filepath.Join(dir, "refs", "lan.png") {
		t.Fatalf("image path = %q", got)
	}
	def, err := file.DefaultSlot()
	if err != nil || def == nil || *def != 1 {
		t.Fatalf("DefaultSlot = %v, %v", def, err)
	}

	base := roster.FromSlice([]roster.Character{{}, {}, {Name: "Mai"}})
	built, err := file.Build(base, func(p string) (string, error) { return "data:" + filepath.Base(p), nil })
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if built[0].Name != "Lan" || built[0].ReferenceImages[0] != "data:lan.png" {
		t.Fatalf("unexpected slot 0: %+v", built[0])
	}
	if built[1].Name != "Hùng" {
		t.Fatalf("unexpected slot 1: %+v", built[1])
	}
	if built[2].Name != "Mai" {
		t.Fatalf("slot 2 should be kept, got %+v", built[2])
	}
}

func TestBuildPropagatesEncodeError(t *testing.T) {
	file, err := roster.ParseFile([]byte("characters:\n  - slot: 0\n    name: Lan\n    images: [x.png]\n"))
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	boom := errors.New("boom")
	if _, err := file.Build(roster.Roster{}, func(string) (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("expected encode error, got %v", err)
	}
}

func TestParseFileValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"slot out of range", "characters:\n  - slot: 5\n    name: A\n", "out of range"},
		{"duplicate slot", "characters:\n  - slot: 0\n    name: A\n  - slot: 0\n    name: B\n", "listed twice"},
		{"bad default", "default: lan\n", "not a slot index"},
		{"too many images", "characters:\n  - slot: 0\n    images: [a, b, c, d, e, f]\n", "at most"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := roster.ParseFile([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q error, got %v", tt.want, err)
			}
		})
	}
}

func TestParseDefaultNone(t *testing.T) {
	def, err := roster.ParseDefault("none")
	if err != nil || def != nil {
		t.Fatalf("ParseDefault(none) = %v, %v", def, err)
	}
}
