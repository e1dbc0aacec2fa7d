package storagename

import (
	"testing"
	"time"
)

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"héllo wörld.jpg":    "hello_world.jpg",
		"../../etc/passwd":   "passwd",
		"urchin (1).png":     "urchin_1.png",
		"UPPER_case-ok.jpeg": "UPPER_case-ok.jpeg",
		"...":                "",
		"///":                "",
		"日本語.jpg":            "jpg",
	}
	for input, want := range cases {
		if got := Sanitize(input); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestForUpload(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	name, err := ForUpload("Sea Urchin.JPG", now, ImageExtensions)
	if err != nil {
		t.Fatalf("for upload: %v", err)
	}
	if name != "20260314_092653_Sea_Urchin.jpg" {
		t.Fatalf("unexpected storage name %q", name)
	}
}

func TestForUploadRejectsBadInput(t *testing.T) {
	now := time.Now()
	if _, err := ForUpload("notes.txt", now, ImageExtensions); err == nil {
		t.Fatal("expected rejection of .txt")
	}
	if _, err := ForUpload("clip.mp4", now, ImageExtensions); err == nil {
		t.Fatal("expected rejection of a video extension against the image allowlist")
	}
	if _, err := ForUpload("...", now, ImageExtensions); err == nil {
		t.Fatal("expected rejection when nothing safe remains")
	}
}

func TestStem(t *testing.T) {
	if got := Stem("/data/extractions/dive_01.mp4"); got != "dive_01" {
		t.Fatalf("Stem = %q", got)
	}
	if got := Stem("plain"); got != "plain" {
		t.Fatalf("Stem = %q", got)
	}
}

func TestExtensionPredicates(t *testing.T) {
	if !IsImage("a.JPG") || !IsImage("b.png") || IsImage("c.gif") || IsImage("d") {
		t.Fatal("image predicate mismatch")
	}
	if !IsVideo("a.MOV") || !IsVideo("b.mkv") || IsVideo("c.jpg") {
		t.Fatal("video predicate mismatch")
	}
}
