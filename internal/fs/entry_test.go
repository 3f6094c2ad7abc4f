package fs

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewFile(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.FixedZone("X", 3600))
	e := NewFile("/docs", "Report.PDF", 42, now)

	if e.ID == "" {
		t.Error("expected generated id")
	}
	if e.Kind != KindFile || e.IsDir() {
		t.Errorf("expected file kind, got %q", e.Kind)
	}
	if e.Path != "/docs/Report.PDF" {
		t.Errorf("expected path /docs/Report.PDF, got %q", e.Path)
	}
	if e.Extension != "pdf" {
		t.Errorf("expected extension pdf, got %q", e.Extension)
	}
	if e.Size != 42 {
		t.Errorf("expected size 42, got %d", e.Size)
	}
	if !e.Modified.Equal(now.Truncate(time.Millisecond)) || e.Modified.Location() != time.UTC {
		t.Errorf("expected UTC millisecond timestamp, got %v", e.Modified)
	}

	other := NewFile("/docs", "Report.PDF", 42, now)
	if other.ID == e.ID {
		t.Error("expected distinct ids for distinct entries")
	}
}

func TestNewFolderAtRoot(t *testing.T) {
	e := NewFolder(RootPath, "Docs", time.Now())
	if e.Path != "/Docs" {
		t.Errorf("expected /Docs, got %q", e.Path)
	}
	if !e.IsDir() || e.Extension != "" || e.Size != 0 {
		t.Errorf("unexpected folder entry: %+v", e)
	}
}

func TestEntryJSONShape(t *testing.T) {
	modified := time.Date(2024, 1, 2, 3, 4, 5, 6000000, time.UTC)
	file := Entry{ID: "f1", Name: "empty.txt", Kind: KindFile, Size: 0, Modified: modified, Path: "/empty.txt", Extension: "txt"}
	folder := Entry{ID: "d1", Name: "Docs", Kind: KindFolder, Size: 99, Modified: modified, Path: "/Docs"}

	data, err := json.Marshal([]Entry{file, folder})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	expected := `[{"id":"f1","name":"empty.txt","type":"file","size":0,"modified":"2024-01-02T03:04:05.006Z","path":"/empty.txt","extension":"txt"},` +
		`{"id":"d1","name":"Docs","type":"folder","modified":"2024-01-02T03:04:05.006Z","path":"/Docs"}]`
	if string(data) != expected {
		t.Errorf("unexpected JSON:\n got %s\nwant %s", data, expected)
	}

	var back []Entry
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	folder.Size = 0
	if back[0] != file || back[1] != folder {
		t.Errorf("round trip mismatch: %+v", back)
	}
}

func TestEntryUnmarshalErrors(t *testing.T) {
	testCases := []string{
		`{"id":"x","name":"a","type":"symlink","modified":"2024-01-01T00:00:00.000Z","path":"/a"}`,
		`{"id":"x","name":"a","type":"file","modified":"yesterday","path":"/a"}`,
	}

	for _, input := range testCases {
		var e Entry
		if err := json.Unmarshal([]byte(input), &e); err == nil {
			t.Errorf("expected error for %s", input)
		}
	}
}

func TestValidateFolderName(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{"Docs", "Docs", false},
		{"  Photos 2024  ", "Photos 2024", false},
		{"", "", true},
		{"   ", "", true},
		{"a/b", "", true},
		{`a\b`, "", true},
		{"what?", "", true},
		{`"quoted"`, "", true},
		{"pipe|d", "", true},
	}

	for _, tc := range testCases {
		result, err := ValidateFolderName(tc.input)
		if tc.wantErr {
			if !errors.Is(err, ErrValidation) {
				t.Errorf("ValidateFolderName(%q): expected ErrValidation, got %v", tc.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ValidateFolderName(%q): unexpected error %v", tc.input, err)
		}
		if result != tc.expected {
			t.Errorf("ValidateFolderName(%q): expected %q, got %q", tc.input, tc.expected, result)
		}
	}
}

func TestFormatSizeAndIcon(t *testing.T) {
	file := Entry{Name: "clip.MP4", Kind: KindFile, Size: 2048}
	if got := FormatSize(file); !strings.HasPrefix(got, "2.0 KiB") {
		t.Errorf("FormatSize: expected 2.0 KiB, got %q", got)
	}
	if got := FormatSize(Entry{Kind: KindFolder}); got != "-" {
		t.Errorf("FormatSize(folder): expected -, got %q", got)
	}
	if got := FormatSize(Entry{Kind: KindFile, Size: -5}); got != "0 B" {
		t.Errorf("FormatSize(-5): expected 0 B, got %q", got)
	}
	if got := NewFile("/", "odd.bin", -5, time.Now()).Size; got != 0 {
		t.Errorf("NewFile(size -5): expected size 0, got %d", got)
	}

	testCases := []struct {
		entry    Entry
		expected string
	}{
		{Entry{Kind: KindFolder, Name: "x.zip"}, "folder"},
		{file, "file-video"},
		{Entry{Kind: KindFile, Name: "a.png", Extension: "png"}, "file-image"},
		{Entry{Kind: KindFile, Name: "notes.md"}, "file-text"},
		{Entry{Kind: KindFile, Name: "song.ogg"}, "file-audio"},
		{Entry{Kind: KindFile, Name: "bundle.tar"}, "file-archive"},
		{Entry{Kind: KindFile, Name: "binary"}, "file"},
	}
	for _, tc := range testCases {
		if got := IconFor(tc.entry); got != tc.expected {
			t.Errorf("IconFor(%q): expected %q, got %q", tc.entry.Name, tc.expected, got)
		}
	}
}
