package rawdoc

import (
	"strings"
	"testing"
)

func TestDecode_UTF8BOM(t *testing.T) {
	d := New("a.txt", append([]byte{0xEF, 0xBB, 0xBF}, "héllo\r\nworld"...), "en")
	got, err := d.Decode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.HasBOM || got.Encoding != "UTF-8" {
		t.Errorf("expected UTF-8 with BOM, got %q bom=%v", got.Encoding, got.HasBOM)
	}
	if got.Text != "héllo\r\nworld" {
		t.Errorf("expected %q, got %q", "héllo\r\nworld", got.Text)
	}
	if got.LineBreak != "\r\n" {
		t.Errorf("expected CRLF, got %q", got.LineBreak)
	}
}

func TestDecode_UTF16LE(t *testing.T) {
	data := []byte{0xFF, 0xFE, 'h', 0, 'i', 0}
	got, err := New("a.txt", data, "en").Decode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "hi" || got.Encoding != "UTF-16LE" {
		t.Errorf("unexpected decode %q as %q", got.Text, got.Encoding)
	}
}

func TestDecode_DeclaredLatin1(t *testing.T) {
	d := New("a.txt", []byte{'c', 'a', 'f', 0xE9}, "fr")
	d.Encoding = "ISO-8859-1"
	got, err := d.Decode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "café" {
		t.Errorf("expected %q, got %q", "café", got.Text)
	}
	if got.HasBOM {
		t.Error("unexpected BOM")
	}
}

func TestDecode_SniffsHTMLMeta(t *testing.T) {
	src := `<html><head><meta charset="iso-8859-1"></head><body>caf` + "\xE9" + `</body></html>`
	d := New("a.html", []byte(src), "fr")
	d.MimeType = "text/html"
	got, err := d.Decode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got.Text, "café") {
		t.Errorf("expected decoded text, got %q", got.Text)
	}
	if got.Encoding == "UTF-8" {
		t.Error("expected the declared charset to be used")
	}
}

func TestDecode_InvalidUTF8(t *testing.T) {
	if _, err := New("a.txt", []byte{0xff, 0xfd, 0x80}, "en").Decode(); err == nil {
		t.Error("expected error for invalid UTF-8")
	}
	d := New("a.txt", []byte("x"), "en")
	d.Encoding = "no-such-charset"
	if _, err := d.Decode(); err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestIsUTF8(t *testing.T) {
	for _, name := range []string{"UTF-8", "utf8", "utf-8"} {
		if !IsUTF8(name) {
			t.Errorf("expected %q to be UTF-8", name)
		}
	}
	if IsUTF8("windows-1252") {
		t.Error("windows-1252 is not UTF-8")
	}
}

func TestLookup_Latin1IsNotWindows1252(t *testing.T) {
	enc, err := Lookup("ISO-8859-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := enc.NewDecoder().String("\x80")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "\u0080" {
		t.Errorf("expected %q, got %q", "\u0080", got)
	}
	if _, err := enc.NewEncoder().String("€"); err == nil {
		t.Error("expected Latin-1 encoder to reject €")
	}
}

func TestLookup_FallsBackToWHATWGLabels(t *testing.T) {
	for _, name := range []string{"latin1", "utf8"} {
		if _, err := Lookup(name); err != nil {
			t.Errorf("expected %q to resolve, got %v", name, err)
		}
	}
	if _, err := Lookup("no-such-charset"); err == nil {
		t.Error("expected error for unknown label")
	}
}
