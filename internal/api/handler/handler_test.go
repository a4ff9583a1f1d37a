package handler

import "testing"

func TestParseFlag(t *testing.T) {
	tests := map[string]bool{
		"1": true, "true": true, "True": true, "yes": true, " yes ": true,
		"0": false, "false": false, "TRUE": false, "": false, "no": false,
	}
	for in, want := range tests {
		if got := parseFlag(in); got != want {
			t.Errorf("parseFlag(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Morticia  ", "Morticia"},
		{"<script>alert(1)</script>Wednesday", "Wednesday"},
		{"<b>Tom</b> & Jerry", "Tom & Jerry"},
		{"glowing <i>green</i> eyes", "glowing green eyes"},
	}
	for _, tt := range tests {
		if got := cleanText(tt.in); got != tt.want {
			t.Errorf("cleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestContentTypeByExt(t *testing.T) {
	if got := contentTypeByExt("a.JPG"); got != "image/jpeg" {
		t.Errorf("got %q", got)
	}
	if got := contentTypeByExt("a.bin"); got != "application/octet-stream" {
		t.Errorf("got %q", got)
	}
}
