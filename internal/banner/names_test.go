package banner

import "testing"

func TestValidName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"5_2_20240911", true},
		{"5_2_20240911.jpg", true},
		{"123_45_19991231.webp", true},
		{"5_20240911", false},       // missing a segment
		{"5_2_2024091", false},      // 7-digit date
		{"5_2_202409111", false},    // 9-digit date
		{"a_2_20240911", false},     // non-numeric category
		{"5_2_20240911_x.jpg", false},
		{"", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidName(tc.name); got != tc.valid {
				t.Errorf("ValidName(%q) = %v, want %v", tc.name, got, tc.valid)
			}
		})
	}
}

func TestParseName(t *testing.T) {
	id, ok := ParseName("17_3_20240911.png")
	if !ok {
		t.Fatal("Expected valid name to parse")
	}
	if id != 17 {
		t.Errorf("Expected category 17, got %d", id)
	}

	if _, ok := ParseName("17_20240911.png"); ok {
		t.Error("Expected malformed name to be rejected")
	}
}

func TestIsImageFile(t *testing.T) {
	for _, name := range []string{"a.jpg", "a.jpeg", "a.png", "a.gif", "a.webp", "a.JPG"} {
		if !IsImageFile(name) {
			t.Errorf("Expected %q to be an image file", name)
		}
	}
	for _, name := range []string{"a.txt", "a.svg", "a", "a.jpg.bak"} {
		if IsImageFile(name) {
			t.Errorf("Expected %q not to be an image file", name)
		}
	}
}
