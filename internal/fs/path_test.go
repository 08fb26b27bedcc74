package fs

import (
	"testing"
)

func TestNodePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		rel      string
		expected string
	}{
		{
			name:     "root",
			input:    "",
			rel:      "",
			expected: "/",
		},
		{
			name:     "slash is root",
			input:    "/",
			rel:      "",
			expected: "/",
		},
		{
			name:     "simple path",
			input:    "test.txt",
			rel:      "test.txt",
			expected: "/test.txt",
		},
		{
			name:     "absolute path gets cleaned",
			input:    "/dir/test.txt",
			rel:      "dir/test.txt",
			expected: "/dir/test.txt",
		},
		{
			name:     "dot path gets cleaned",
			input:    "./test.txt",
			rel:      "test.txt",
			expected: "/test.txt",
		},
		{
			name:     "double dot path gets cleaned",
			input:    "dir/../test.txt",
			rel:      "test.txt",
			expected: "/test.txt",
		},
		{
			name:     "double dot stops at root",
			input:    "../../test.txt",
			rel:      "test.txt",
			expected: "/test.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			np := NewNodePath(tt.input)
			if np.Rel() != tt.rel {
				t.Errorf("Expected rel %q, got %q", tt.rel, np.Rel())
			}
			if np.String() != tt.expected {
				t.Errorf("Expected path %q, got %q", tt.expected, np.String())
			}
		})
	}
}

func TestNodePathOperations(t *testing.T) {
	t.Run("Child", func(t *testing.T) {
		if got := NewNodePath("").Child("a").Rel(); got != "a" {
			t.Errorf("Root child = %q, want %q", got, "a")
		}
		if got := NewNodePath("a/b").Child("c").Rel(); got != "a/b/c" {
			t.Errorf("Nested child = %q, want %q", got, "a/b/c")
		}
	})

	t.Run("Parent", func(t *testing.T) {
		tests := map[string]string{
			"a/b/c": "a/b",
			"a":     "",
			"":      "",
		}
		for input, want := range tests {
			if got := NewNodePath(input).Parent().Rel(); got != want {
				t.Errorf("Parent(%q) = %q, want %q", input, got, want)
			}
		}
	})

	t.Run("Base", func(t *testing.T) {
		if got := NewNodePath("a/b.txt").Base(); got != "b.txt" {
			t.Errorf("Base = %q, want %q", got, "b.txt")
		}
		if got := NewNodePath("").Base(); got != "/" {
			t.Errorf("Root base = %q, want %q", got, "/")
		}
	})

	t.Run("IsRoot", func(t *testing.T) {
		if !NewNodePath("/").IsRoot() {
			t.Error("Expected / to be root")
		}
		if NewNodePath("/a").IsRoot() {
			t.Error("Expected /a not to be root")
		}
	})
}
