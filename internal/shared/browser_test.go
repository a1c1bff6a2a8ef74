package shared

import (
	"errors"
	"testing"
)

func TestOpenBrowser(t *testing.T) {
	t.Run("rejects non-http schemes", func(t *testing.T) {
		for _, target := range []string{"file:///etc/passwd", "javascript:alert(1)", "::"} {
			if err := OpenBrowser(target); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig for %q, got %v", target, err)
			}
		}
	})

	t.Run("unsupported platform", func(t *testing.T) {
		orig := getRuntime
		getRuntime = func() string { return "plan9" }
		defer func() { getRuntime = orig }()

		if err := OpenBrowser("http://127.0.0.1:3000/login"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})
}
