/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package exitcode

import (
	"testing"
)

func TestExitCodeConstants(t *testing.T) {
	if Success != 0 {
		t.Errorf("Success = %v, expected 0", Success)
	}
	if FindingsAtThreshold != 1 {
		t.Errorf("FindingsAtThreshold = %v, expected 1", FindingsAtThreshold)
	}
	if Fatal != 2 {
		t.Errorf("Fatal = %v, expected 2", Fatal)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{Success, "Success"},
		{FindingsAtThreshold, "Findings at or above threshold"},
		{Fatal, "Fatal error"},
		{42, "Unknown error"},
	}

	for _, test := range tests {
		if result := String(test.code); result != test.expected {
			t.Errorf("String(%d) = %v, expected %v", test.code, result, test.expected)
		}
	}
}
