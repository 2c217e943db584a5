package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRoundingMode_Round(t *testing.T) {
	tests := []struct {
		in   string
		mode RoundingMode
		want string
	}{
		{"2.345", HalfEven, "2.34"},
		{"2.355", HalfEven, "2.36"},
		{"2.345", HalfUp, "2.35"},
		{"2.345", HalfDown, "2.34"},
		{"2.3451", HalfDown, "2.35"},
		{"2.341", Up, "2.35"},
		{"2.349", Down, "2.34"},
		{"-2.341", Ceiling, "-2.34"},
		{"-2.341", Floor, "-2.35"},
		{"2.341", Ceiling, "2.35"},
		{"-2.345", HalfUp, "-2.35"},
		{"-2.345", HalfEven, "-2.34"},
		{"2.30", HalfEven, "2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String()+"/"+tt.in, func(t *testing.T) {
			got := tt.mode.Round(decimal.RequireFromString(tt.in), 2)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Round(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestRoundingMode_DivUsesExactRemainder(t *testing.T) {
	// 0.05 / 2 = 0.025 exactly: a tie at two digits.
	a := decimal.RequireFromString("0.05")
	if got := HalfEven.Div(a, decimal.NewFromInt(2), 2); !got.Equal(decimal.RequireFromString("0.02")) {
		t.Errorf("HalfEven tie = %s, want 0.02", got)
	}
	if got := HalfUp.Div(a, decimal.NewFromInt(2), 2); !got.Equal(decimal.RequireFromString("0.03")) {
		t.Errorf("HalfUp tie = %s, want 0.03", got)
	}
	// 0.0499999 / 2 is just below the tie and must not round up.
	b := decimal.RequireFromString("0.0499999")
	if got := HalfUp.Div(b, decimal.NewFromInt(2), 2); !got.Equal(decimal.RequireFromString("0.02")) {
		t.Errorf("HalfUp below tie = %s, want 0.02", got)
	}
}

func TestParseRoundingMode(t *testing.T) {
	for mode, name := range roundingModeNames {
		got, err := ParseRoundingMode(name)
		if err != nil {
			t.Fatalf("ParseRoundingMode(%q) error: %v", name, err)
		}
		if got != mode {
			t.Errorf("ParseRoundingMode(%q) = %s, want %s", name, got, mode)
		}
	}
	if got, _ := ParseRoundingMode(" half_up "); got != HalfUp {
		t.Errorf("lowercase parse = %s", got)
	}
	if _, err := ParseRoundingMode("BANKERS"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
