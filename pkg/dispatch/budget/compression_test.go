package budget

import (
	"strings"
	"testing"
)

func TestCompressionLadderIsMonotonic(t *testing.T) {
	order := []CompressionMode{CompressionRich, CompressionBalanced, CompressionMinimal, CompressionExtreme}
	for i := 0; i < len(order)-1; i++ {
		if next := order[i].Next(); next != order[i+1] {
			t.Errorf("%s.Next() = %s, want %s", order[i], next, order[i+1])
		}
	}
}

func TestCompressionExtremeIsTerminal(t *testing.T) {
	mode := CompressionExtreme
	for i := 0; i < 5; i++ {
		mode = mode.Next()
		if mode != CompressionExtreme {
			t.Fatalf("Next() from extreme moved to %s", mode)
		}
	}
}

func TestParseCompressionMode(t *testing.T) {
	tests := []struct {
		input   string
		want    CompressionMode
		wantErr bool
	}{
		{"rich", CompressionRich, false},
		{"balanced", CompressionBalanced, false},
		{"minimal", CompressionMinimal, false},
		{"extreme", CompressionExtreme, false},
		{"", CompressionBalanced, false},
		{"lossless", CompressionBalanced, true},
	}
	for _, tt := range tests {
		got, err := ParseCompressionMode(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCompressionMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseCompressionMode(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestCompressSummaryDensities(t *testing.T) {
	long := strings.Repeat("several words in this summary sentence. ", 20)

	rich := CompressSummary(long, CompressionRich)
	balanced := CompressSummary(long, CompressionBalanced)
	minimal := CompressSummary(long, CompressionMinimal)
	extreme := CompressSummary(long, CompressionExtreme)

	if len(rich) < len(balanced) || len(balanced) < len(minimal) || len(minimal) < len(extreme) {
		t.Errorf("summary lengths not monotonically decreasing: %d %d %d %d",
			len(rich), len(balanced), len(minimal), len(extreme))
	}
	if len(balanced) > balancedSummaryChars+3 {
		t.Errorf("balanced summary too long: %d", len(balanced))
	}
	if len(extreme) > extremeSummaryChars+3 {
		t.Errorf("extreme summary too long: %d", len(extreme))
	}
}

func TestCompressSummaryShortInputUnchanged(t *testing.T) {
	short := "routing discussion"
	for _, mode := range []CompressionMode{CompressionRich, CompressionBalanced, CompressionMinimal, CompressionExtreme} {
		if got := CompressSummary(short, mode); got != short {
			t.Errorf("mode %s altered short summary: %q", mode, got)
		}
	}
}
