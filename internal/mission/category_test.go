package mission

import "testing"

func TestParseCategory(t *testing.T) {
	testCases := []struct {
		input   string
		want    Category
		payload string
	}{
		{"1", Medical, "Medical aid kit"},
		{"medical", Medical, "Medical aid kit"},
		{" 2 ", BreakIn, "Night vision camera"},
		{"Break-In", BreakIn, "Night vision camera"},
		{"3", Overcrowding, "Speakers"},
		{"4", Unrecognized, ""},
		{"", Unrecognized, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got := ParseCategory(tc.input)
			if got != tc.want {
				t.Errorf("ParseCategory(%q) = %v, want %v", tc.input, got, tc.want)
			}
			if got.Payload() != tc.payload {
				t.Errorf("payload = %q, want %q", got.Payload(), tc.payload)
			}
			if got.Known() != (tc.want != Unrecognized) {
				t.Errorf("Known() = %v for %v", got.Known(), got)
			}
		})
	}
}

func TestCategoryMenuNumbersRoundTrip(t *testing.T) {
	for _, c := range Categories {
		n := c.MenuNumber()
		if n == 0 {
			t.Fatalf("%v has no menu number", c)
		}
		if got := ParseCategory(string(rune('0' + n))); got != c {
			t.Errorf("menu number %d parsed as %v, want %v", n, got, c)
		}
	}
	if Unrecognized.MenuNumber() != 0 {
		t.Errorf("Unrecognized should have no menu number")
	}
}

func TestProgressSampleDone(t *testing.T) {
	if (ProgressSample{Current: 0, Total: 0}).Done() {
		t.Errorf("empty progress must not be done")
	}
	if (ProgressSample{Current: 0, Total: 1}).Done() {
		t.Errorf("0/1 must not be done")
	}
	if !(ProgressSample{Current: 1, Total: 1}).Done() {
		t.Errorf("1/1 must be done")
	}
}
