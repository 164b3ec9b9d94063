package bot

import "testing"

func TestParseBroadcastArgs(t *testing.T) {
	cases := map[string]struct {
		payload string
		keyword string
		pin     bool
	}{
		"plain keyword":        {"movie one", "movie one", false},
		"pin with keyword":     {"-pin movie one", "movie one", true},
		"bare pin":             {"-pin", "", true},
		"bare pin padded":      {"  -pin  ", "", true},
		"pin-prefixed keyword": {"-pinned movie", "-pinned movie", false},
		"empty":                {"", "", false},
		"pin extra spaces":     {"-pin   movie", "movie", true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			keyword, pin := parseBroadcastArgs(tc.payload)
			if keyword != tc.keyword || pin != tc.pin {
				t.Errorf("parseBroadcastArgs(%q) = (%q, %v), want (%q, %v)",
					tc.payload, keyword, pin, tc.keyword, tc.pin)
			}
		})
	}
}

func TestFormatUsageReport_SortedOrder(t *testing.T) {
	counts := map[string]int64{
		"zeta":  3,
		"alpha": 1,
		"mid":   2,
	}
	want := "Usage (last 7 days):\n\nalpha: 1\nmid: 2\nzeta: 3\n"
	for i := 0; i < 10; i++ {
		if got := formatUsageReport("last 7 days", counts); got != want {
			t.Fatalf("formatUsageReport = %q, want %q", got, want)
		}
	}
}
