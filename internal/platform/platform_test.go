package platform

import "testing"

func TestMatchesAliases(t *testing.T) {
	cases := []struct {
		tag, host string
		want      bool
	}{
		{"posix", "linux", true},
		{"posix", "windows", false},
		{"unix", "linux", false},
		{"unix", "darwin", true},
		{"*nix", "aix", true},
		{"*nix", "windows", false},
		{"mac", "darwin", true},
		{"macos", "darwin", true},
		{"osx", "darwin", true},
		{"LINUX", "linux", true},
		{"darwin", "linux", false},
	}
	for _, c := range cases {
		if got := Matches(c.tag, c.host); got != c.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", c.tag, c.host, got, c.want)
		}
	}
}

func TestPickBest(t *testing.T) {
	if got := PickBest([]string{"windows", "posix"}, "linux"); got != "posix" {
		t.Errorf("PickBest = %q, want posix", got)
	}
	if got := PickBest([]string{"linux", "posix"}, "linux"); got != "linux" {
		t.Errorf("PickBest exact match = %q, want linux", got)
	}
	if got := PickBest([]string{"windows"}, "linux"); got != "" {
		t.Errorf("PickBest no match = %q, want empty", got)
	}
}
