package maven

import (
	"sort"
	"testing"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1", "1.0", 0},
		{"1.0", "1.0.0", 0},
		{"1-ga", "1", 0},
		{"1.0-final", "1.0", 0},
		{"1.0-cr1", "1.0-rc1", 0},
		{"1.0", "1.1", -1},
		{"1.10", "1.9", 1},
		{"1.0.1", "1.0", 1},
		{"2.0", "10.0", -1},
		{"1.0-alpha-1", "1.0-beta-1", -1},
		{"1.0a1", "1.0-alpha-1", 0},
		{"1.0-beta", "1.0-milestone", -1},
		{"1.0-M1", "1.0-RC1", -1},
		{"1.0-rc1", "1.0-SNAPSHOT", -1},
		{"1.0-SNAPSHOT", "1.0", -1},
		{"1.0", "1.0-sp1", -1},
		{"1.0-sp", "1.0-jre", -1},
		{"31.0-android", "31.0-jre", -1},
		{"1.0-jre", "1.0.1", -1},
		{"1.0.0.0001", "1.0.0.1", 0},
		{"20040101", "3.0", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			if got := CompareVersions(tt.a, tt.b); got != tt.want {
				t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := CompareVersions(tt.b, tt.a); got != -tt.want {
				t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.b, tt.a, got, -tt.want)
			}
		})
	}
}

func TestCompareVersions_Sort(t *testing.T) {
	versions := []string{"1.0", "1.0-SNAPSHOT", "1.0-alpha-2", "1.1", "1.0-rc-1", "1.0-beta", "1.0.1", "1.0-sp-1"}
	want := []string{"1.0-alpha-2", "1.0-beta", "1.0-rc-1", "1.0-SNAPSHOT", "1.0", "1.0-sp-1", "1.0.1", "1.1"}

	sort.Slice(versions, func(i, j int) bool { return CompareVersions(versions[i], versions[j]) < 0 })
	for i := range want {
		if versions[i] != want[i] {
			t.Fatalf("sorted = %v, want %v", versions, want)
		}
	}
}

func TestIsReleaseVersion(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"1.0", true},
		{"32.1.3-jre", true},
		{"2.0.Final", true},
		{"1.0-sp1", true},
		{"1.0-SNAPSHOT", false},
		{"1.0-beta-2", false},
		{"1.0-M3", false},
		{"5.0.0-RC1", false},
		{"1.0a1", false},
		{"RELEASE", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			if got := IsReleaseVersion(tt.version); got != tt.want {
				t.Errorf("IsReleaseVersion(%q) = %v, want %v", tt.version, got, tt.want)
			}
		})
	}
}

func TestMaxVersion(t *testing.T) {
	if got := MaxVersion([]string{"1.2", "", "1.10", "1.9"}); got != "1.10" {
		t.Errorf("MaxVersion() = %q, want %q", got, "1.10")
	}
	if got := MaxVersion(nil); got != "" {
		t.Errorf("MaxVersion(nil) = %q, want empty", got)
	}
}
