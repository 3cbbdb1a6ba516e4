package release

import "testing"

func TestMatchAsset(t *testing.T) {
	assets := []Asset{
		{Name: "jule-linux-amd64.zip", URL: "linux"},
		{Name: "Jule-Windows-amd64.zip", URL: "win-amd64"},
		{Name: "jule-windows-arm64.zip", URL: "win-arm64"},
	}

	tests := []struct {
		name    string
		keyword string
		wantURL string
		wantOK  bool
	}{
		{name: "first match in feed order", keyword: "windows", wantURL: "win-amd64", wantOK: true},
		{name: "case folded keyword", keyword: "WINDOWS", wantURL: "win-amd64", wantOK: true},
		{name: "other platform", keyword: "linux", wantURL: "linux", wantOK: true},
		{name: "no match", keyword: "darwin", wantOK: false},
		{name: "empty keyword", keyword: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchAsset(assets, tt.keyword)
			if ok != tt.wantOK {
				t.Fatalf("MatchAsset() ok = %v, want %v", ok, tt.wantOK)
			}
			if got.URL != tt.wantURL {
				t.Errorf("MatchAsset() URL = %q, want %q", got.URL, tt.wantURL)
			}
		})
	}
}

func TestMatchAsset_UnicodeFolding(t *testing.T) {
	assets := []Asset{{Name: "paket-STRASSE.zip", URL: "u"}}
	if _, ok := MatchAsset(assets, "straße"); !ok {
		t.Error("expected full case folding to match ß against SS")
	}
}

func TestIsPreReleaseTag(t *testing.T) {
	tests := map[string]bool{
		"v1.2.0":        false,
		"1.2.0-beta.1":  true,
		"v0.1.0-rc1":    true,
		"jule0.1.0":     false,
		"nightly":       false,
		"v2.0.0+build5": false,
	}
	for tag, want := range tests {
		if got := IsPreReleaseTag(tag); got != want {
			t.Errorf("IsPreReleaseTag(%q) = %v, want %v", tag, got, want)
		}
	}
}
