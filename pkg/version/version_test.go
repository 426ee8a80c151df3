package version

import (
	"strings"
	"testing"
)

func TestInfoText(t *testing.T) {
	info := Get()
	text := info.Text()
	for _, want := range []string{"gitVersion:", info.GitVersion, "platform:", info.Platform} {
		if !strings.Contains(text, want) {
			t.Errorf("Text() missing %q:\n%s", want, text)
		}
	}
	if info.String() != info.GitVersion {
		t.Errorf("String() = %q, want %q", info.String(), info.GitVersion)
	}
	if !strings.Contains(info.ToJSON(), `"gitVersion"`) {
		t.Errorf("ToJSON() = %s", info.ToJSON())
	}
}
