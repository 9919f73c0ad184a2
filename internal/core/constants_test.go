package core

import (
	"regexp"
	"testing"
)

func TestAppIdentity(t *testing.T) {
	t.Parallel()
	if AppName != "Dotlyzer" {
		t.Errorf("AppName = %q", AppName)
	}
	if !regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`).MatchString(AppVersion) {
		t.Errorf("AppVersion = %q, want four dotted numbers", AppVersion)
	}
	if len(Features) == 0 {
		t.Error("Features is empty")
	}
}
