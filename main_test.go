package main

import (
	"strings"
	"testing"
)

func TestEffectiveVersionPrefersInjected(t *testing.T) {
	if got := effectiveVersion("v1.4.0"); got != "v1.4.0" {
		t.Errorf("effectiveVersion(v1.4.0) = %q", got)
	}
}

func TestEffectiveVersionDev(t *testing.T) {
	got := effectiveVersion("dev")
	if got == "" {
		t.Fatal("effectiveVersion(dev) is empty")
	}
	if got != "dev" && !strings.HasPrefix(got, "devel+") && !strings.HasPrefix(got, "v") {
		t.Errorf("effectiveVersion(dev) = %q", got)
	}
}
