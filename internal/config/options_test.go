package config

import (
	"os"
	"testing"
)

func TestLoadFailsWithoutSDKKey(t *testing.T) {
	os.Unsetenv("STATSIG_SDK_KEY")
	if _, err := Load(); err == nil {
		t.Error("expected Load to fail when STATSIG_SDK_KEY is unset")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	os.Setenv("STATSIG_SDK_KEY", "secret-key")
	defer os.Unsetenv("STATSIG_SDK_KEY")

	opts, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if opts.SpecsURL != defaultSpecsURL {
		t.Errorf("SpecsURL = %q, want default", opts.SpecsURL)
	}
	if opts.EventLoggingMaxQueueSize != defaultMaxQueueSize {
		t.Errorf("EventLoggingMaxQueueSize = %d, want default", opts.EventLoggingMaxQueueSize)
	}
}
