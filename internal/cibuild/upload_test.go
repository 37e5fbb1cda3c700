package cibuild

import (
	"strings"
	"testing"
)

func TestNewLogStoreMissingCredentials(t *testing.T) {
	cfg := &Config{Values: map[string]string{
		"LOG_BUCKET_NAME": "ci-logs",
	}}
	if _, err := NewLogStore(cfg); err == nil {
		t.Error("NewLogStore succeeded without credentials")
	}
}

func TestLogObjectKey(t *testing.T) {
	key := logObjectKey("builder-7", "openbsd")
	if !strings.HasPrefix(key, "logs/builder-7/openbsd/") {
		t.Errorf("key = %q; want logs/<node>/<platform>/ prefix", key)
	}
	if !strings.HasSuffix(key, ".log.xz") {
		t.Errorf("key = %q; want .log.xz suffix", key)
	}
}
