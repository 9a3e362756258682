package cache

import (
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if err := opts.Validate(); err != nil {
		t.Fatalf("Default options should validate: %v", err)
	}
	if opts.LocalCacheConfig.TTL != DefaultTTL {
		t.Fatalf("Expected default TTL %v, got %v", DefaultTTL, opts.LocalCacheConfig.TTL)
	}
}

func TestValidateMissingInstanceID(t *testing.T) {
	opts := DefaultOptions()
	opts.InstanceID = ""
	if err := opts.Validate(); err != ErrInvalidConfig {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidateBadTTL(t *testing.T) {
	opts := DefaultOptions()
	opts.LocalCacheConfig.TTL = -time.Second
	if err := opts.Validate(); err != ErrInvalidConfig {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidateBadCapacity(t *testing.T) {
	opts := DefaultOptions()
	opts.LocalCacheConfig.MaxEntries = 0
	if err := opts.Validate(); err != ErrInvalidConfig {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
}
