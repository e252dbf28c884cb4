package hub

import (
	"testing"
	"time"
)

func TestTokenBucketAllowsBurst(t *testing.T) {
	bucket := newTokenBucket(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !bucket.allow() {
			t.Fatalf("message %d should be within the burst", i)
		}
	}
	if bucket.allow() {
		t.Error("fourth message should be throttled")
	}
}

func TestTokenBucketRefills(t *testing.T) {
	bucket := newTokenBucket(2, 100*time.Millisecond)

	bucket.allow()
	bucket.allow()
	if bucket.allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(120 * time.Millisecond)
	if !bucket.allow() {
		t.Error("bucket should have refilled")
	}
}

func TestTokenBucketClampsInvalidConfig(t *testing.T) {
	bucket := newTokenBucket(0, 0)
	if !bucket.allow() {
		t.Error("a zero-capacity bucket should clamp to one token")
	}
}
