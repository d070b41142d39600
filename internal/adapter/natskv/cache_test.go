package natskv

import (
	"strings"
	"testing"
)

func TestEncodeKeyProducesValidKVKeys(t *testing.T) {
	keys := []string{
		"transcript:123:Math Tutor Conversation 1",
		"thread:456:Writing Tutee Conversation 12",
	}
	for _, key := range keys {
		enc := encodeKey(key)
		if strings.ContainsAny(enc, " :*>") {
			t.Errorf("encoded key %q carries characters the KV charset forbids", enc)
		}
	}
}

func TestEncodeKeyIsInjective(t *testing.T) {
	a := encodeKey("transcript:123:Math Tutor Conversation 1")
	b := encodeKey("transcript:123:Math Tutor Conversation 11")
	if a == b {
		t.Fatal("distinct keys encoded identically")
	}
}
