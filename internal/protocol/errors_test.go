package protocol

import (
	"regexp"
	"testing"
)

func TestReplyCodes(t *testing.T) {
	pattern := regexp.MustCompile(`^E_[A-Z_]+$`) // reply.schema.json
	for code, text := range codeText {
		if !pattern.MatchString(code) {
			t.Fatalf("code %q does not match the reply schema", code)
		}
		if !IsKnownCode(code) || Describe(code) != text || text == "" {
			t.Fatalf("code %q: known=%v describe=%q", code, IsKnownCode(code), Describe(code))
		}
	}
	if !IsKnownCode("") {
		t.Fatalf("empty code is allowed on ok replies")
	}
	if IsKnownCode("E_NOT_DEFINED") || Describe("E_NOT_DEFINED") != "E_NOT_DEFINED" {
		t.Fatalf("unknown code accepted")
	}
}
