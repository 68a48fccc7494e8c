package privacy

import (
	"strings"
	"testing"
)

func TestHashContactID_DeterministicAndOpaque(t *testing.T) {
	inputs := []string{"whatsapp:+15551234567", "Alice Johnson", "x"}
	for _, in := range inputs {
		h1 := HashContactID(in)
		h2 := HashContactID(in)
		if h1 != h2 {
			t.Fatalf("hash not deterministic for %q: %s vs %s", in, h1, h2)
		}
		if strings.Contains(h1, in) {
			t.Fatalf("hash %q leaks raw input %q", h1, in)
		}
	}
	if HashContactID("a") == HashContactID("b") {
		t.Fatalf("distinct inputs produced identical hashes")
	}
}

func TestRollingHash_Deterministic(t *testing.T) {
	if RollingHash("contact") != RollingHash("contact") {
		t.Fatalf("rolling hash not deterministic")
	}
	if strings.Contains(RollingHash("contact"), "contact") {
		t.Fatalf("rolling hash leaks raw input")
	}
}

func TestScrubText_PhoneAndEmail(t *testing.T) {
	in := "call me at 555-123-4567 or a@b.com"
	out := ScrubText(in)
	if !strings.Contains(out, "[PHONE]") {
		t.Fatalf("phone not scrubbed: %q", out)
	}
	if !strings.Contains(out, "[EMAIL]") {
		t.Fatalf("email not scrubbed: %q", out)
	}
	if strings.Contains(out, "555-123-4567") || strings.Contains(out, "a@b.com") {
		t.Fatalf("raw PII survived scrubbing: %q", out)
	}
}

func TestScrubText_URLNameAddress(t *testing.T) {
	out := ScrubText("ask John to meet at 42 Oak Street, see https://example.com/x")
	for _, want := range []string{"[NAME]", "[ADDRESS]", "[URL]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %q", want, out)
		}
	}
}

func TestContainsPII_BeforeAndAfterScrub(t *testing.T) {
	payload := map[string]any{"message": "call me at 555-123-4567 or a@b.com"}
	if !ContainsPII(payload) {
		t.Fatalf("expected PII in raw payload")
	}
	cleaned := map[string]any{"message": ScrubText("call me at 555-123-4567 or a@b.com")}
	if ContainsPII(cleaned) {
		t.Fatalf("scrubbed payload still reports PII")
	}
}

func TestSanitize_StripsDeniedFieldsAndHashesName(t *testing.T) {
	payload := map[string]any{
		"contactId": "raw-id",
		"platform":  "whatsapp",
		"name":      "Alice Johnson",
		"message":   "email me: a@b.com",
	}
	out := Sanitize(payload)

	if _, ok := out["contactId"]; ok {
		t.Fatalf("contactId not removed")
	}
	if _, ok := out["platform"]; ok {
		t.Fatalf("platform not removed")
	}
	name, _ := out["name"].(string)
	if name == "Alice Johnson" || name == "" {
		t.Fatalf("name not hashed: %q", name)
	}
	msg, _ := out["message"].(string)
	if !strings.Contains(msg, "[EMAIL]") {
		t.Fatalf("message not scrubbed: %q", msg)
	}
	if out["privacyLevel"] != string(LevelHigh) {
		t.Fatalf("expected high privacy level, got %v", out["privacyLevel"])
	}
	if _, ok := out["sanitizedAt"]; !ok {
		t.Fatalf("missing sanitizedAt tag")
	}
}

func TestCipher_RoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	c, err := NewCipher(key)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	type record struct {
		ContactID string  `json:"contact_id"`
		Formality float64 `json:"formality"`
		Messages  int     `json:"messages"`
	}
	in := record{ContactID: "c_abc123", Formality: 0.7, Messages: 42}

	rec, err := c.EncryptJSON(in)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if rec.IV == "" || rec.Data == "" {
		t.Fatalf("incomplete encrypted record: %+v", rec)
	}

	var out record
	if err := c.DecryptJSON(rec, &out); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestCipher_NoncesDiffer(t *testing.T) {
	key, _ := GenerateKey()
	c, err := NewCipher(key)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	r1, _ := c.Encrypt([]byte("same plaintext"))
	r2, _ := c.Encrypt([]byte("same plaintext"))
	if r1.IV == r2.IV {
		t.Fatalf("nonce reused across operations")
	}
}

func TestCipher_DegradedMode(t *testing.T) {
	c := NewDegradedCipher()
	if !c.Degraded() {
		t.Fatalf("expected degraded cipher")
	}
	rec, err := c.Encrypt([]byte("plain"))
	if err != nil {
		t.Fatalf("degraded encrypt: %v", err)
	}
	if rec.IV != "" {
		t.Fatalf("degraded record should have empty IV")
	}
	out, err := c.Decrypt(rec)
	if err != nil {
		t.Fatalf("degraded decrypt: %v", err)
	}
	if string(out) != "plain" {
		t.Fatalf("degraded round trip mismatch: %q", out)
	}
}

func TestNewCipher_RejectsBadKey(t *testing.T) {
	if _, err := NewCipher([]byte("short")); err == nil {
		t.Fatalf("expected error for short key")
	}
}
