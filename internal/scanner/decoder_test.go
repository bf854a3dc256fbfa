package scanner

import (
	"testing"
	"time"
)

func feedBurst(t *testing.T, d *Decoder, code string, start time.Time, gap time.Duration) (string, bool) {
	t.Helper()

	at := start
	for _, r := range code {
		if got, ok := d.OnKey(string(r), at); ok {
			t.Fatalf("unexpected scan completion on %q", got)
		}
		at = at.Add(gap)
	}
	return d.OnKey(TerminatorKey, at)
}

func TestOnKey_FastBurstEmitsScan(t *testing.T) {
	d := NewDecoder()
	start := time.Now()

	code, ok := feedBurst(t, d, "123456", start, 10*time.Millisecond)
	if !ok {
		t.Fatalf("fast burst with terminator must complete a scan")
	}
	if code != "123456" {
		t.Fatalf("code = %q, want %q", code, "123456")
	}
}

func TestOnKey_SlowTypingNeverScans(t *testing.T) {
	d := NewDecoder()
	start := time.Now()

	if code, ok := feedBurst(t, d, "123456", start, 200*time.Millisecond); ok {
		t.Fatalf("human-speed typing must not complete a scan, got %q", code)
	}
}

func TestOnKey_ShortBurstDroppedSilently(t *testing.T) {
	d := NewDecoder()
	start := time.Now()

	if code, ok := feedBurst(t, d, "123", start, 10*time.Millisecond); ok {
		t.Fatalf("burst of 3 characters must be dropped, got %q", code)
	}
}

func TestOnKey_StaleBufferDiscardedBeforeNewBurst(t *testing.T) {
	d := NewDecoder()
	start := time.Now()

	// Старый недопереданный пакет...
	at := start
	for _, r := range "99" {
		d.OnKey(string(r), at)
		at = at.Add(10 * time.Millisecond)
	}

	// ...за которым после долгой паузы приходит настоящий скан.
	code, ok := feedBurst(t, d, "AB1234", at.Add(500*time.Millisecond), 10*time.Millisecond)
	if !ok {
		t.Fatalf("fresh burst after stale buffer must complete a scan")
	}
	if code != "AB1234" {
		t.Fatalf("code = %q, want %q: stale prefix leaked into the scan", code, "AB1234")
	}
}

func TestOnKey_SuspendedIgnoresInput(t *testing.T) {
	d := NewDecoder()
	d.Suspend()

	if code, ok := feedBurst(t, d, "123456", time.Now(), 10*time.Millisecond); ok {
		t.Fatalf("suspended decoder must ignore input, got %q", code)
	}

	d.Resume()

	if _, ok := feedBurst(t, d, "123456", time.Now(), 10*time.Millisecond); !ok {
		t.Fatalf("resumed decoder must classify scans again")
	}
}

func TestOnKey_ControlKeysNotBuffered(t *testing.T) {
	d := NewDecoder()
	at := time.Now()

	keys := []string{"1", "Shift", "2", "ArrowLeft", "3", "4", "5"}
	for _, k := range keys {
		d.OnKey(k, at)
		at = at.Add(5 * time.Millisecond)
	}

	code, ok := d.OnKey(TerminatorKey, at)
	if !ok {
		t.Fatalf("expected scan completion")
	}
	if code != "12345" {
		t.Fatalf("code = %q, want %q", code, "12345")
	}
}

func TestIsValidCode(t *testing.T) {
	valid := []string{"1234", "6001234567890", "MEAT-001"}
	for _, code := range valid {
		if !IsValidCode(code) {
			t.Fatalf("IsValidCode(%q) = false, want true", code)
		}
	}

	invalid := []string{"", "123", "abc123", "12 34", "code;drop"}
	for _, code := range invalid {
		if IsValidCode(code) {
			t.Fatalf("IsValidCode(%q) = true, want false", code)
		}
	}
}
