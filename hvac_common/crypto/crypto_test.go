package crypto

import (
	"bytes"
	"testing"
)

func TestAppDevEncryptionRoundTrip(t *testing.T) {
	secret := []byte("K")
	km := KeyMaterial{
		Random1: "AAAAAAAAAAAAAAAA",
		Time1:   100,
		Random2: "BBBBBBBBBBBBBBBB",
		Time2:   200,
	}

	app, err := NewAppEncryption(secret, km)
	if err != nil {
		t.Fatalf("NewAppEncryption: %v", err)
	}
	dev, err := NewDevEncryption(secret, km)
	if err != nil {
		t.Fatalf("NewDevEncryption: %v", err)
	}

	plaintext := []byte(`{"seq_no":0,"data":{}}`)
	frameCiphertext := app.Encrypt(plaintext)
	sign := app.Sign(plaintext)

	// The appliance side decrypts with its own (dev) keys in the real
	// protocol for the opposite direction; here we assert the basic
	// encrypt/decrypt and sign/verify identities for a single direction.
	decrypted, err := app.Decrypt(frameCiphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatalf("decrypt(encrypt(x)) != x: got %q want %q", decrypted, plaintext)
	}
	if !app.VerifySign(plaintext, sign) {
		t.Fatalf("VerifySign failed for matching signature")
	}
	if app.VerifySign(plaintext, dev.Sign(plaintext)) {
		t.Fatalf("VerifySign succeeded across mismatched key pair")
	}
}

func TestZeroPaddingNeverUsesPKCS7(t *testing.T) {
	data := []byte("0123456789012345X") // 17 bytes, spills into 2nd block
	padded := zeroPad(data)
	if len(padded)%16 != 0 {
		t.Fatalf("padded length %d not a multiple of block size", len(padded))
	}
	for _, b := range padded[len(data):] {
		if b != 0 {
			t.Fatalf("expected zero padding, got byte %d", b)
		}
	}
	if got := zeroUnpad(padded); !bytes.Equal(got, data) {
		t.Fatalf("zeroUnpad(zeroPad(x)) != x: got %q want %q", got, data)
	}
}

func TestKeyDerivationOrderingDiffers(t *testing.T) {
	secret := []byte("K")
	km := KeyMaterial{Random1: "r1", Time1: 1, Random2: "r2", Time2: 2}
	app, err := NewAppEncryption(secret, km)
	if err != nil {
		t.Fatal(err)
	}
	dev, err := NewDevEncryption(secret, km)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(app.SignKey, dev.SignKey) {
		t.Fatalf("app and dev sign keys must differ given reversed message ordering")
	}
}

func TestRandomAlnumCharset(t *testing.T) {
	s, err := RandomAlnum(16)
	if err != nil {
		t.Fatal(err)
	}
	if len(s) != 16 {
		t.Fatalf("expected length 16, got %d", len(s))
	}
	for _, r := range s {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			t.Fatalf("unexpected character %q in random string", r)
		}
	}
}

func TestTime40Truncates(t *testing.T) {
	const mask = int64(1<<40) - 1
	in := int64(1) << 50
	if got := Time40(in); got != 0 {
		t.Fatalf("Time40(1<<50) = %d, want 0", got)
	}
	if got := Time40(mask + 5); got != 4 {
		t.Fatalf("Time40(mask+5) = %d, want 4", got)
	}
}
