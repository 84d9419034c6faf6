package utils

import "testing"

var key = []byte("0123456789abcdef0123456789abcdef")

func TestEncryptDecryptRoundTrip(t *testing.T) {
	encrypted, err := Encrypt([]byte("oauth-access-token"), key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if encrypted == "oauth-access-token" {
		t.Fatal("ciphertext equals plaintext")
	}

	decrypted, err := Decrypt(encrypted, key)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if decrypted != "oauth-access-token" {
		t.Errorf("decrypted = %q", decrypted)
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	if _, err := Decrypt("bm90IHJlYWwgZGF0YQ==", key); err == nil {
		t.Fatal("expected error for bogus ciphertext")
	}
}

func TestDecryptRejectsShortCiphertext(t *testing.T) {
	if _, err := Decrypt("YWJj", key); err == nil {
		t.Fatal("expected error for short ciphertext")
	}
}
