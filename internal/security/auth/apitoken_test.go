package auth

import "testing"

func TestHashAPIToken_VerifiesCorrectToken(t *testing.T) {
	hash, err := HashAPIToken("sekrit-token")
	if err != nil {
		t.Fatalf("HashAPIToken: %v", err)
	}
	if !VerifyAPIToken("sekrit-token", hash) {
		t.Fatal("expected matching token to verify")
	}
}

func TestVerifyAPIToken_RejectsWrongToken(t *testing.T) {
	hash, err := HashAPIToken("sekrit-token")
	if err != nil {
		t.Fatalf("HashAPIToken: %v", err)
	}
	if VerifyAPIToken("wrong-token", hash) {
		t.Fatal("expected wrong token to fail verification")
	}
}

func TestVerifyAPIToken_EmptyHashNeverMatches(t *testing.T) {
	if VerifyAPIToken("anything", "") {
		t.Fatal("expected empty hash to never verify")
	}
}
