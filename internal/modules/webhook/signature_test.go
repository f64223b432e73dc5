package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"testing"
	"time"
)

const testKey = "test-webhook-key-0123456789abcdef"

func testSecret() string {
	return "whsec_" + base64.StdEncoding.EncodeToString([]byte(testKey))
}

func sign(msgID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(testKey))
	fmt.Fprintf(mac, "%s.%s.%s", msgID, timestamp, body)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureValid(t *testing.T) {
	body := []byte(`{"type":"user.created"}`)
	msgID := "msg_1"
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	if err := VerifySignature(testSecret(), msgID, ts, sign(msgID, ts, body), body); err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
}

func TestVerifySignatureMultipleCandidates(t *testing.T) {
	body := []byte(`{}`)
	msgID := "msg_2"
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	header := "v1,bm90LXRoaXMtb25l " + sign(msgID, ts, body)
	if err := VerifySignature(testSecret(), msgID, ts, header, body); err != nil {
		t.Fatalf("VerifySignature with multiple candidates: %v", err)
	}
}

func TestVerifySignatureTamperedBody(t *testing.T) {
	body := []byte(`{"type":"user.created"}`)
	msgID := "msg_3"
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	header := sign(msgID, ts, body)

	if err := VerifySignature(testSecret(), msgID, ts, header, []byte(`{"type":"user.deleted"}`)); err == nil {
		t.Fatal("tampered body must not verify")
	}
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	body := []byte(`{}`)
	msgID := "msg_4"
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	otherSecret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("some-other-key"))

	if err := VerifySignature(otherSecret, msgID, ts, sign(msgID, ts, body), body); err == nil {
		t.Fatal("signature from another secret must not verify")
	}
}

func TestVerifySignatureStaleTimestamp(t *testing.T) {
	body := []byte(`{}`)
	msgID := "msg_5"
	ts := strconv.FormatInt(time.Now().Add(-10*time.Minute).Unix(), 10)

	if err := VerifySignature(testSecret(), msgID, ts, sign(msgID, ts, body), body); err == nil {
		t.Fatal("stale delivery must be rejected")
	}
}

func TestVerifySignatureMissingHeaders(t *testing.T) {
	if err := VerifySignature(testSecret(), "", "", "", []byte(`{}`)); err == nil {
		t.Fatal("missing headers must be rejected")
	}
}
