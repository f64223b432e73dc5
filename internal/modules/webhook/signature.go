package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/bazaarhq/bazaar-backend/pkg/apperror"
)

// timestampTolerance bounds how stale a delivery may be before it is
// rejected outright, limiting the replay window.
const timestampTolerance = 5 * time.Minute

// VerifySignature checks an identity-provider delivery. The signed content
// is "<id>.<timestamp>.<body>" HMAC-SHA256'd with the shared secret; the
// signature header carries space-separated "v1,<base64>" candidates and any
// one matching passes.
func VerifySignature(secret, msgID, timestamp, signatureHeader string, body []byte) error {
	if msgID == "" || timestamp == "" || signatureHeader == "" {
		return apperror.New(apperror.KindUnauthorized, "missing webhook signature headers")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return apperror.Wrap(apperror.KindUnauthorized, err, "invalid webhook timestamp")
	}
	age := time.Since(time.Unix(ts, 0))
	if age > timestampTolerance || age < -timestampTolerance {
		return apperror.New(apperror.KindUnauthorized, "webhook timestamp outside tolerance")
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return apperror.Wrap(apperror.KindInternal, err, "invalid webhook secret")
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msgID))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, candidate := range strings.Fields(signatureHeader) {
		parts := strings.SplitN(candidate, ",", 2)
		if len(parts) != 2 || parts[0] != "v1" {
			continue
		}
		sig, err := base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			continue
		}
		if hmac.Equal(sig, expected) {
			return nil
		}
	}
	return apperror.New(apperror.KindUnauthorized, "webhook signature mismatch")
}
