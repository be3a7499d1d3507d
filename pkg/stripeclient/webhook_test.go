package stripeclient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"
)

const testSecret = "whsec_test"

func signPayload(t *testing.T, payload []byte, timestamp int64, secret string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestConstructEvent(t *testing.T) {
	now := time.Unix(1700000000, 0)
	payload := []byte(`{"id":"evt_1","type":"invoice.payment_succeeded","data":{"object":{"id":"in_1","subscription":"sub_1","amount_paid":2000}}}`)

	t.Run("accepts a valid signature", func(t *testing.T) {
		header := signPayload(t, payload, now.Unix(), testSecret)
		event, err := constructEventAt(payload, header, testSecret, DefaultTolerance, now)
		if err != nil {
			t.Fatalf("constructEventAt: %v", err)
		}
		if event.ID != "evt_1" || event.Type != EventInvoicePaid {
			t.Fatalf("event = %s/%s", event.ID, event.Type)
		}
	})

	t.Run("rejects a wrong secret", func(t *testing.T) {
		header := signPayload(t, payload, now.Unix(), "whsec_other")
		if _, err := constructEventAt(payload, header, testSecret, DefaultTolerance, now); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("err = %v, want ErrInvalidSignature", err)
		}
	})

	t.Run("rejects a tampered payload", func(t *testing.T) {
		header := signPayload(t, payload, now.Unix(), testSecret)
		tampered := append([]byte{}, payload...)
		tampered[len(tampered)-2] = 'x'
		if _, err := constructEventAt(tampered, header, testSecret, DefaultTolerance, now); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("err = %v, want ErrInvalidSignature", err)
		}
	})

	t.Run("rejects a stale timestamp", func(t *testing.T) {
		old := now.Add(-6 * time.Minute)
		header := signPayload(t, payload, old.Unix(), testSecret)
		if _, err := constructEventAt(payload, header, testSecret, DefaultTolerance, now); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("err = %v, want ErrInvalidSignature", err)
		}
	})

	t.Run("accepts any matching signature among several", func(t *testing.T) {
		mac := hmac.New(sha256.New, []byte(testSecret))
		mac.Write([]byte(strconv.FormatInt(now.Unix(), 10)))
		mac.Write([]byte("."))
		mac.Write(payload)
		header := fmt.Sprintf("t=%d,v1=deadbeef,v1=%s", now.Unix(), hex.EncodeToString(mac.Sum(nil)))
		if _, err := constructEventAt(payload, header, testSecret, DefaultTolerance, now); err != nil {
			t.Fatalf("constructEventAt: %v", err)
		}
	})

	t.Run("rejects missing or malformed headers", func(t *testing.T) {
		for _, header := range []string{"", "v1=abc", "t=notanumber,v1=abc", "t=1700000000"} {
			if _, err := constructEventAt(payload, header, testSecret, DefaultTolerance, now); !errors.Is(err, ErrInvalidSignature) {
				t.Fatalf("header %q: err = %v, want ErrInvalidSignature", header, err)
			}
		}
	})
}
