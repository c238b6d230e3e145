package webhook

import "testing"

func TestVerifySignature(t *testing.T) {
	secret := "topsecret"
	body := []byte(`{"event":"order.created"}`)
	sig := Sign(secret, body)

	tests := []struct {
		name      string
		secret    string
		body      []byte
		signature string
		want      bool
	}{
		{"valid", secret, body, sig, true},
		{"uppercase digest accepted", secret, body, "  " + upper(sig) + "  ", true},
		{"tampered body", secret, []byte(`{"event":"order.deleted"}`), sig, false},
		{"wrong secret", "othersecret", body, sig, false},
		{"empty signature", secret, body, "", false},
		{"garbage signature", secret, body, "deadbeef", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := VerifySignature(tc.secret, tc.body, tc.signature); got != tc.want {
				t.Errorf("VerifySignature = %v, want %v", got, tc.want)
			}
		})
	}
}

func upper(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'a' && c <= 'z' {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}
