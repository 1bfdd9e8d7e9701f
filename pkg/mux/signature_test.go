package mux

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"type":"video.asset.ready"}`)
	now := time.Unix(1_700_000_000, 0)
	header := SignatureFor(body, "whsec", now)

	require.NoError(t, VerifySignature(body, header, "whsec", now, DefaultTolerance))

	cases := map[string]struct {
		body   []byte
		header string
		secret string
		now    time.Time
		want   error
	}{
		"missing secret":   {body, header, "", now, ErrSecretNotConfigured},
		"missing header":   {body, "", "whsec", now, ErrInvalidSignature},
		"wrong secret":     {body, header, "other", now, ErrInvalidSignature},
		"tampered body":    {[]byte(`{"type":"video.asset.errored"}`), header, "whsec", now, ErrInvalidSignature},
		"stale timestamp":  {body, header, "whsec", now.Add(10 * time.Minute), ErrInvalidSignature},
		"malformed header": {body, "v1=abc", "whsec", now, ErrInvalidSignature},
		"non-hex digest":   {body, "t=1700000000,v1=zz", "whsec", now, ErrInvalidSignature},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := VerifySignature(tc.body, tc.header, tc.secret, tc.now, DefaultTolerance)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestVerifySignatureAcceptsAnyMatchingV1(t *testing.T) {
	body := []byte(`{}`)
	now := time.Unix(1_700_000_000, 0)
	good := SignatureFor(body, "whsec", now)
	header := "t=1700000000,v1=deadbeef," + good[len("t=1700000000,"):]

	require.NoError(t, VerifySignature(body, header, "whsec", now, DefaultTolerance))
}

func TestVerifySignatureZeroToleranceSkipsAgeCheck(t *testing.T) {
	body := []byte(`{}`)
	signedAt := time.Unix(1_600_000_000, 0)
	header := SignatureFor(body, "whsec", signedAt)

	require.NoError(t, VerifySignature(body, header, "whsec", time.Now(), 0))
}
