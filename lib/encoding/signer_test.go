package encoding

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderedPair struct {
	Z int    `json:"z"`
	A string `json:"a"`
}

func TestNewSignerEmptyKey(t *testing.T) {
	_, err := NewSigner(nil)
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestSignVerify(t *testing.T) {
	s, err := NewSigner([]byte("secret"))
	require.NoError(t, err)

	snapshot := map[string]any{"count": 1, "title": "hi"}
	sig, err := s.Sign(snapshot)
	require.NoError(t, err)
	assert.Len(t, sig, 22, "16 bytes of raw base64")

	assert.NoError(t, s.Verify(snapshot, sig))
	assert.ErrorIs(t, s.Verify(map[string]any{"count": 2, "title": "hi"}, sig), ErrSignatureInvalid)
}

func TestVerifyClientEcho(t *testing.T) {
	s, err := NewSigner([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	sig, err := s.Sign(orderedPair{Z: 3, A: "x"})
	require.NoError(t, err)

	// The client sends the snapshot back as a JSON object.
	var echoed map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"a":"x","z":3}`), &echoed))
	assert.NoError(t, s.Verify(echoed, sig))
}

func TestVerifyErrors(t *testing.T) {
	s, err := NewSigner([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		sig    string
		expect error
	}{
		{"missing", "", ErrSignatureInvalid},
		{"not base64", "!!!", ErrInvalidFormat},
		{"wrong key", mustSign(t, "other", 1), ErrSignatureInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.Verify(1, tt.sig), tt.expect)
		})
	}
}

func TestCanonicalSortsKeys(t *testing.T) {
	data, err := Canonical(orderedPair{Z: 1, A: "a"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"a","z":1}`, string(data))

	_, err = Canonical(func() {})
	assert.Error(t, err)
}

func mustSign(t *testing.T, key string, v any) string {
	t.Helper()
	s, err := NewSigner([]byte(key))
	require.NoError(t, err)
	sig, err := s.Sign(v)
	require.NoError(t, err)
	return sig
}
