package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForContentType(t *testing.T) {
	tests := []struct {
		contentType string
		expect      string
	}{
		{"application/json", "json"},
		{"application/json; charset=utf-8", "json"},
		{"application/msgpack", "msgpack"},
		{"application/x-msgpack", "msgpack"},
		{"Application/Vnd.Msgpack", "msgpack"},
		{"", "json"},
		{"text/plain", "json"},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.expect, ForContentType(tt.contentType).Name())
		})
	}
}

func TestCodecRoundTrip(t *testing.T) {
	type envelope struct {
		ID   string         `json:"id" msgpack:"id"`
		Data map[string]any `json:"data" msgpack:"data"`
	}

	for _, codec := range []Codec{JSON, Msgpack} {
		t.Run(codec.Name(), func(t *testing.T) {
			data, err := codec.Marshal(envelope{ID: "c1", Data: map[string]any{"title": "x"}})
			require.NoError(t, err)

			var out envelope
			require.NoError(t, codec.Unmarshal(data, &out))
			assert.Equal(t, "c1", out.ID)
			assert.Equal(t, "x", out.Data["title"])
		})
	}
}

func TestCodecUnmarshalErrors(t *testing.T) {
	var v map[string]any
	assert.ErrorIs(t, JSON.Unmarshal([]byte(`{"a":`), &v), ErrInvalidFormat)
	assert.ErrorIs(t, JSON.Unmarshal([]byte(`{} []`), &v), ErrInvalidFormat)
	assert.ErrorIs(t, Msgpack.Unmarshal([]byte{0xc1}, &v), ErrInvalidFormat)
}

func TestContentTypes(t *testing.T) {
	assert.Equal(t, "application/json", JSON.ContentType())
	assert.Equal(t, "application/msgpack", Msgpack.ContentType())
}
