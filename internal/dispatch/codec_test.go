package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestEncodeDecode(t *testing.T) {
	msg := &Message{
		TaskID:    "b4a9f0d2-83fd-4b5e-9c2e-7f1f4f1f2a10",
		City:      "Toronto",
		StartDate: "2024-02-01",
		EndDate:   "2024-02-02",
	}

	body, err := Encode(msg)
	require.NoError(t, err)

	decoded, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

func TestEncode_WireKeys(t *testing.T) {
	// Workers in other languages key on these exact map keys
	body, err := Encode(&Message{
		TaskID:    "id-1",
		City:      "Toronto",
		StartDate: "2024-02-01",
		EndDate:   "2024-02-02",
	})
	require.NoError(t, err)

	var raw map[string]string
	require.NoError(t, msgpack.Unmarshal(body, &raw))
	assert.Equal(t, map[string]string{
		"task_id":    "id-1",
		"city":       "Toronto",
		"start_date": "2024-02-01",
		"end_date":   "2024-02-02",
	}, raw)
}

func TestDecode_Poison(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{name: "garbage bytes", body: []byte{0xc1, 0xff, 0x00}},
		{name: "empty body", body: nil},
		{
			name: "missing task_id",
			body: mustMarshal(t, map[string]string{
				"city":       "Toronto",
				"start_date": "2024-02-01",
				"end_date":   "2024-02-02",
			}),
		},
		{
			name: "missing dates",
			body: mustMarshal(t, map[string]string{
				"task_id": "id-1",
				"city":    "Toronto",
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.body)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := msgpack.Marshal(v)
	require.NoError(t, err)
	return b
}
