package common

import (
	"testing"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/stretchr/testify/assert"
)

func TestChunkRecords(t *testing.T) {
	records := make([]catalog.Record, 7)
	for i := range records {
		records[i] = catalog.Record{"a": i, "b": i}
	}

	chunks := ChunkRecords(records, 2, 6)
	if assert.Len(t, chunks, 3) {
		assert.Len(t, chunks[0], 3)
		assert.Len(t, chunks[1], 3)
		assert.Len(t, chunks[2], 1)
	}

	// a single row wider than the limit still gets its own chunk
	chunks = ChunkRecords(records[:2], 10, 3)
	assert.Len(t, chunks, 2)

	assert.Nil(t, ChunkRecords(nil, 2, 6))
	assert.Len(t, ChunkRecords(records, 2, 0), 1)
}

func TestValidateIdentifiers(t *testing.T) {
	assert.NoError(t, ValidateIdentifiers("users", []string{"id", "email"}))
	assert.Error(t, ValidateIdentifiers("users;drop", nil))
	assert.Error(t, ValidateIdentifiers("users", []string{"id", "bad name"}))
}

func TestNormalizeValue(t *testing.T) {
	assert.Nil(t, NormalizeValue(nil))
	assert.Equal(t, "hello", NormalizeValue([]byte("hello")))
	assert.Equal(t, int64(5), NormalizeValue(int32(5)))
	assert.Equal(t, int64(7), NormalizeValue(7))
	assert.Equal(t, float64(1.5), NormalizeValue(float32(1.5)))
	assert.Equal(t, `{"a":1}`, NormalizeValue(map[string]interface{}{"a": 1}))

	raw := []byte{0x55, 0x0e, 0x84, 0x00, 0xe2, 0x9b, 0x41, 0xd4, 0xa7, 0x16, 0x44, 0x66, 0x55, 0x44, 0x00, 0x00}
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", NormalizeValue(raw))
}
