package cryptox

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptBatch_RoundTrip(t *testing.T) {
	password := []byte("batch-pw")

	items := make([]BatchItem, 8)
	for i := range items {
		items[i] = BatchItem{Name: fmt.Sprintf("f%d.txt", i), Plaintext: []byte(fmt.Sprintf("content %d", i))}
	}

	results, err := EncryptBatch(context.Background(), items, password, fastKDF, 3)
	require.NoError(t, err)
	require.Len(t, results, len(items))

	salts := map[string]struct{}{}
	for i, r := range results {
		assert.Equal(t, items[i].Name, r.Name, "order must be preserved")

		key, err := DeriveKey(password, r.Salt, fastKDF)
		require.NoError(t, err)
		assert.Equal(t, r.KeyHash, key.Fingerprint())

		got, err := Decrypt(r.Payload, key.Material)
		require.NoError(t, err)
		assert.Equal(t, items[i].Plaintext, got)

		salts[string(r.Salt)] = struct{}{}
	}
	assert.Len(t, salts, len(items), "every item gets its own salt")
}

func TestEncryptBatch_Empty(t *testing.T) {
	results, err := EncryptBatch(context.Background(), nil, []byte("pw"), fastKDF, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEncryptBatch_FailsOnBadParams(t *testing.T) {
	items := []BatchItem{{Name: "a", Plaintext: []byte("a")}}
	_, err := EncryptBatch(context.Background(), items, []byte("pw"), KDFParams{Algorithm: "nope", Iterations: 1}, 2)
	assert.ErrorIs(t, err, ErrKeyDerivation)
}

func TestEncryptBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := []BatchItem{{Name: "a", Plaintext: []byte("a")}}
	_, err := EncryptBatch(ctx, items, []byte("pw"), fastKDF, 2)
	assert.ErrorIs(t, err, context.Canceled)
}
