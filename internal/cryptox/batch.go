package cryptox

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchItem is one independent plaintext to encrypt.
type BatchItem struct {
	Name      string
	Plaintext []byte
}

// BatchResult holds everything needed to persist and later decrypt an item.
type BatchResult struct {
	Name    string
	Payload []byte
	Salt    []byte
	KeyHash string
}

// EncryptBatch derives a key with a fresh salt for every item and encrypts
// them on at most workers goroutines. Results keep the input order. The
// first failure cancels the remaining work.
func EncryptBatch(ctx context.Context, items []BatchItem, password []byte, params KDFParams, workers int) ([]BatchResult, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]BatchResult, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			key, err := DeriveKey(password, nil, params)
			if err != nil {
				return fmt.Errorf("%s: %w", item.Name, err)
			}
			defer key.Wipe()

			payload, err := Encrypt(item.Plaintext, key.Material)
			if err != nil {
				return fmt.Errorf("%s: %w", item.Name, err)
			}

			results[i] = BatchResult{
				Name:    item.Name,
				Payload: payload,
				Salt:    key.Salt,
				KeyHash: key.Fingerprint(),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
