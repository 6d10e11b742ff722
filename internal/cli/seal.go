package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/fileguard/internal/common"
	"github.com/dmitrijs2005/fileguard/internal/cryptox"
	"github.com/dmitrijs2005/fileguard/internal/filex"
	"github.com/spf13/cobra"
)

const manifestName = "manifest.fgx"

// ErrSealTampered is returned by unseal when a payload does not match the
// manifest.
var ErrSealTampered = errors.New("sealed file does not match manifest")

// sealManifest is the on-disk envelope. Entries holds the encrypted
// []sealEntry.
type sealManifest struct {
	KDF     string `json:"kdf"`
	Salt    []byte `json:"salt"`
	Entries []byte `json:"entries"`
}

type sealEntry struct {
	Name        string `json:"name"`
	File        string `json:"file"`
	Salt        []byte `json:"salt"`
	KeyHash     string `json:"key_hash"`
	ContentHash string `json:"content_hash"`
}

func (a *App) sealCmd() *cobra.Command {
	var (
		outDir  string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "seal <path>...",
		Short: "Encrypt local files into a directory without storing them",
		Long:  "Encrypt every file under its own key and write the base64 payloads plus an encrypted manifest to --out-dir. Nothing is scanned or recorded.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.config()
			if err != nil {
				return err
			}
			pw, err := a.password(c)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			if workers <= 0 {
				workers = c.BatchWorkers
			}
			params := cryptox.KDFParams{Algorithm: cryptox.Algorithm(c.KDFAlgorithm), Iterations: c.KDFIterations}

			items := make([]cryptox.BatchItem, len(args))
			hashes := make([]string, len(args))
			for i, p := range args {
				data, err := os.ReadFile(p)
				if err != nil {
					return err
				}
				items[i] = cryptox.BatchItem{Name: filepath.Base(p), Plaintext: data}
				hashes[i] = cryptox.ContentHash(data)
			}
			defer func() {
				for _, it := range items {
					common.WipeByteArray(it.Plaintext)
				}
			}()

			results, err := cryptox.EncryptBatch(cmd.Context(), items, pw, params, workers)
			if err != nil {
				return err
			}

			if _, err := filex.EnsureDir(outDir, 0o700); err != nil {
				return err
			}

			entries := make([]sealEntry, len(results))
			for i, r := range results {
				file := fmt.Sprintf("%03d-%s.enc", i, r.Name)
				encoded := []byte(cryptox.EncodePayload(r.Payload))
				if err := filex.WriteFileAtomic(filepath.Join(outDir, file), encoded, 0o600); err != nil {
					return err
				}
				entries[i] = sealEntry{Name: r.Name, File: file, Salt: r.Salt, KeyHash: r.KeyHash, ContentHash: hashes[i]}
			}

			if err := writeManifest(filepath.Join(outDir, manifestName), entries, pw, params); err != nil {
				return err
			}
			a.printf("sealed %d files into %s\n", len(entries), outDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for the encrypted files and manifest")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel encryptions (default from config)")
	_ = cmd.MarkFlagRequired("out-dir")
	return cmd
}

func (a *App) unsealCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "unseal <dir>",
		Short: "Decrypt a directory written by seal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.config()
			if err != nil {
				return err
			}
			pw, err := a.password(c)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(pw)

			entries, params, err := readManifest(filepath.Join(args[0], manifestName), pw)
			if err != nil {
				return err
			}

			if _, err := filex.EnsureDir(outDir, 0o700); err != nil {
				return err
			}

			for _, e := range entries {
				if err := unsealOne(args[0], outDir, e, pw, params); err != nil {
					return fmt.Errorf("%s: %w", e.Name, err)
				}
			}
			a.printf("unsealed %d files into %s\n", len(entries), outDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "", "where to write the plaintext files")
	_ = cmd.MarkFlagRequired("out-dir")
	return cmd
}

func writeManifest(path string, entries []sealEntry, pw []byte, params cryptox.KDFParams) error {
	key, err := cryptox.DeriveKey(pw, nil, params)
	if err != nil {
		return err
	}
	defer key.Wipe()

	sealed, err := cryptox.EncryptMetadata(entries, key.Material)
	if err != nil {
		return err
	}

	data, err := json.Marshal(sealManifest{KDF: params.String(), Salt: key.Salt, Entries: sealed})
	if err != nil {
		return err
	}
	return filex.WriteFileAtomic(path, data, 0o600)
}

func readManifest(path string, pw []byte) ([]sealEntry, cryptox.KDFParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cryptox.KDFParams{}, err
	}

	var m sealManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, cryptox.KDFParams{}, fmt.Errorf("bad manifest: %w", err)
	}
	params, err := cryptox.ParseKDFParams(m.KDF)
	if err != nil {
		return nil, cryptox.KDFParams{}, err
	}

	key, err := cryptox.DeriveKey(pw, m.Salt, params)
	if err != nil {
		return nil, cryptox.KDFParams{}, err
	}
	defer key.Wipe()

	var entries []sealEntry
	if err := cryptox.DecryptMetadata(m.Entries, key.Material, &entries); err != nil {
		return nil, cryptox.KDFParams{}, err
	}
	return entries, params, nil
}

func unsealOne(srcDir, outDir string, e sealEntry, pw []byte, params cryptox.KDFParams) error {
	encoded, err := os.ReadFile(filepath.Join(srcDir, filepath.Base(e.File)))
	if err != nil {
		return err
	}
	payload, err := cryptox.DecodePayload(string(encoded))
	if err != nil {
		return err
	}

	key, err := cryptox.DeriveKey(pw, e.Salt, params)
	if err != nil {
		return err
	}
	defer key.Wipe()

	if key.Fingerprint() != e.KeyHash {
		return ErrSealTampered
	}

	plaintext, err := cryptox.Decrypt(payload, key.Material)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(plaintext)

	if cryptox.ContentHash(plaintext) != e.ContentHash {
		return ErrSealTampered
	}
	return filex.WriteFileAtomic(filepath.Join(outDir, filepath.Base(e.Name)), plaintext, 0o600)
}
