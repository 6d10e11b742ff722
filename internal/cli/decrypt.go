package cli

import (
	"time"

	"github.com/dmitrijs2005/fileguard/internal/common"
	"github.com/dmitrijs2005/fileguard/internal/filex"
	"github.com/dmitrijs2005/fileguard/internal/server/auth"
	"github.com/spf13/cobra"
)

func (a *App) decryptCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "decrypt <id>",
		Short: "Decrypt a stored file",
		Long:  "Re-derive the file key from the password, verify it and the content hash, and write the plaintext to --out.",
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

			comp, err := a.open(cmd.Context(), c, pw)
			if err != nil {
				return err
			}
			defer comp.Close()

			plaintext, meta, err := comp.Pipeline.Decrypt(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(plaintext)

			if err := filex.WriteFileAtomic(out, plaintext, 0o600); err != nil {
				return err
			}
			a.printf("decrypted %s (%s, %d bytes) to %s\n", meta.ID, meta.OriginalFilename, len(plaintext), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "where to write the plaintext")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func (a *App) tokenCmd() *cobra.Command {
	var (
		operator string
		validity time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator access token for the gRPC and HTTP operator endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.config()
			if err != nil {
				return err
			}
			if validity <= 0 {
				validity = c.AccessTokenValidity
			}

			tok, err := auth.GenerateToken(operator, []byte(c.SecretKey), validity)
			if err != nil {
				return err
			}
			a.printf("%s\n", tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "operator", "operator name recorded in the token")
	cmd.Flags().DurationVar(&validity, "validity", 0, "token lifetime (default from config)")
	return cmd
}
