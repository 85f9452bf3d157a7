package cli

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/spf13/cobra"

	"github.com/roach88/cavityproof/internal/ir"
)

// KeygenOptions holds flags for the keygen command.
type KeygenOptions struct {
	*RootOptions
	Out string
}

// KeygenResult is the output of keygen.
type KeygenResult struct {
	PublicKey ir.Pubkey `json:"public_key"`
	Path      string    `json:"path"`
}

// Text implements Texter.
func (r KeygenResult) Text() string {
	return "Wrote " + r.Path + "\npublic key: " + r.PublicKey.String()
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeygenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an Ed25519 key file",
		Long: `Generate a new Ed25519 keypair and write it as a JSON byte array.

The file is created with mode 0600 and is never overwritten.

Example:
  cavityproof keygen --out alice.json
  cavityproof keygen --out oracle.json --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "path of the key file to create (required)")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runKeygen(opts *KeygenOptions, cmd *cobra.Command) error {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to generate key", err)
	}
	if err := WriteKeyfile(opts.Out, key); err != nil {
		return WrapExitError(ExitCommandError, "failed to write key file", err)
	}
	return opts.formatter(cmd).Success(KeygenResult{PublicKey: publicKey(key), Path: opts.Out})
}
