package cli

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rescale-labs/wa-media-core/internal/mediacrypto"
	"github.com/rescale-labs/wa-media-core/internal/mediakeys"
)

// newDecryptCmd creates the 'decrypt' command, operating on a local
// ciphertext file (no HTTP fetch). Use 'download' for the end-to-end
// resolve-and-fetch path.
func newDecryptCmd() *cobra.Command {
	var typeFlag = mediaTypeFlag{value: mediakeys.MediaDocument}
	var mediaKeyB64 string
	var outPath string
	var startByte int64
	var hasEnd bool
	var endByte int64
	var verifyMAC bool

	cmd := &cobra.Command{
		Use:   "decrypt <ciphertext-file>",
		Short: "Decrypt a local ciphertext file produced by 'encrypt' or 'download'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()

			mediaKey, err := base64.StdEncoding.DecodeString(mediaKeyB64)
			if err != nil {
				return fmt.Errorf("decoding --media-key: %w", err)
			}

			keys, err := mediakeys.DeriveKeys(mediaKey, typeFlag.value)
			if err != nil {
				return fmt.Errorf("deriving keys: %w", err)
			}
			defer keys.Zero()

			src, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer src.Close()

			if outPath == "" {
				outPath = args[0] + ".dec"
			}
			dst, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outPath, err)
			}
			defer dst.Close()

			opts := mediacrypto.DecryptOptions{StartByte: startByte, VerifyMAC: verifyMAC}
			if hasEnd {
				opts.EndByte = &endByte
			}

			// DecryptStream expects its reader positioned where an HTTP
			// Range fetch would have started; for a local file that means
			// seeking to the window and bounding the read ourselves.
			var reader io.Reader = src
			if offset, length := mediacrypto.FetchWindow(opts); offset > 0 || length >= 0 {
				if _, serr := src.Seek(offset, io.SeekStart); serr != nil {
					return fmt.Errorf("seeking to ciphertext offset %d: %w", offset, serr)
				}
				if length >= 0 {
					reader = io.LimitReader(src, length)
				}
			}

			if err := mediacrypto.DecryptStream(reader, keys, opts, dst); err != nil {
				return fmt.Errorf("decrypt: %w", err)
			}

			logger.Stage("decrypt").Info().Str("out", outPath).Msg("decrypted")
			fmt.Printf("plaintext: %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().VarP(&typeFlag, "type", "t", "media type used at encrypt time")
	cmd.Flags().StringVar(&mediaKeyB64, "media-key", "", "base64-encoded 32-byte media key (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "plaintext output path (default: <file>.dec)")
	cmd.Flags().Int64Var(&startByte, "start", 0, "first plaintext byte (inclusive)")
	cmd.Flags().Var(optionalEndByte{&endByte, &hasEnd}, "end", "last plaintext byte (exclusive); unset decrypts to EOF")
	cmd.Flags().BoolVar(&verifyMAC, "verify-mac", false, "verify the trailing mac (only applies to a full, unranged decrypt)")
	cmd.MarkFlagRequired("media-key")

	return cmd
}

// optionalEndByte is a pflag.Value that records both a parsed int64 and
// whether --end was actually supplied, distinguishing "decrypt to EOF" from
// "decrypt up to byte 0".
type optionalEndByte struct {
	value *int64
	set   *bool
}

func (o optionalEndByte) String() string {
	if o.set == nil || !*o.set {
		return ""
	}
	return fmt.Sprintf("%d", *o.value)
}

func (o optionalEndByte) Set(s string) error {
	var v int64
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return fmt.Errorf("invalid --end value %q: %w", s, err)
	}
	*o.value = v
	*o.set = true
	return nil
}

func (o optionalEndByte) Type() string { return "int64" }
