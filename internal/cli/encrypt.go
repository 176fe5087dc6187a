package cli

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rescale-labs/wa-media-core/internal/mediacrypto"
	"github.com/rescale-labs/wa-media-core/internal/mediakeys"
	"github.com/rescale-labs/wa-media-core/internal/progress"
)

// newEncryptCmd creates the 'encrypt' command.
func newEncryptCmd() *cobra.Command {
	var typeFlag = mediaTypeFlag{value: mediakeys.MediaDocument}
	var outPath string
	var saveOriginal string
	var maxContentLength int64

	cmd := &cobra.Command{
		Use:   "encrypt <file>",
		Short: "Encrypt a local file into the WhatsApp media wire format",
		Long: `Reads <file>, generates a fresh random media key, and streams it through
AES-256-CBC + HMAC-SHA256 into --out (ciphertext || 10-byte mac).

Prints the media key (base64), plaintext SHA-256, ciphertext+mac SHA-256,
and mac, which an upload or decrypt call elsewhere needs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()

			src, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer src.Close()

			if outPath == "" {
				outPath = args[0] + ".enc"
			}
			dst, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outPath, err)
			}
			defer dst.Close()

			var srcSize int64
			if fi, ferr := src.Stat(); ferr == nil {
				srcSize = fi.Size()
			}
			bar := progress.New(args[0], srcSize)
			defer bar.Done()

			artifact, err := mediacrypto.EncryptingPipeline(GetContext(), bar.WrapReader(src), typeFlag.value, mediacrypto.EncryptOptions{
				MaxContentLength: maxContentLength,
				SaveOriginalPath: saveOriginal,
			}, dst)
			if err != nil {
				return fmt.Errorf("encrypt: %w", err)
			}

			logger.Stage("encrypt").Info().
				Str("out", outPath).
				Int64("fileLength", artifact.FileLength).
				Msg("encrypted")

			fmt.Printf("mediaKey:     %s\n", base64.StdEncoding.EncodeToString(artifact.MediaKey))
			fmt.Printf("fileLength:   %d\n", artifact.FileLength)
			fmt.Printf("fileSha256:   %x\n", artifact.FileSha256)
			fmt.Printf("fileEncSha256:%x\n", artifact.FileEncSha256)
			fmt.Printf("mac:          %x\n", artifact.Mac)
			fmt.Printf("ciphertext:   %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().VarP(&typeFlag, "type", "t", "media type (image, video, audio, document, sticker, ...)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "ciphertext output path (default: <file>.enc)")
	cmd.Flags().StringVar(&saveOriginal, "save-original", "", "also tee the plaintext to this path as it streams through")
	cmd.Flags().Int64Var(&maxContentLength, "max-content-length", 0, "fail if plaintext exceeds this many bytes (0 = unlimited)")

	return cmd
}
