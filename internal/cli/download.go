package cli

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rescale-labs/wa-media-core/internal/media"
	"github.com/rescale-labs/wa-media-core/internal/mediacrypto"
	"github.com/rescale-labs/wa-media-core/internal/mediakeys"
	"github.com/rescale-labs/wa-media-core/internal/progress"
	"github.com/rescale-labs/wa-media-core/internal/transporthttp"
)

// newDownloadCmd creates the 'download' command.
func newDownloadCmd() *cobra.Command {
	var typeFlag = mediaTypeFlag{value: mediakeys.MediaDocument}
	var mediaKeyB64 string
	var directPath string
	var url string
	var startByte int64
	var hasEnd bool
	var endByte int64

	cmd := &cobra.Command{
		Use:   "download <out-file>",
		Short: "Resolve a download URL and decrypt it, end to end",
		Long: `Resolves the download URL from --url/--direct-path exactly as a
DownloadableMessage would, fetches it with an
optional byte-range Range header, and decrypts it into <out-file>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			cfg := GetConfig()

			mediaKey, err := base64.StdEncoding.DecodeString(mediaKeyB64)
			if err != nil {
				return fmt.Errorf("decoding --media-key: %w", err)
			}

			dst, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("creating %s: %w", args[0], err)
			}
			defer dst.Close()

			client := &media.Client{HTTP: transporthttp.NewClient(cfg), Origin: cfg.DefaultOrigin}

			opts := mediacrypto.DecryptOptions{StartByte: startByte, Origin: cfg.DefaultOrigin}
			if hasEnd {
				opts.EndByte = &endByte
			}

			bar := progress.New(args[0], 0)
			defer bar.Done()

			msg := media.DownloadableMessage{MediaKey: mediaKey, DirectPath: directPath, URL: url, Type: typeFlag.value}
			if err := client.DownloadFile(GetContext(), msg, opts, bar.Wrap(dst)); err != nil {
				return fmt.Errorf("download: %w", err)
			}

			logger.Stage("download").Info().Str("out", args[0]).Msg("downloaded")
			fmt.Printf("plaintext: %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().VarP(&typeFlag, "type", "t", "media type used at encrypt time")
	cmd.Flags().StringVar(&mediaKeyB64, "media-key", "", "base64-encoded 32-byte media key (required)")
	cmd.Flags().StringVar(&directPath, "direct-path", "", "server-relative direct path")
	cmd.Flags().StringVar(&url, "url", "", "absolute url, trusted only if it starts with https://mmg.whatsapp.net/")
	cmd.Flags().Int64Var(&startByte, "start", 0, "first plaintext byte (inclusive)")
	cmd.Flags().Var(optionalEndByte{&endByte, &hasEnd}, "end", "last plaintext byte (exclusive); unset downloads to EOF")
	cmd.MarkFlagRequired("media-key")

	return cmd
}
