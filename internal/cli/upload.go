package cli

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rescale-labs/wa-media-core/internal/mediacrypto"
	"github.com/rescale-labs/wa-media-core/internal/mediakeys"
	"github.com/rescale-labs/wa-media-core/internal/media"
	"github.com/rescale-labs/wa-media-core/internal/transporthttp"
	"github.com/rescale-labs/wa-media-core/internal/upload"
)

// newUploadCmd creates the 'upload' command.
func newUploadCmd() *cobra.Command {
	var typeFlag = mediaTypeFlag{value: mediakeys.MediaDocument}
	var sourceURL string
	var hosts []string
	var auth string
	var newsletter bool
	var timeoutMs int64

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Encrypt a local file or remote URL and upload it to the first accepting host",
		Long: `Encrypts <file> (or, with --source-url, a remote object streamed over
HTTP) exactly like 'encrypt', then POSTs the ciphertext to each --host in
order until one accepts it. At least one host must come from --host or
the config file; there is no server-side connection-info refresher in
this demonstration CLI, so --auth is reused unchanged across hosts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			cfg := GetConfig()

			if len(hosts) == 0 && len(cfg.CustomUploadHosts) == 0 {
				return fmt.Errorf("at least one --host (or a configured upload host) is required")
			}

			source := mediakeys.Source{URL: sourceURL}
			if len(args) == 1 {
				source.FilePath = args[0]
			}
			if source.FilePath == "" && source.URL == "" {
				return fmt.Errorf("either a local file argument or --source-url is required")
			}

			var uploadHosts []upload.Host
			for _, h := range hosts {
				uploadHosts = append(uploadHosts, upload.Host{Hostname: h})
			}
			for _, h := range cfg.CustomUploadHosts {
				uploadHosts = append(uploadHosts, upload.Host{
					Hostname:              h.Hostname,
					MaxContentLengthBytes: h.MaxContentLengthBytes,
				})
			}

			dispatcher := upload.NewDispatcher(transporthttp.NewClient(cfg), func(_ context.Context, _ bool) (*upload.ConnInfo, error) {
				return &upload.ConnInfo{Auth: auth}, nil
			})
			dispatcher.Log = logger
			dispatcher.Retry = transporthttp.RetryConfig{
				MaxRetries:   cfg.MaxRetries,
				InitialDelay: cfg.RetryInitialDelay,
				MaxDelay:     cfg.RetryMaxDelay,
			}
			if timeoutMs == 0 {
				timeoutMs = cfg.UploadTimeout.Milliseconds()
			}

			client := &media.Client{
				HTTP:       transporthttp.NewClient(cfg),
				SourceHTTP: transporthttp.NewRetryableClient(cfg, logger),
				Dispatcher: dispatcher,
				Origin:     cfg.DefaultOrigin,
			}

			artifact, err := client.UploadSource(GetContext(), source, typeFlag.value, mediacrypto.EncryptOptions{}, media.UploadParams{
				Newsletter:  newsletter,
				TimeoutMs:   timeoutMs,
				CustomHosts: uploadHosts,
			})
			if err != nil {
				return fmt.Errorf("upload: %w", err)
			}

			fmt.Printf("mediaKey:   %s\n", base64.StdEncoding.EncodeToString(artifact.MediaKey))
			fmt.Printf("mediaUrl:   %s\n", artifact.MediaURL)
			fmt.Printf("directPath: %s\n", artifact.DirectPath)
			fmt.Printf("handle:     %s\n", artifact.Handle)
			return nil
		},
	}

	cmd.Flags().VarP(&typeFlag, "type", "t", "media type (image, video, audio, document, sticker, ...)")
	cmd.Flags().StringVar(&sourceURL, "source-url", "", "stream the plaintext from this http(s) URL instead of a local file")
	cmd.Flags().StringArrayVar(&hosts, "host", nil, "upload host, in fallback order (repeatable)")
	cmd.Flags().StringVar(&auth, "auth", "", "auth token query parameter")
	cmd.Flags().BoolVar(&newsletter, "newsletter", false, "rewrite the path for newsletter media")
	cmd.Flags().Int64Var(&timeoutMs, "timeout-ms", 0, "per-host POST timeout in milliseconds (0 = default)")

	return cmd
}
