package transporthttp

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/rescale-labs/wa-media-core/internal/config"
	"github.com/rescale-labs/wa-media-core/internal/logging"
)

// leveledLogger adapts a Logger to retryablehttp.LeveledLogger so retry
// attempts log through the same zerolog setup as everything else.
type leveledLogger struct {
	log *logging.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.log.Error().Fields(kv).Msg(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.log.Info().Fields(kv).Msg(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.log.Warn().Fields(kv).Msg(msg) }

// NewRetryableClient wraps NewClient(cfg) with retryablehttp's
// request-level retry (distinct from ExecuteWithRetry's operation-level
// retry, which wraps a whole host POST attempt in the dispatcher): transient
// connection resets and 5xx/429 responses on a single GET are retried
// in place before the caller ever sees an error. This is what
// mediakeys.Source.Open uses to fetch a remote plaintext object, since a
// single dropped connection there would otherwise fail the whole
// encrypt-then-upload flow.
func NewRetryableClient(cfg *config.Config, log *logging.Logger) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = NewClient(cfg)
	retryClient.RetryMax = 5
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	if log != nil {
		retryClient.Logger = leveledLogger{log: log}
	} else {
		retryClient.Logger = nil
	}
	return retryClient.StandardClient()
}
