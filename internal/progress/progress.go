// Package progress renders a single-file transfer progress bar for
// mediactl's encrypt/download commands.
package progress

import (
	"io"
	"os"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// Bar tracks bytes moved for one encrypt/upload/download/decrypt run. On a
// non-terminal stderr (redirected to a file, CI, a pipe) it is a no-op:
// Writer/Reader pass bytes through untouched.
type Bar struct {
	progress *mpb.Progress
	bar      *mpb.Bar
}

// New starts a bar labeled label. sizeBytes of 0 renders an indeterminate
// spinner-style bar instead of a percentage, since EncryptingPipeline and
// DecryptingPipeline don't always know the total length up front (a
// chunked HTTP response, or a reader with no Len).
func New(label string, sizeBytes int64) *Bar {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return &Bar{}
	}

	p := mpb.New(mpb.WithOutput(os.Stderr), mpb.WithRefreshRate(180*time.Millisecond))

	if sizeBytes <= 0 {
		bar := p.New(0,
			mpb.SpinnerStyle(),
			mpb.PrependDecorators(decor.Name(label, decor.WCSyncSpaceR)),
			mpb.AppendDecorators(decor.CountersKibiByte("% .1f")),
		)
		return &Bar{progress: p, bar: bar}
	}

	bar := p.New(sizeBytes,
		mpb.BarStyle().Lbound("[").Filler("=").Tip(">").Padding(" ").Rbound("]"),
		mpb.PrependDecorators(decor.Name(label, decor.WCSyncSpaceR)),
		mpb.AppendDecorators(
			decor.CountersKibiByte("% .1f / % .1f"),
			decor.Name("  "),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)
	return &Bar{progress: p, bar: bar}
}

// Wrap decorates w so every Write advances the bar by the bytes written.
func (b *Bar) Wrap(w io.Writer) io.Writer {
	if b.bar == nil {
		return w
	}
	return &countingWriter{w: w, bar: b.bar}
}

// WrapReader decorates r so every Read advances the bar by the bytes read.
func (b *Bar) WrapReader(r io.Reader) io.Reader {
	if b.bar == nil {
		return r
	}
	return &countingReader{r: r, bar: b.bar}
}

// Done marks the bar complete and releases the terminal line. Safe to call
// on a no-op Bar.
func (b *Bar) Done() {
	if b.bar == nil {
		return
	}
	b.bar.SetTotal(b.bar.Current(), true)
	b.progress.Wait()
}

type countingWriter struct {
	w   io.Writer
	bar *mpb.Bar
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if n > 0 {
		c.bar.IncrBy(n)
	}
	return n, err
}

type countingReader struct {
	r   io.Reader
	bar *mpb.Bar
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.bar.IncrBy(n)
	}
	return n, err
}
