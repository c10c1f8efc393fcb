package bandwidth

import (
	"context"
	"io"
)

// ThrottledReader wraps r, consuming rate-limiter tokens per byte read so
// that downstream consumers observe a capped effective transfer rate.
type ThrottledReader struct {
	ctx     context.Context
	r       io.Reader
	limiter interface {
		WaitN(context.Context, int) error
	}
}

// NewThrottledReader wraps r with limiter, blocking each Read call against
// ctx until the limiter admits that many bytes.
func NewThrottledReader(ctx context.Context, r io.Reader, limiter interface {
	WaitN(context.Context, int) error
}) *ThrottledReader {
	return &ThrottledReader{ctx: ctx, r: r, limiter: limiter}
}

func (t *ThrottledReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		if werr := t.limiter.WaitN(t.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
