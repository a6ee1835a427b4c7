package media

import (
	"context"
	"io"
)

// bodyReadError marks a failure reading the client body, as opposed to a
// failure writing to the blob store.
type bodyReadError struct {
	err error
}

func (e *bodyReadError) Error() string { return "read upload body: " + e.err.Error() }

func (e *bodyReadError) Unwrap() error { return e.err }

// uploadReader enforces the size ceiling while the body streams and stops as
// soon as the request context is done.
type uploadReader struct {
	ctx       context.Context
	r         io.Reader
	remaining int64
}

func (u *uploadReader) Read(p []byte) (int, error) {
	if err := u.ctx.Err(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if u.remaining <= 0 {
		return 0, u.probeOverflow()
	}

	if int64(len(p)) > u.remaining {
		p = p[:u.remaining]
	}
	n, err := u.r.Read(p)
	u.remaining -= int64(n)
	return n, u.wrap(err)
}

// probeOverflow reads past the ceiling: one more byte means the upload is too large.
func (u *uploadReader) probeOverflow() error {
	var one [1]byte
	for {
		n, err := u.r.Read(one[:])
		if n > 0 {
			return ErrUploadTooLarge
		}
		if err != nil {
			return u.wrap(err)
		}
		if ctxErr := u.ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
}

func (u *uploadReader) wrap(err error) error {
	if err == nil || err == io.EOF {
		return err
	}
	if ctxErr := u.ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &bodyReadError{err: err}
}
