package jsonb

import (
	"errors"
	"fmt"
	"io"
)

// A cursor is a bounded, sequential, read-only view of a byte source. The
// root cursor wraps either an in-memory slice or an io.Reader; take derives
// sub-views that share the underlying read position. Every view carries a
// byte budget, and a read charges the budget of the view and all of its
// ancestors, so a parent's position advances exactly as a child consumes
// bytes. A read that would exceed any budget fails immediately with
// ErrTruncated.
type cursor struct {
	parent *cursor

	// root state, unused on derived views
	data []byte
	pos  int
	r    io.Reader

	// remaining bytes this view may read, -1 if unbounded
	budget int64
}

func newBytesCursor(data []byte) *cursor {
	return &cursor{data: data, budget: int64(len(data))}
}

func newReaderCursor(r io.Reader) *cursor {
	return &cursor{r: r, budget: -1}
}

// take derives a view limited to the next n bytes. The budget of this view
// may well exceed the parent's: reads through it still charge the parent
// and fail there. Callers that must distinguish a structurally impossible
// size check remaining() up front.
func (c *cursor) take(n int) *cursor {
	return &cursor{parent: c, budget: int64(n)}
}

func (c *cursor) remaining() int64 {
	return c.budget
}

func (c *cursor) root() *cursor {
	v := c
	for v.parent != nil {
		v = v.parent
	}

	return v
}

// charge verifies that all budgets on the path to the root cover a read of
// n bytes, then debits them.
func (c *cursor) charge(n int) error {
	for v := c; v != nil; v = v.parent {
		if v.budget >= 0 && int64(n) > v.budget {
			return fmt.Errorf("read of %d bytes with %d remaining: %w", n, v.budget, ErrTruncated)
		}
	}

	for v := c; v != nil; v = v.parent {
		if v.budget >= 0 {
			v.budget -= int64(n)
		}
	}

	return nil
}

// read returns the next n bytes. On a slice-backed source the result
// aliases the input and stays valid; on a reader-backed source it is a
// fresh allocation.
func (c *cursor) read(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}

	if err := c.charge(n); err != nil {
		return nil, err
	}

	root := c.root()
	if root.r == nil {
		span := root.data[root.pos : root.pos+n]
		root.pos += n
		return span, nil
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(root.r, buf); err != nil {
		return nil, readFailed(err)
	}

	return buf, nil
}

func (c *cursor) readByte() (byte, error) {
	span, err := c.read(1)
	if err != nil {
		return 0, err
	}

	return span[0], nil
}

// skip discards the next n bytes without retaining them.
func (c *cursor) skip(n int) error {
	if n == 0 {
		return nil
	}

	if err := c.charge(n); err != nil {
		return err
	}

	root := c.root()
	if root.r == nil {
		root.pos += n
		return nil
	}

	if _, err := io.CopyN(io.Discard, root.r, int64(n)); err != nil {
		return readFailed(err)
	}

	return nil
}

// expectEOF verifies that no input remains. Must be called on the root
// cursor, after the top-level element was fully consumed.
func (c *cursor) expectEOF() error {
	if c.budget == 0 {
		return nil
	}

	if c.budget > 0 {
		return fmt.Errorf("%d unconsumed bytes: %w", c.budget, ErrTrailingData)
	}

	// unbounded reader, probe for one more byte
	var buf [1]byte
	switch _, err := io.ReadFull(c.r, buf[:]); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return fmt.Errorf("read input: %w", err)
	default:
		return ErrTrailingData
	}
}

// readFailed normalizes reader errors: running out of bytes is a
// truncation of the element being decoded, everything else is passed
// through as an I/O failure.
func readFailed(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}

	return fmt.Errorf("read input: %w", err)
}
