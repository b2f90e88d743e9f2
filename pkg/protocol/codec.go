// Copyright (c) 2025, The calory-counter Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	cerrors "github.com/calory-counter/catalog/pkg/errors"
	"github.com/calory-counter/catalog/pkg/food"
)

const (
	// FrameSize is the fixed size of every message block on the wire.
	FrameSize = 4096

	// AckSize is the fixed size of the acknowledgment block.
	AckSize = 32

	// Ack is the acknowledgment text, NUL padded to AckSize.
	Ack = "ACK"

	// MaxMessageSize leaves room for the terminating NUL.
	MaxMessageSize = FrameSize - 1
)

var (
	// ErrTimeout is returned by Receive when no frame byte arrived within the
	// read timeout. The connection is still usable.
	ErrTimeout = cerrors.New(cerrors.ErrCodeTimeout, "timed out waiting for frame")

	// ErrShortFrame is returned when the stream ended or stalled in the middle
	// of a frame. The connection is no longer usable.
	ErrShortFrame = cerrors.New(cerrors.ErrCodeTransport, "incomplete frame")

	// ErrNotAcknowledged is returned by Send when the peer did not answer
	// with a complete ACK block.
	ErrNotAcknowledged = cerrors.New(cerrors.ErrCodeTransport, "frame not acknowledged")

	// ErrWriteFailed is returned when a frame or ACK block could not be written.
	ErrWriteFailed = cerrors.New(cerrors.ErrCodeTransport, "frame write failed")

	// ErrMessageTooLarge is returned by Send before any byte is written when
	// the message does not fit in a frame.
	ErrMessageTooLarge = cerrors.New(cerrors.ErrCodeInvalidRequest, "message exceeds frame size")
)

// Conn is the subset of net.Conn the codec needs.
type Conn interface {
	io.Reader
	io.Writer
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Codec frames messages over a connection. Every frame sent is acknowledged
// by the receiver before Send returns. A Codec is not safe for concurrent use.
type Codec struct {
	conn         Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Option configures a Codec.
type Option func(*Codec)

// WithReadTimeout sets the deadline applied before every blocking read.
// Zero disables it.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Codec) {
		c.readTimeout = d
	}
}

// WithWriteTimeout sets the deadline applied before every write.
// Zero disables it.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Codec) {
		c.writeTimeout = d
	}
}

// NewCodec returns a codec bound to conn.
func NewCodec(conn Conn, opts ...Option) *Codec {
	c := &Codec{conn: conn}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send writes msg as one frame and waits for the peer's acknowledgment.
func (c *Codec) Send(msg string) error {
	if len(msg) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(msg))
	}

	frame := make([]byte, FrameSize)
	copy(frame, msg)
	if err := c.writeFull(frame); err != nil {
		return err
	}

	ack := make([]byte, AckSize)
	if err := c.readFull(ack); err != nil {
		return fmt.Errorf("%w: %w", ErrNotAcknowledged, err)
	}
	if got := string(trimNUL(ack)); got != Ack {
		return fmt.Errorf("%w: got %q", ErrNotAcknowledged, got)
	}
	return nil
}

// Receive blocks until one full frame has been read, acknowledges it and
// returns the message it carries.
//
// It returns io.EOF when the peer closed the connection between frames and
// ErrTimeout when nothing arrived within the read timeout.
func (c *Codec) Receive() (string, error) {
	frame := make([]byte, FrameSize)
	if err := c.readFull(frame); err != nil {
		return "", err
	}

	ack := make([]byte, AckSize)
	copy(ack, Ack)
	if err := c.writeFull(ack); err != nil {
		return "", err
	}
	return string(trimNUL(frame)), nil
}

// SendSearch sends a SEARCH frame.
func (c *Codec) SendSearch(query string) error {
	return c.Send(SearchMessage(query))
}

// SendFood sends a FOOD frame.
func (c *Codec) SendFood(f food.Food) error {
	return c.Send(FoodMessage(f))
}

// SendCount sends a COUNT frame.
func (c *Codec) SendCount(n int) error {
	return c.Send(CountMessage(n))
}

func (c *Codec) readFull(buf []byte) error {
	n := 0
	for n < len(buf) {
		if c.readTimeout > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
				return fmt.Errorf("%w: %w", ErrShortFrame, err)
			}
		}
		m, err := c.conn.Read(buf[n:])
		n += m
		if err == nil || n == len(buf) {
			continue
		}
		if n == 0 {
			switch {
			case errors.Is(err, io.EOF):
				return io.EOF
			case isTimeout(err):
				return fmt.Errorf("%w: %w", ErrTimeout, err)
			}
		}
		return fmt.Errorf("%w: read %d of %d bytes: %w", ErrShortFrame, n, len(buf), err)
	}
	return nil
}

func (c *Codec) writeFull(buf []byte) error {
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
	}
	n := 0
	for n < len(buf) {
		m, err := c.conn.Write(buf[n:])
		n += m
		if err != nil {
			return fmt.Errorf("%w: wrote %d of %d bytes: %w", ErrWriteFailed, n, len(buf), err)
		}
		if m == 0 {
			return fmt.Errorf("%w: %w", ErrWriteFailed, io.ErrShortWrite)
		}
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// trimNUL returns the bytes before the first NUL.
func trimNUL(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}
