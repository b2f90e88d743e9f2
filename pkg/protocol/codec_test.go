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
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/calory-counter/catalog/pkg/errors"
	"github.com/calory-counter/catalog/pkg/food"
)

func pipe(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

// tcpPair returns both ends of a loopback TCP connection. Tests that close
// a peer use it because net.Pipe refuses deadlines once either end closes.
func tcpPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()

	a, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	require.NoError(t, err)
	b, ok := <-accepted
	require.True(t, ok, "accept failed")

	t.Cleanup(func() {
		a.Close()
		b.Close()
	})
	return a, b
}

func TestSendReceive(t *testing.T) {
	a, b := pipe(t)
	sender := NewCodec(a, WithReadTimeout(time.Second))
	receiver := NewCodec(b, WithReadTimeout(time.Second))

	msgs := []string{
		SearchMessage("Milk"),
		FoodMessage(food.Food{Name: "Apple", Measure: "piece", Weight: 150, Kcal: 95, Carbo: 25}),
		CountMessage(3),
		strings.Repeat("x", MaxMessageSize),
	}

	errCh := make(chan error, 1)
	go func() {
		for _, m := range msgs {
			if err := sender.Send(m); err != nil {
				errCh <- err
				return
			}
		}
		errCh <- nil
	}()

	for _, want := range msgs {
		got, err := receiver.Receive()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	require.NoError(t, <-errCh)
}

func TestSendWritesFixedFrame(t *testing.T) {
	a, b := pipe(t)
	sender := NewCodec(a, WithReadTimeout(time.Second))

	done := make(chan error, 1)
	go func() { done <- sender.Send("COUNT:2") }()

	frame := make([]byte, FrameSize)
	_, err := io.ReadFull(b, frame)
	require.NoError(t, err)
	assert.Equal(t, "COUNT:2", string(frame[:7]))
	for _, c := range frame[7:] {
		if c != 0 {
			t.Fatal("frame is not NUL padded")
		}
	}

	ack := make([]byte, AckSize)
	copy(ack, Ack)
	_, err = b.Write(ack)
	require.NoError(t, err)
	require.NoError(t, <-done)
}

func TestReceiveWritesAck(t *testing.T) {
	a, b := pipe(t)
	receiver := NewCodec(b, WithReadTimeout(time.Second))

	got := make(chan string, 1)
	go func() {
		msg, _ := receiver.Receive()
		got <- msg
	}()

	frame := make([]byte, FrameSize)
	copy(frame, "SEARCH:Egg\n")
	// Two partial writes exercise the read loop.
	_, err := a.Write(frame[:100])
	require.NoError(t, err)
	_, err = a.Write(frame[100:])
	require.NoError(t, err)

	ack := make([]byte, AckSize)
	_, err = io.ReadFull(a, ack)
	require.NoError(t, err)
	assert.Equal(t, Ack, string(trimNUL(ack)))
	assert.Len(t, ack, AckSize)
	assert.Equal(t, "SEARCH:Egg\n", <-got)
}

func TestReceiveEOF(t *testing.T) {
	a, b := tcpPair(t)
	receiver := NewCodec(b, WithReadTimeout(time.Second))

	require.NoError(t, a.Close())
	_, err := receiver.Receive()
	assert.ErrorIs(t, err, io.EOF)
	assert.NotErrorIs(t, err, ErrShortFrame)
}

func TestReceiveEOFBetweenFrames(t *testing.T) {
	a, b := tcpPair(t)
	sender := NewCodec(a, WithReadTimeout(time.Second))
	receiver := NewCodec(b, WithReadTimeout(time.Second))

	sent := make(chan error, 1)
	go func() {
		err := sender.Send(SearchMessage("Egg"))
		_ = a.Close()
		sent <- err
	}()

	msg, err := receiver.Receive()
	require.NoError(t, err)
	assert.Equal(t, SearchMessage("Egg"), msg)
	require.NoError(t, <-sent)

	_, err = receiver.Receive()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReceiveTimeoutKeepsConnection(t *testing.T) {
	a, b := pipe(t)
	receiver := NewCodec(b, WithReadTimeout(20*time.Millisecond))

	_, err := receiver.Receive()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeTimeout))

	sender := NewCodec(a, WithReadTimeout(time.Second))
	go func() { _ = sender.Send("COUNT:0") }()

	// The deadline is reset for each read, so a slow but steady peer is fine.
	receiver = NewCodec(b, WithReadTimeout(time.Second))
	msg, err := receiver.Receive()
	require.NoError(t, err)
	assert.Equal(t, "COUNT:0", msg)
}

func TestReceiveShortFrame(t *testing.T) {
	a, b := tcpPair(t)
	receiver := NewCodec(b, WithReadTimeout(time.Second))

	go func() {
		_, _ = a.Write([]byte("FOOD:partial"))
		a.Close()
	}()

	_, err := receiver.Receive()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShortFrame)
	assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeTransport))
}

func TestSendRejectsBadAck(t *testing.T) {
	a, b := pipe(t)
	sender := NewCodec(a, WithReadTimeout(time.Second))

	go func() {
		frame := make([]byte, FrameSize)
		_, _ = io.ReadFull(b, frame)
		nack := make([]byte, AckSize)
		copy(nack, "NAK")
		_, _ = b.Write(nack)
	}()

	err := sender.Send("COUNT:1")
	assert.ErrorIs(t, err, ErrNotAcknowledged)
}

func TestSendAckTimeout(t *testing.T) {
	a, b := pipe(t)
	sender := NewCodec(a, WithReadTimeout(20*time.Millisecond))

	go func() {
		frame := make([]byte, FrameSize)
		_, _ = io.ReadFull(b, frame)
	}()

	err := sender.Send("COUNT:1")
	assert.ErrorIs(t, err, ErrNotAcknowledged)
}

func TestSendMessageTooLarge(t *testing.T) {
	a, _ := pipe(t)
	sender := NewCodec(a)

	err := sender.Send(strings.Repeat("x", FrameSize))
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestSendClosedPeer(t *testing.T) {
	a, b := pipe(t)
	require.NoError(t, b.Close())

	err := NewCodec(a).Send("COUNT:1")
	assert.ErrorIs(t, err, ErrWriteFailed)
}
