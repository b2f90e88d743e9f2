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

package server

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// session is one accepted connection waiting for or owned by a worker.
type session struct {
	id       string
	conn     net.Conn
	remote   string
	accepted time.Time

	closeOnce sync.Once
}

func newSession(conn net.Conn) *session {
	return &session{
		id:       uuid.New().String(),
		conn:     conn,
		remote:   conn.RemoteAddr().String(),
		accepted: time.Now(),
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
	})
}

// deadlineListener is a listener whose Accept can be bounded in time.
type deadlineListener interface {
	net.Listener
	SetDeadline(t time.Time) error
}

// accept runs the acceptor until ctx is canceled. Accept is polled with a
// bounded deadline so shutdown is observed even when no client connects.
func (s *Server) accept(ctx context.Context) error {
	ln, err := s.listen(ctx)
	if err != nil {
		// only returned once ctx is done
		return nil
	}
	defer func() {
		_ = ln.Close()
	}()

	// unblock a pending Accept as soon as shutdown starts
	stopClose := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stopClose()

	s.setBound(ln.Addr())
	notifyReady(s.logger)
	defer notifyStopping(s.logger)
	s.logger.Info("listening", "address", ln.Addr().String())

	for ctx.Err() == nil {
		if err := ln.SetDeadline(time.Now().Add(s.config.AcceptTimeout)); err != nil {
			s.logger.Warn("failed to set accept deadline", "error", err)
		}

		conn, err := ln.Accept()
		if err != nil {
			switch {
			case ctx.Err() != nil || errors.Is(err, net.ErrClosed):
				return nil
			case errors.Is(err, os.ErrDeadlineExceeded):
				continue
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		s.admit(ctx, newSession(conn))
	}
	return nil
}

// listen binds the catalog listener, retrying every BindRetryDelay until it
// succeeds or ctx ends.
func (s *Server) listen(ctx context.Context) (deadlineListener, error) {
	var lc net.ListenConfig
	addr := s.config.ListenAddress()
	limiter := rate.NewLimiter(rate.Every(s.config.BindRetryDelay), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		ln, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			bindFailures.Inc()
			s.logger.Warn("bind failed, retrying",
				"address", addr,
				"retryIn", s.config.BindRetryDelay,
				"error", err)
			continue
		}

		dl, ok := ln.(deadlineListener)
		if !ok {
			_ = ln.Close()
			s.logger.Error("listener does not support deadlines", "address", addr)
			continue
		}
		return dl, nil
	}
}

// admit queues sess for a worker. When no slot frees up within the queue
// timeout the connection is closed so a saturated pool sheds load instead
// of stalling the acceptor.
func (s *Server) admit(ctx context.Context, sess *session) {
	connectionsAccepted.Inc()
	s.logger.Debug("connection accepted", "connection", sess.id, "remote", sess.remote)

	if err := s.conns.Enqueue(ctx, sess, s.config.QueueTimeout); err != nil {
		connectionsDropped.Inc()
		s.logger.Warn("connection dropped, no free queue slot",
			"connection", sess.id,
			"remote", sess.remote,
			"queueCapacity", s.conns.Cap(),
			"error", err)
		sess.close()
		return
	}
	queueDepth.Set(float64(s.conns.Len()))
}
