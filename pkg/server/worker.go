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
	"io"
	"log/slog"
	"time"

	"github.com/calory-counter/catalog/pkg/protocol"
)

// work is one pool worker. It serves queued connections one at a time
// until ctx is canceled.
func (s *Server) work(ctx context.Context, id int) error {
	logger := s.logger.With("worker", id)
	logger.Debug("worker started")

	for ctx.Err() == nil {
		sess, err := s.conns.Dequeue(ctx, s.config.QueueTimeout)
		if err != nil {
			// timeout or shutdown, the loop condition decides
			continue
		}
		queueDepth.Set(float64(s.conns.Len()))

		s.serve(ctx, sess, logger)
	}

	logger.Debug("worker stopped")
	return nil
}

// serve handles frames from one connection until the peer hangs up, the
// transport fails or the server shuts down. The connection is always closed
// on return.
func (s *Server) serve(ctx context.Context, sess *session, logger *slog.Logger) {
	defer sess.close()

	activeWorkers.Inc()
	defer activeWorkers.Dec()

	logger = logger.With("connection", sess.id, "remote", sess.remote)
	logger.Info("serving connection", "queued", time.Since(sess.accepted).String())

	// wake a blocked read so shutdown does not wait a full read timeout. If
	// the codec re-arms its deadline just after this fires, the read still
	// ends within ReadTimeout and the loop sees ctx done.
	stopWake := context.AfterFunc(ctx, func() {
		_ = sess.conn.SetReadDeadline(time.Now())
	})
	defer stopWake()

	codec := protocol.NewCodec(sess.conn,
		protocol.WithReadTimeout(s.config.ReadTimeout),
		protocol.WithWriteTimeout(s.config.WriteTimeout))

	for ctx.Err() == nil {
		raw, err := codec.Receive()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			logger.Info("connection closed by peer")
			return
		case errors.Is(err, protocol.ErrTimeout):
			continue
		default:
			logger.Warn("connection failed", "error", err)
			return
		}

		if !s.dispatch(codec, protocol.Parse(raw), logger) {
			return
		}
	}
}

// dispatch handles one message. It returns false when the connection can
// no longer be used.
func (s *Server) dispatch(codec *protocol.Codec, msg protocol.Message, logger *slog.Logger) bool {
	framesReceived.WithLabelValues(msg.Kind.String()).Inc()

	switch msg.Kind {
	case protocol.KindSearch:
		return s.search(codec, msg.Query(), logger)

	case protocol.KindFood:
		record, err := msg.Food()
		if err != nil {
			protocolErrors.WithLabelValues(msg.Kind.String()).Inc()
			logger.Warn("malformed food record",
				"frame", protocol.Preview(msg.Raw),
				"error", err)
			return true
		}
		s.catalog.Append(record)
		appendsTotal.Inc()
		logger.Info("record added", "name", record.Name)
		return true

	default:
		protocolErrors.WithLabelValues(msg.Kind.String()).Inc()
		logger.Warn("unexpected message",
			"kind", msg.Kind.String(),
			"frame", protocol.Preview(msg.Raw))
		return true
	}
}

// search answers a SEARCH message with a COUNT frame followed by one FOOD
// frame per match. Any failed send ends the connection.
func (s *Server) search(codec *protocol.Codec, query string, logger *slog.Logger) bool {
	start := time.Now()
	results := s.catalog.Search(query)
	searchDuration.Observe(time.Since(start).Seconds())
	searchesTotal.Inc()

	logger.Debug("search", "query", query, "results", len(results))

	if err := codec.SendCount(len(results)); err != nil {
		logger.Warn("failed to send result count", "error", err)
		return false
	}
	for i, record := range results {
		if err := codec.SendFood(record); err != nil {
			logger.Warn("failed to send search result",
				"index", i,
				"of", len(results),
				"error", err)
			return false
		}
	}
	return true
}
