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
	"strconv"
	"strings"

	cerrors "github.com/calory-counter/catalog/pkg/errors"
	"github.com/calory-counter/catalog/pkg/food"
)

// Message prefixes. Dispatch is case-sensitive.
const (
	PrefixSearch = "SEARCH:"
	PrefixFood   = "FOOD:"
	PrefixCount  = "COUNT:"
)

// Kind identifies a message by its prefix.
type Kind int

const (
	// KindUnknown is any message without a known prefix.
	KindUnknown Kind = iota
	// KindSearch asks for every record whose name matches the payload.
	KindSearch
	// KindFood carries one serialized record.
	KindFood
	// KindCount announces how many FOOD frames follow a search reply.
	KindCount
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindSearch:
		return "search"
	case KindFood:
		return "food"
	case KindCount:
		return "count"
	default:
		return "unknown"
	}
}

// Message is a received frame split into its kind and payload.
type Message struct {
	Kind    Kind
	Payload string
	Raw     string
}

// Parse classifies raw by prefix.
func Parse(raw string) Message {
	for _, p := range []struct {
		prefix string
		kind   Kind
	}{
		{PrefixSearch, KindSearch},
		{PrefixFood, KindFood},
		{PrefixCount, KindCount},
	} {
		if payload, ok := strings.CutPrefix(raw, p.prefix); ok {
			return Message{Kind: p.kind, Payload: payload, Raw: raw}
		}
	}
	return Message{Kind: KindUnknown, Raw: raw}
}

// Query returns the search text without the line terminator the client sends.
func (m Message) Query() string {
	q := strings.TrimSuffix(m.Payload, "\n")
	return strings.TrimSuffix(q, "\r")
}

// Food decodes the payload of a FOOD message.
func (m Message) Food() (food.Food, error) {
	if m.Kind != KindFood {
		return food.Food{}, unexpected(m, KindFood)
	}
	return food.Deserialize(m.Payload)
}

// Count decodes the payload of a COUNT message.
func (m Message) Count() (int, error) {
	if m.Kind != KindCount {
		return 0, unexpected(m, KindCount)
	}
	n, err := strconv.Atoi(strings.TrimSpace(m.Payload))
	if err != nil {
		return 0, cerrors.Wrap(cerrors.ErrCodeProtocol, "invalid count", err)
	}
	if n < 0 {
		return 0, cerrors.NewWithContext(cerrors.ErrCodeProtocol, "negative count",
			map[string]any{"count": n})
	}
	return n, nil
}

func unexpected(m Message, want Kind) error {
	return cerrors.NewWithContext(cerrors.ErrCodeProtocol, "unexpected message",
		map[string]any{"want": want.String(), "got": m.Kind.String(), "frame": Preview(m.Raw)})
}

// Preview shortens a raw frame for log output.
func Preview(s string) string {
	const limit = 64
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// SearchMessage builds a SEARCH message. The query is newline terminated
// like the line the interactive client reads from its user.
func SearchMessage(query string) string {
	return PrefixSearch + query + "\n"
}

// FoodMessage builds a FOOD message.
func FoodMessage(f food.Food) string {
	return PrefixFood + f.Serialize()
}

// CountMessage builds a COUNT message.
func CountMessage(n int) string {
	return PrefixCount + strconv.Itoa(n)
}
