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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/calory-counter/catalog/pkg/errors"
	"github.com/calory-counter/catalog/pkg/food"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		kind    Kind
		payload string
	}{
		{name: "search", raw: "SEARCH:Milk\n", kind: KindSearch, payload: "Milk\n"},
		{name: "food", raw: "FOOD:Egg,large,50,75,5,1,6", kind: KindFood, payload: "Egg,large,50,75,5,1,6"},
		{name: "count", raw: "COUNT:12", kind: KindCount, payload: "12"},
		{name: "empty search", raw: "SEARCH:", kind: KindSearch, payload: ""},
		{name: "lowercase prefix", raw: "search:Milk", kind: KindUnknown},
		{name: "bogus", raw: "BOGUS:xyz", kind: KindUnknown},
		{name: "empty", raw: "", kind: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Parse(tt.raw)
			assert.Equal(t, tt.kind, m.Kind)
			assert.Equal(t, tt.payload, m.Payload)
			assert.Equal(t, tt.raw, m.Raw)
		})
	}
}

func TestMessageQuery(t *testing.T) {
	assert.Equal(t, "Milk", Parse(SearchMessage("Milk")).Query())
	assert.Equal(t, "Milk,", Parse("SEARCH:Milk,\r\n").Query())
	assert.Equal(t, "Milk", Parse("SEARCH:Milk").Query())
}

func TestMessageCount(t *testing.T) {
	n, err := Parse(CountMessage(7)).Count()
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	for _, raw := range []string{"COUNT:seven", "COUNT:-1", "FOOD:x"} {
		_, err := Parse(raw).Count()
		require.Error(t, err, raw)
		assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeProtocol), raw)
	}
}

func TestMessageFood(t *testing.T) {
	want := food.Food{Name: "Milk,Whole,3.3% Fat", Measure: "1 cup", Weight: 244, Kcal: 150, Fat: 8, Carbo: 11, Protein: 8}
	got, err := Parse(FoodMessage(want)).Food()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = Parse("COUNT:1").Food()
	assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeProtocol))

	_, err = Parse("FOOD:garbage").Food()
	assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeInvalidRequest))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))
	long := strings.Repeat("a", 100)
	assert.Len(t, Preview(long), 67)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "search", KindSearch.String())
	assert.Equal(t, "food", KindFood.String())
	assert.Equal(t, "count", KindCount.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
