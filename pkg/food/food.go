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

package food

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	cerrors "github.com/calory-counter/catalog/pkg/errors"
)

const (
	// Unset marks a nutrient value that was never provided.
	Unset = -1

	// MaxNameLength is the longest name a record may carry, in bytes.
	MaxNameLength = 1023

	// MaxMeasureLength is the longest measure a record may carry, in bytes.
	MaxMeasureLength = 255

	// fieldCount is the number of comma separated fields in a serialized record.
	fieldCount = 7

	separator = ","
)

// Food is a single catalog record. Records are values: once validated they
// are never modified, and identity is the serialized form.
type Food struct {
	Name    string `json:"name" yaml:"name"`
	Measure string `json:"measure" yaml:"measure"`
	Weight  int    `json:"weight" yaml:"weight"`
	Kcal    int    `json:"kcal" yaml:"kcal"`
	Fat     int    `json:"fat" yaml:"fat"`
	Carbo   int    `json:"carbo" yaml:"carbo"`
	Protein int    `json:"protein" yaml:"protein"`
}

// New returns a record with the given name and measure and every nutrient
// value unset.
func New(name, measure string) Food {
	return Food{
		Name:    name,
		Measure: measure,
		Weight:  Unset,
		Kcal:    Unset,
		Fat:     Unset,
		Carbo:   Unset,
		Protein: Unset,
	}
}

// Validate checks field bounds. The measure may not contain a comma because
// it is located from the end of the serialized line.
func (f Food) Validate() error {
	switch {
	case f.Name == "":
		return cerrors.New(cerrors.ErrCodeInvalidRequest, "name is empty")
	case len(f.Name) > MaxNameLength:
		return cerrors.NewWithContext(cerrors.ErrCodeInvalidRequest, "name too long",
			map[string]any{"length": len(f.Name), "max": MaxNameLength})
	case len(f.Measure) > MaxMeasureLength:
		return cerrors.NewWithContext(cerrors.ErrCodeInvalidRequest, "measure too long",
			map[string]any{"length": len(f.Measure), "max": MaxMeasureLength})
	case strings.Contains(f.Measure, separator):
		return cerrors.New(cerrors.ErrCodeInvalidRequest, "measure must not contain a comma")
	case strings.ContainsAny(f.Name+f.Measure, "\r\n\x00"):
		return cerrors.New(cerrors.ErrCodeInvalidRequest, "name and measure must be single line text")
	}

	for _, v := range []struct {
		field string
		value int
	}{
		{"weight", f.Weight},
		{"kcal", f.Kcal},
		{"fat", f.Fat},
		{"carbo", f.Carbo},
		{"protein", f.Protein},
	} {
		if v.value < Unset {
			return cerrors.NewWithContext(cerrors.ErrCodeInvalidRequest, "negative value",
				map[string]any{"field": v.field, "value": v.value})
		}
	}
	return nil
}

// Serialize renders the record as name,measure,weight,kcal,fat,carbo,protein.
func (f Food) Serialize() string {
	return fmt.Sprintf("%s,%s,%d,%d,%d,%d,%d",
		f.Name, f.Measure, f.Weight, f.Kcal, f.Fat, f.Carbo, f.Protein)
}

// Deserialize parses a serialized record. The five numbers and the measure
// are taken from the end of the line; every leading token belongs to the
// name, which may therefore contain commas.
func Deserialize(s string) (Food, error) {
	s = strings.TrimRight(s, "\r\n")
	tokens := strings.Split(s, separator)
	if len(tokens) < fieldCount {
		return Food{}, cerrors.NewWithContext(cerrors.ErrCodeInvalidRequest, "too few fields",
			map[string]any{"fields": len(tokens), "want": fieldCount})
	}

	n := len(tokens)
	var nums [5]int
	for i := range nums {
		tok := strings.TrimSpace(tokens[n-5+i])
		v, err := strconv.Atoi(tok)
		if err != nil {
			return Food{}, cerrors.WrapWithContext(cerrors.ErrCodeInvalidRequest, "invalid number",
				err, map[string]any{"token": tok})
		}
		nums[i] = v
	}

	f := Food{
		Name:    strings.Join(tokens[:n-6], separator),
		Measure: tokens[n-6],
		Weight:  nums[0],
		Kcal:    nums[1],
		Fat:     nums[2],
		Carbo:   nums[3],
		Protein: nums[4],
	}
	if err := f.Validate(); err != nil {
		return Food{}, err
	}
	return f, nil
}

// String renders the record for people.
func (f Food) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", f.Name)
	fmt.Fprintf(&b, " Measure: %s\n", f.Measure)
	fmt.Fprintf(&b, " Weight (g): %s\n", FormatValue(f.Weight))
	fmt.Fprintf(&b, " kCal: %s\n", FormatValue(f.Kcal))
	fmt.Fprintf(&b, " Fat (g): %s\n", FormatValue(f.Fat))
	fmt.Fprintf(&b, " Carbo (g): %s\n", FormatValue(f.Carbo))
	fmt.Fprintf(&b, " Protein (g): %s\n", FormatValue(f.Protein))
	return b.String()
}

// FormatValue renders a nutrient value, showing "n/a" when it is unset.
func FormatValue(v int) string {
	if v == Unset {
		return "n/a"
	}
	return strconv.Itoa(v)
}

// SortByName orders records in place by case-folded name. Names that fold
// equal keep raw byte order so the result is deterministic. Each name is
// folded once.
func SortByName(records []Food) {
	fold := cases.Fold()
	keyed := make([]foldedFood, len(records))
	for i, f := range records {
		keyed[i] = foldedFood{key: fold.String(f.Name), food: f}
	}

	slices.SortStableFunc(keyed, func(a, b foldedFood) int {
		if c := strings.Compare(a.key, b.key); c != 0 {
			return c
		}
		return strings.Compare(a.food.Name, b.food.Name)
	})

	for i, k := range keyed {
		records[i] = k.food
	}
}

type foldedFood struct {
	key  string
	food Food
}
