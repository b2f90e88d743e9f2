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

// Package serializer writes and reads structured data as JSON, YAML or
// text tables.
//
// # Writing
//
//	w := serializer.NewStdoutWriter(serializer.FormatTable)
//	defer w.Close()
//	if err := w.Serialize(ctx, results); err != nil {
//	    return err
//	}
//
// Values implementing Tabular render as a column table. Any other value is
// flattened to sorted FIELD/VALUE pairs in table format.
//
// # Reading
//
// FromFile picks JSON or YAML from the file extension:
//
//	records, err := serializer.FromFile[[]food.Food]("records.yaml")
//
// Table format is write-only.
//
// # HTTP
//
//	serializer.RespondJSON(w, http.StatusOK, resp)
//
// RespondJSON encodes into a buffer first so an encoding failure never
// leaves a partial response.
package serializer
