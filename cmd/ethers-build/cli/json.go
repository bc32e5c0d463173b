// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"io"
)

// JSONOutput adds a --json flag to a command's params. Commands that
// embed it emit their result with [JSONOutput.EmitJSON] before falling
// back to rendered text:
//
//	if done, err := params.EmitJSON(options.Stdout, result); done {
//	    return err
//	}
//
// Result types initialize their list fields so empty lists encode as
// [] rather than null.
type JSONOutput struct {
	OutputJSON bool `json:"-" flag:"json" desc:"output as JSON"`
}

// EmitJSON writes result to w when --json is set and reports whether
// it did. The error is the write error, if any.
func (j *JSONOutput) EmitJSON(w io.Writer, result any) (bool, error) {
	if !j.OutputJSON {
		return false, nil
	}
	return true, WriteJSON(w, result)
}

// WriteJSON writes value as two-space indented JSON followed by a
// newline. HTML characters in filenames are written literally.
func WriteJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
