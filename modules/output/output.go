// Package output renders packaged stack items and the assembled script in
// the formats downstream tooling consumes: an indexed line per item, a JSON
// array of hex strings, and the script as one hex line.
package output

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"CheckZKPScript/modules/script"
)

// WriteItemLines writes one line per stack item as <index>:<hex>.
func WriteItemLines(w io.Writer, items []script.StackItem) error {
	for i, item := range items {
		if _, err := fmt.Fprintf(w, "%d:%s\n", i, hex.EncodeToString(item)); err != nil {
			return err
		}
	}
	return nil
}

// WriteItemsJSON writes the items as one JSON array of hex strings, in the
// same order as the line format.
func WriteItemsJSON(w io.Writer, items []script.StackItem) error {
	hexed := make([]string, len(items))
	for i, item := range items {
		hexed[i] = hex.EncodeToString(item)
	}
	return json.NewEncoder(w).Encode(hexed)
}

// WriteScriptHex writes the assembled script bytes as a single hex line.
func WriteScriptHex(w io.Writer, prog []byte) error {
	_, err := fmt.Fprintf(w, "%s\n", hex.EncodeToString(prog))
	return err
}
