package format

import (
	"encoding/json"
	"fmt"
	"io"
)

// Envelope is the shape of every successful CLI response
type Envelope struct {
	Data any `json:"data"`
}

// Write writes v wrapped in an Envelope as JSON
func Write(w io.Writer, v any, pretty bool) error {
	return WriteJSON(w, Envelope{Data: v}, pretty)
}

// WriteJSON writes strict JSON output followed by a newline.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}
