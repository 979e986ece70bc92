package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a backend identifier. The backend sends numeric ids, but the client treats
// them as opaque strings.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", b, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// idValue turns an opaque id back into a JSON value, numeric when it looks like one,
// so the backend receives the same shape it handed out.
func idValue(id string) any {
	var n json.Number
	if err := json.Unmarshal([]byte(id), &n); err == nil && n.String() == id {
		return n
	}
	return id
}
