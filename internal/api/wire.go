package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ID is an identifier the backend sends either as a number or a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// days reads a delivery time given as 3, "3" or "3 dias". Text without a
// number ("Imediata") reads as 0.
type days int

func (d *days) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		fields := strings.Fields(s)
		if len(fields) == 0 {
			*d = 0
			return nil
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			*d = 0
			return nil
		}
		*d = days(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*d = days(int(f))
	return nil
}

// present reports whether a raw JSON value carries something other than
// null, false, "" or an empty object.
func present(raw json.RawMessage) bool {
	v := string(bytes.TrimSpace(raw))
	switch v {
	case "", "null", "false", `""`, "{}", "[]", "0":
		return false
	}
	return true
}
