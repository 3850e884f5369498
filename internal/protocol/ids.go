package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

var ErrBadID = errors.New("id must be a json string or number")

// ID is a server-issued identifier. The server is not consistent about
// quoting ids ("7" on push events, 7 in snapshots), so ID accepts both and
// writes numeric ids back as numbers.
type ID string

func IntID(n int) ID { return ID(strconv.Itoa(n)) }

func (id ID) String() string { return string(id) }

func (id ID) IsZero() bool { return id == "" }

// Int returns the numeric form of the id, if it has one.
func (id ID) Int() (int, bool) {
	n, err := strconv.Atoi(string(id))
	if err != nil {
		return 0, false
	}
	return n, true
}

// MarshalJSON writes canonical decimal ids as numbers. Anything else, such
// as "007" or "+7", stays a string so it round-trips unchanged.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, ok := id.Int(); ok && strconv.Itoa(n) == string(id) {
		return []byte(string(id)), nil
	}
	return json.Marshal(string(id))
}

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
		return ErrBadID
	}
	*id = ID(n.String())
	return nil
}

// Ptr is a convenience for optional ids in request bodies.
func (id ID) Ptr() *ID { return &id }
