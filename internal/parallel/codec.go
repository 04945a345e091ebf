package parallel

import (
	"bytes"
	"encoding/gob"
)

// Task and result values travel as gob inside the JSON envelope. gob keeps
// strings byte-exact, where encoding/json would replace invalid UTF-8.

func encodeValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeValue(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
