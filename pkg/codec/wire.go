package codec

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Format selects the wire encoding.
type Format string

const (
	MsgPack Format = "msgpack"
	JSON    Format = "json"
)

// ParseFormat maps a config string to a Format. Empty means MsgPack.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", MsgPack:
		return MsgPack, nil
	case JSON:
		return JSON, nil
	default:
		return "", fmt.Errorf("codec: unknown format %q", s)
	}
}

// Marshal encodes v in the given format.
func Marshal(v any, f Format) ([]byte, error) {
	switch f {
	case "", MsgPack:
		return msgpack.Marshal(v)
	case JSON:
		return json.Marshal(v)
	default:
		return nil, fmt.Errorf("codec: unknown format %q", f)
	}
}

// Unmarshal decodes data in the given format into v.
func Unmarshal(data []byte, f Format, v any) error {
	switch f {
	case "", MsgPack:
		return msgpack.Unmarshal(data, v)
	case JSON:
		return json.Unmarshal(data, v)
	default:
		return fmt.Errorf("codec: unknown format %q", f)
	}
}
