// Package codec provides the value codecs a host connection uses to put
// payloads on its transport.
package codec

import (
	"fmt"
	"io"
	"strings"
)

type Encoder interface {
	// Encode writes an encoding of v to its Writer.
	Encode(v interface{}) error
}

type Decoder interface {
	// Decode reads the next encoded value from its Reader and stores it in the value pointed to by v.
	Decode(v interface{}) error
}

// Codec returns an Encoder or Decoder given a Writer or Reader.
type Codec interface {
	Encoder(w io.Writer) Encoder
	Decoder(r io.Reader) Decoder
}

// ByName returns the codec registered under name ("json" or "cbor").
// A "+frame" suffix wraps the codec in a FrameCodec, for example "cbor+frame".
func ByName(name string) (Codec, error) {
	base, framed := strings.CutSuffix(strings.ToLower(name), "+frame")
	var c Codec
	switch base {
	case "", "json":
		c = JSONCodec{}
	case "cbor":
		c = CBORCodec{}
	default:
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
	if framed {
		return &FrameCodec{Codec: c}, nil
	}
	return c, nil
}
