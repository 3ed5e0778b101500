package codec

import (
	"encoding/json"
	"io"
)

// JSONCodec encodes one JSON value per Encode call. Decoded numbers are
// float64 and arrays are []interface{}.
type JSONCodec struct{}

func (c JSONCodec) Encoder(w io.Writer) Encoder {
	return json.NewEncoder(w)
}

func (c JSONCodec) Decoder(r io.Reader) Decoder {
	return json.NewDecoder(r)
}
