package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize bounds the length prefix accepted by a FrameCodec decoder.
const MaxFrameSize = 1 << 24

// FrameCodec wraps another codec so that every encoded value is written
// with a four byte big endian length prefix. It is useful on stream
// transports where the wrapped codec is not self-delimiting.
type FrameCodec struct {
	Codec
}

func (c *FrameCodec) Encoder(w io.Writer) Encoder {
	return &frameEncoder{
		w: w,
		c: c.Codec,
	}
}

type frameEncoder struct {
	w io.Writer
	c Codec
}

func (e *frameEncoder) Encode(v interface{}) error {
	var buf bytes.Buffer
	if err := e.c.Encoder(&buf).Encode(v); err != nil {
		return err
	}
	b := buf.Bytes()
	prefix := make([]byte, 4)
	binary.BigEndian.PutUint32(prefix, uint32(len(b)))
	_, err := e.w.Write(append(prefix, b...))
	return err
}

func (c *FrameCodec) Decoder(r io.Reader) Decoder {
	return &frameDecoder{
		r: r,
		c: c.Codec,
	}
}

type frameDecoder struct {
	r io.Reader
	c Codec
}

func (d *frameDecoder) Decode(v interface{}) error {
	prefix := make([]byte, 4)
	if _, err := io.ReadFull(d.r, prefix); err != nil {
		return err
	}
	size := binary.BigEndian.Uint32(prefix)
	if size > MaxFrameSize {
		return fmt.Errorf("codec: frame of %d bytes exceeds limit", size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return err
	}
	return d.c.Decoder(bytes.NewBuffer(buf)).Decode(v)
}
