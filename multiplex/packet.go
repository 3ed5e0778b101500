package multiplex

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// PacketType is the leading element of every multiplex frame.
type PacketType uint8

const (
	Message     PacketType = 2
	Subscribe   PacketType = 3
	Unsubscribe PacketType = 4
)

func (t PacketType) String() string {
	switch t {
	case Message:
		return "MESSAGE"
	case Subscribe:
		return "SUBSCRIBE"
	case Unsubscribe:
		return "UNSUBSCRIBE"
	default:
		return fmt.Sprintf("PacketType(%d)", uint8(t))
	}
}

// Frame is a decoded multiplex frame. Payload is only meaningful for
// Message frames.
type Frame struct {
	Type        PacketType
	ChannelID   string
	ChannelName string
	Payload     interface{}
}

func (f Frame) String() string {
	if f.Type == Message {
		return fmt.Sprintf("{%s ChannelID:%s ChannelName:%s Payload: ... }", f.Type, f.ChannelID, f.ChannelName)
	}
	return fmt.Sprintf("{%s ChannelID:%s ChannelName:%s}", f.Type, f.ChannelID, f.ChannelName)
}

// Packet returns the wire form of f.
func (f Frame) Packet() []interface{} {
	return Encode(f.Type, f.ChannelID, f.ChannelName, f.Payload)
}

// Encode returns the wire form [type, id, name, payload]. The payload
// element is only present for Message frames with a non-nil payload.
func Encode(t PacketType, id, name string, payload interface{}) []interface{} {
	if t == Message && payload != nil {
		return []interface{}{int(t), id, name, payload}
	}
	return []interface{}{int(t), id, name}
}

// Decode reports whether raw is a multiplex frame and returns it if so.
// A frame is a sequence of three or four elements whose first element is a
// known packet type and whose id and name are strings or numbers. Anything
// else is host traffic and is left untouched.
func Decode(raw interface{}) (Frame, bool) {
	elems, ok := sequence(raw)
	if !ok || len(elems) < 3 || len(elems) > 4 {
		return Frame{}, false
	}
	t, ok := packetType(elems[0])
	if !ok {
		return Frame{}, false
	}
	id, ok := token(elems[1])
	if !ok {
		return Frame{}, false
	}
	name, ok := token(elems[2])
	if !ok {
		return Frame{}, false
	}
	f := Frame{Type: t, ChannelID: id, ChannelName: name}
	if t == Message && len(elems) == 4 {
		f.Payload = elems[3]
	}
	return f, true
}

func sequence(raw interface{}) ([]interface{}, bool) {
	switch v := raw.(type) {
	case []interface{}:
		return v, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	// []byte is an opaque payload, not a sequence of elements.
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	elems := make([]interface{}, rv.Len())
	for i := range elems {
		elems[i] = rv.Index(i).Interface()
	}
	return elems, true
}

func packetType(v interface{}) (PacketType, bool) {
	var n int64
	switch c := v.(type) {
	case PacketType:
		n = int64(c)
	case int:
		n = int64(c)
	case int8:
		n = int64(c)
	case int16:
		n = int64(c)
	case int32:
		n = int64(c)
	case int64:
		n = c
	case uint:
		if uint64(c) > math.MaxInt32 {
			return 0, false
		}
		n = int64(c)
	case uint8:
		n = int64(c)
	case uint16:
		n = int64(c)
	case uint32:
		n = int64(c)
	case uint64:
		if c > math.MaxInt32 {
			return 0, false
		}
		n = int64(c)
	case float32:
		if float32(math.Trunc(float64(c))) != c || c > math.MaxInt32 || c < math.MinInt32 {
			return 0, false
		}
		n = int64(c)
	case float64:
		if math.Trunc(c) != c || c > math.MaxInt32 || c < math.MinInt32 {
			return 0, false
		}
		n = int64(c)
	default:
		return 0, false
	}
	switch n {
	case int64(Message), int64(Subscribe), int64(Unsubscribe):
		return PacketType(n), true
	}
	return 0, false
}

func token(v interface{}) (string, bool) {
	switch c := v.(type) {
	case string:
		return c, true
	case int:
		return strconv.Itoa(c), true
	case int64:
		return strconv.FormatInt(c, 10), true
	case uint64:
		return strconv.FormatUint(c, 10), true
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64), true
	}
	return "", false
}
