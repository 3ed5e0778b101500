package multiplex

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		in   Frame
		want Frame
		len  int
	}{
		{
			in:   Frame{Type: Subscribe, ChannelID: "1$0", ChannelName: "ann"},
			want: Frame{Type: Subscribe, ChannelID: "1$0", ChannelName: "ann"},
			len:  3,
		},
		{
			in:   Frame{Type: Unsubscribe, ChannelID: "1$0", ChannelName: "ann", Payload: "ignored"},
			want: Frame{Type: Unsubscribe, ChannelID: "1$0", ChannelName: "ann"},
			len:  3,
		},
		{
			in:   Frame{Type: Message, ChannelID: "7", ChannelName: "bob", Payload: map[string]interface{}{"x": 1}},
			want: Frame{Type: Message, ChannelID: "7", ChannelName: "bob", Payload: map[string]interface{}{"x": 1}},
			len:  4,
		},
		{
			in:   Frame{Type: Message, ChannelID: "7", ChannelName: "bob"},
			want: Frame{Type: Message, ChannelID: "7", ChannelName: "bob"},
			len:  3,
		},
	}
	for _, test := range tests {
		packet := test.in.Packet()
		require.Len(t, packet, test.len)
		f, ok := Decode(packet)
		require.True(t, ok, "%v", packet)
		assert.Equal(t, test.want, f)
		assert.NotEmpty(t, f.String())
	}
}

func TestEncodeWireLayout(t *testing.T) {
	assert.Equal(t, []interface{}{3, "42", "ann"}, Encode(Subscribe, "42", "ann", nil))
	assert.Equal(t, []interface{}{4, "42", "ann"}, Encode(Unsubscribe, "42", "ann", "x"))
	assert.Equal(t, []interface{}{2, "42", "ann", "x"}, Encode(Message, "42", "ann", "x"))

	b, err := json.Marshal(Encode(Message, "42", "ann", map[string]int{"x": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `[2,"42","ann",{"x":1}]`, string(b))
}

func TestDecodeJSON(t *testing.T) {
	var raw interface{}
	require.NoError(t, json.Unmarshal([]byte(`[2,"42","bob",{"x":1}]`), &raw))
	f, ok := Decode(raw)
	require.True(t, ok)
	assert.Equal(t, Message, f.Type)
	assert.Equal(t, "42", f.ChannelID)
	assert.Equal(t, "bob", f.ChannelName)
	assert.Equal(t, map[string]interface{}{"x": float64(1)}, f.Payload)

	require.NoError(t, json.Unmarshal([]byte(`[3,42,"bob"]`), &raw))
	f, ok = Decode(raw)
	require.True(t, ok)
	assert.Equal(t, "42", f.ChannelID)
}

func TestDecodeNumericCodes(t *testing.T) {
	for _, code := range []interface{}{uint64(2), int64(2), float64(2), uint8(2), int32(2), Message} {
		f, ok := Decode([]interface{}{code, "a", "b", "p"})
		require.True(t, ok, "%T", code)
		assert.Equal(t, Message, f.Type)
	}
}

func TestDecodeNotAFrame(t *testing.T) {
	tests := []interface{}{
		nil,
		"hello",
		42,
		map[string]interface{}{"type": 2},
		[]byte{2, 1, 1},
		[]interface{}{},
		[]interface{}{2, "a"},
		[]interface{}{2, "a", "b", "c", "d"},
		[]interface{}{1, "a", "b"},
		[]interface{}{5, "a", "b"},
		[]interface{}{"2", "a", "b"},
		[]interface{}{2.5, "a", "b"},
		[]interface{}{uint64(258), "a", "b"},
		[]interface{}{float64(-254), "a", "b"},
		[]interface{}{2, map[string]interface{}{}, "b"},
		[]interface{}{2, "a", nil},
		[]string{"2", "a", "b"},
	}
	for _, raw := range tests {
		_, ok := Decode(raw)
		assert.False(t, ok, "%#v", raw)
	}
}

func TestDecodeTypedSlice(t *testing.T) {
	f, ok := Decode([3]interface{}{3, "a", "b"})
	require.True(t, ok)
	assert.Equal(t, Subscribe, f.Type)

	f, ok = Decode([]int{4, 10, 11})
	require.True(t, ok)
	assert.Equal(t, Frame{Type: Unsubscribe, ChannelID: "10", ChannelName: "11"}, f)
}

func TestDecodeLeavesRawUntouched(t *testing.T) {
	raw := []interface{}{2, "a", "b", "payload"}
	_, ok := Decode(raw)
	require.True(t, ok)
	assert.Equal(t, []interface{}{2, "a", "b", "payload"}, raw)
}

func TestPacketTypeString(t *testing.T) {
	assert.Equal(t, "MESSAGE", Message.String())
	assert.Equal(t, "SUBSCRIBE", Subscribe.String())
	assert.Equal(t, "UNSUBSCRIBE", Unsubscribe.String())
	assert.Equal(t, "PacketType(9)", PacketType(9).String())
}
