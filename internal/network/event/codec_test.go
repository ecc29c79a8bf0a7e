package event

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/land-relay-go/internal/network"
	"github.com/lk2023060901/land-relay-go/internal/network/serializer"
	"github.com/lk2023060901/land-relay-go/pkg/util/merr"
)

type CodecSuite struct {
	suite.Suite
	codec *Codec
}

func (s *CodecSuite) TestDecode() {
	ev, err := s.codec.Decode([]byte(`{"name":"Identify","dat":{"username":"a","identity":"tok1"}}`), 7)
	s.Require().NoError(err)
	s.Equal(ConnID(7), ev.ID)
	s.Equal(Identify, ev.Name)

	var payload struct {
		Username string `json:"username"`
		Identity string `json:"identity"`
	}
	s.Require().NoError(ev.Decode(&payload))
	s.Equal("a", payload.Username)
	s.Equal("tok1", payload.Identity)
}

func (s *CodecSuite) TestDecodeIgnoresInboundID() {
	ev, err := s.codec.Decode([]byte(`{"id":99,"name":"Message","dat":"hi"}`), 3)
	s.Require().NoError(err)
	s.Equal(ConnID(3), ev.ID)
}

func (s *CodecSuite) TestDecodeMissingDat() {
	ev, err := s.codec.Decode([]byte(`{"name":"Close"}`), 1)
	s.Require().NoError(err)
	s.Equal(Close, ev.Name)
	s.Equal("null", string(ev.Dat))
}

func (s *CodecSuite) TestDecodeUnknownName() {
	ev, err := s.codec.Decode([]byte(`{"name":"Move","dat":[1,2]}`), 1)
	s.Require().NoError(err)
	s.Equal(Name("Move"), ev.Name)
	s.False(ev.Name.Known())
}

func (s *CodecSuite) TestDecodeMalformed() {
	cases := []string{
		`not json`,
		`[1,2,3]`,
		`null`,
		`{"dat":"hi"}`,
		`{"name":null,"dat":1}`,
		`{"name":5,"dat":1}`,
		`{"name":"Message","dat":`,
	}
	for _, c := range cases {
		_, err := s.codec.Decode([]byte(c), 4)
		s.Error(err, c)
		s.ErrorIs(err, merr.ErrProtocolMalformed, c)
		s.Equal(network.StageDecode, network.StageOf(err), c)
	}
}

func (s *CodecSuite) TestEncode() {
	data, err := s.codec.Encode(Must(0, Message, "hello, 1!"))
	s.Require().NoError(err)
	s.JSONEq(`{"id":0,"name":"Message","dat":"hello, 1!"}`, string(data))

	data, err = s.codec.Encode(Event{ID: 5, Name: Abort})
	s.Require().NoError(err)
	s.JSONEq(`{"id":5,"name":"Abort","dat":null}`, string(data))
}

func (s *CodecSuite) TestRoundTrip() {
	frames := []string{
		`{"name":"Message","dat":"hi"}`,
		`{"name":"Identify","dat":{"identity":"tok1","username":"bob"}}`,
		`{"name":"Move","dat":[1,{"x":2}]}`,
		`{"name":"Close","dat":null}`,
	}
	for _, frame := range frames {
		ev, err := s.codec.Decode([]byte(frame), 9)
		s.Require().NoError(err)
		out, err := s.codec.Encode(ev)
		s.Require().NoError(err)

		back, err := s.codec.Decode(out, 1)
		s.Require().NoError(err)
		s.Equal(ev.Name, back.Name)
		s.JSONEq(string(ev.Dat), string(back.Dat))
	}
}

func (s *CodecSuite) TestMalformedEvent() {
	data, err := s.codec.Encode(Malformed(3))
	s.Require().NoError(err)
	s.JSONEq(`{"id":3,"name":"Error","dat":"malformed message"}`, string(data))
}

func TestSonicCodec(t *testing.T) {
	suite.Run(t, &CodecSuite{codec: NewCodec(nil)})
}

func TestJSONIterCodec(t *testing.T) {
	suite.Run(t, &CodecSuite{codec: NewCodec(serializer.JSONIterSerializer{})})
}

func TestEncodeUnserializable(t *testing.T) {
	_, err := New(1, Message, make(chan int))
	assert.Error(t, err)

	_, err = NewCodec(nil).Encode(Event{ID: 1, Name: Message, Dat: []byte("{broken")})
	assert.ErrorIs(t, err, merr.ErrSerializationFailed)
	assert.True(t, errors.Is(err, network.ErrEncodeFailed))
}

func TestDelivery(t *testing.T) {
	assert.True(t, Event{ID: Broadcast}.DeliverTo(4))
	assert.True(t, Event{ID: 4}.DeliverTo(4))
	assert.False(t, Event{ID: 5}.DeliverTo(4))
	assert.True(t, Event{ID: Broadcast}.IsBroadcast())

	for _, n := range []Name{Identify, Message, Abort, Close, Error} {
		assert.True(t, n.Known())
	}
}

func TestDisconnected(t *testing.T) {
	ev := Disconnected(4)
	assert.Equal(t, ConnID(4), ev.ID)
	assert.Equal(t, Close, ev.Name)
	assert.True(t, ev.IsDisconnect())

	decoded, err := NewCodec(nil).Decode([]byte(`{"name":"Close"}`), 4)
	assert.NoError(t, err)
	assert.False(t, decoded.IsDisconnect())
	assert.False(t, Must(4, Close, nil).IsDisconnect())
}
