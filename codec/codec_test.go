package codec_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"pkg.world.dev/scrim/codec"
)

type wirePacket struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func TestRoundtrip(t *testing.T) {
	bz, err := codec.Encode(wirePacket{ID: "alpha", Count: 3})
	assert.NilError(t, err)

	got, err := codec.Decode[wirePacket](bz)
	assert.NilError(t, err)
	assert.Equal(t, got, wirePacket{ID: "alpha", Count: 3})
}

func TestDecodeRejectsMalformedPayload(t *testing.T) {
	_, err := codec.Decode[wirePacket]([]byte("{broken"))
	assert.Assert(t, err != nil)
}

func BenchmarkDecode(b *testing.B) {
	data := []byte(`{"id": "alpha", "count": 3}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := codec.Decode[wirePacket](data); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEncode(b *testing.B) {
	packet := wirePacket{ID: "alpha", Count: 3}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := codec.Encode(packet); err != nil {
			b.Fatal(err)
		}
	}
}
