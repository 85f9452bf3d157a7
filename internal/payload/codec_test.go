package payload

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cavityproof/internal/ir"
)

func samplePayload() Payload {
	p := Payload{Day: 20000, ExpiresAt: 1_728_000_300}
	for i := range p.User {
		p.User[i] = byte(i)
	}
	for i := range p.SessionHash {
		p.SessionHash[i] = byte(0xA0 + i)
	}
	for i := range p.Nonce {
		p.Nonce[i] = byte(0xF0 - i)
	}
	return p
}

func TestEncodeLayout(t *testing.T) {
	p := samplePayload()
	b := Encode(p)

	require.Len(t, b, 100)
	assert.Equal(t, "CPv1", string(b[0:4]))
	assert.Equal(t, p.User[:], b[4:36])
	assert.Equal(t, uint64(20000), binary.LittleEndian.Uint64(b[36:44]))
	assert.Equal(t, p.SessionHash[:], b[44:76])
	assert.Equal(t, p.Nonce[:], b[76:92])
	assert.Equal(t, uint64(1_728_000_300), binary.LittleEndian.Uint64(b[92:100]))
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Payload)
	}{
		{"typical", func(*Payload) {}},
		{"zero values", func(p *Payload) { *p = Payload{} }},
		{"negative day", func(p *Payload) { p.Day = -1 }},
		{"extreme timestamps", func(p *Payload) { p.Day = math.MaxInt64; p.ExpiresAt = math.MinInt64 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := samplePayload()
			tt.mut(&p)

			got, err := Decode(p.Bytes())
			require.NoError(t, err)
			assert.Equal(t, p, got)
		})
	}
}

func TestEncodeIsInjectiveAcrossFields(t *testing.T) {
	base := samplePayload()
	variants := []Payload{base, base, base, base, base}
	variants[1].Day++
	variants[2].Nonce[0] ^= 1
	variants[3].ExpiresAt++
	variants[4].User = ir.Pubkey{}

	seen := map[[Size]byte]int{}
	for i, v := range variants {
		enc := Encode(v)
		prev, dup := seen[enc]
		assert.False(t, dup, "variant %d encodes like variant %d", i, prev)
		seen[enc] = i
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	good := samplePayload().Bytes()

	_, err := Decode(good[:99])
	require.ErrorIs(t, err, ErrMalformed)

	bad := append([]byte(nil), good...)
	copy(bad, "CPv2")
	_, err = Decode(bad)
	require.ErrorIs(t, err, ErrMalformed)
}
