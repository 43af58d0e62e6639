package output

import (
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/pion/rtp"
)

// Defaults for udp:// targets.
const (
	DefaultPayloadType = 96
	DefaultMTU         = 1400
	rtpClockRate       = 90000
	rtpHeaderSize      = 12
)

// rtpOutput splits each frame across RTP packets; the last one carries the
// marker bit.
type rtpOutput struct {
	base
	mu      sync.Mutex
	conn    net.Conn
	pt      uint8
	mtu     int
	ssrc    uint32
	seq     uint16
	started time.Time
}

func newRTP(addr string, opts Options) (*rtpOutput, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("open udp output: %w", err)
	}
	o := &rtpOutput{
		conn: conn,
		pt:   opts.PayloadType,
		mtu:  opts.MTU,
		ssrc: rand.Uint32(),
		seq:  uint16(rand.Intn(1 << 16)),
	}
	if o.pt == 0 {
		o.pt = DefaultPayloadType
	}
	if o.mtu <= rtpHeaderSize {
		o.mtu = DefaultMTU
	}
	return o, nil
}

// Packetize splits frame into marshalled RTP packets.
func (o *rtpOutput) Packetize(frame []byte, ts time.Time) ([][]byte, error) {
	if o.started.IsZero() {
		o.started = ts
	}
	stamp := uint32(ts.Sub(o.started).Seconds() * rtpClockRate)
	chunk := o.mtu - rtpHeaderSize

	var out [][]byte
	for off := 0; off < len(frame); off += chunk {
		end := off + chunk
		if end > len(frame) {
			end = len(frame)
		}
		pkt := rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    o.pt,
				SequenceNumber: o.seq,
				Timestamp:      stamp,
				SSRC:           o.ssrc,
				Marker:         end == len(frame),
			},
			Payload: frame[off:end],
		}
		o.seq++
		b, err := pkt.Marshal()
		if err != nil {
			return nil, fmt.Errorf("marshal rtp: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (o *rtpOutput) Write(frame []byte, ts time.Time) error {
	if !o.Recording() {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	pkts, err := o.Packetize(frame, ts)
	if err != nil {
		return err
	}
	for _, p := range pkts {
		if _, err := o.conn.Write(p); err != nil {
			return o.checkWrite(err)
		}
	}
	return nil
}

func (o *rtpOutput) Close() error {
	return o.conn.Close()
}
