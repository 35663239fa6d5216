// Package packet wraps encoded units (compressed packets) read from
// the media source, pooling the underlying astiav allocations.
package packet

import (
	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avwallpaper/pool"
)

var Pool = pool.NewPool(
	astiav.AllocPacket,
	func(p *astiav.Packet) { p.Unref() },
	func(p *astiav.Packet) { p.Free() },
)

// Unit is one encoded unit: a compressed payload owned by a single
// stream. The wrapped packet belongs to the Unit until Release (or
// until ownership is handed to the decoder).
type Unit struct {
	Packet *astiav.Packet
}

func BuildUnit(pkt *astiav.Packet) Unit {
	return Unit{Packet: pkt}
}

func (u Unit) GetStreamIndex() int {
	return u.Packet.StreamIndex()
}

// GetSize reports the compressed payload size in bytes; the packet
// queue uses it for its byte accounting.
func (u Unit) GetSize() int {
	return u.Packet.Size()
}

func (u Unit) Release() {
	Pool.Put(u.Packet)
}
