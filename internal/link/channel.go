// Package link provides byte channels between the two controllers.
//
// A Channel is the raw duplex byte capability the protocol codec consumes.
// The link has no framing: every byte is delivered in order, one at a time,
// and both operations block until the peer moves.
package link

import "context"

// Channel is a blocking, ordered, duplex byte channel.
type Channel interface {
	// SendByte transmits one byte to the peer.
	SendByte(ctx context.Context, b byte) error
	// ReceiveByte blocks until the peer sends one byte.
	ReceiveByte(ctx context.Context) (byte, error)
}
