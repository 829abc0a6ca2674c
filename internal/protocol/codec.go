package protocol

import (
	"context"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/doorlock/internal/common"
	"github.com/dmitrijs2005/doorlock/internal/credential"
	"github.com/dmitrijs2005/doorlock/internal/link"
	"github.com/dmitrijs2005/doorlock/internal/logging"
)

// Codec encodes and decodes protocol units over a link.Channel. It never
// retries: a failed or unexpected byte is returned to the caller, which
// must abandon the exchange.
type Codec struct {
	ch     link.Channel
	logger logging.Logger
}

func NewCodec(ch link.Channel, l logging.Logger) *Codec {
	return &Codec{ch: ch, logger: l.With("module", "codec")}
}

// SendRequest writes a request opcode followed by the 4 credential digits.
func (c *Codec) SendRequest(ctx context.Context, op Opcode, cred credential.Credential) error {
	if !op.IsRequest() {
		return fmt.Errorf("send request %s: %w", op, common.ErrUnexpectedOpcode)
	}
	c.logger.Debug(ctx, "sending request", "opcode", op)
	if err := c.sendByte(ctx, byte(op)); err != nil {
		return fmt.Errorf("send request %s: %w", op, err)
	}
	if err := c.SendCredential(ctx, cred); err != nil {
		return fmt.Errorf("send request %s: %w", op, err)
	}
	return nil
}

// SendCredential writes the 4 credential digits without an opcode. It is
// used for the replacement credential that follows CHANGE_ACCEPTED.
func (c *Codec) SendCredential(ctx context.Context, cred credential.Credential) error {
	for i := 0; i < credential.Length; i++ {
		if err := c.sendByte(ctx, cred.Digit(i)); err != nil {
			return fmt.Errorf("send digit %d: %w", i, err)
		}
	}
	return nil
}

// SendResponse writes a single response opcode.
func (c *Codec) SendResponse(ctx context.Context, op Opcode) error {
	if !op.IsResponse() {
		return fmt.Errorf("send response %s: %w", op, common.ErrUnexpectedOpcode)
	}
	c.logger.Debug(ctx, "sending response", "opcode", op)
	if err := c.sendByte(ctx, byte(op)); err != nil {
		return fmt.Errorf("send response %s: %w", op, err)
	}
	return nil
}

// AwaitResponse blocks for one response opcode. Any byte other than the
// expected opcodes desynchronizes the exchange.
func (c *Codec) AwaitResponse(ctx context.Context, expect ...Opcode) (Opcode, error) {
	b, err := c.ch.ReceiveByte(ctx)
	if err != nil {
		return 0, fmt.Errorf("await response: %w", err)
	}
	op := Opcode(b)
	c.logger.Debug(ctx, "received", "opcode", op)
	if !op.IsResponse() || (len(expect) > 0 && !slices.Contains(expect, op)) {
		return op, fmt.Errorf("await response: got %s: %w", op, common.ErrDesync)
	}
	return op, nil
}

// ReceiveRequest blocks for the next request opcode.
func (c *Codec) ReceiveRequest(ctx context.Context) (Opcode, error) {
	b, err := c.ch.ReceiveByte(ctx)
	if err != nil {
		return 0, fmt.Errorf("receive request: %w", err)
	}
	op := Opcode(b)
	c.logger.Debug(ctx, "received", "opcode", op)
	if !op.IsRequest() {
		return op, fmt.Errorf("receive request: got %s: %w", op, common.ErrDesync)
	}
	return op, nil
}

// ReceiveCredential blocks for exactly 4 digit bytes. A byte outside 0–9
// means the controllers are out of step.
func (c *Codec) ReceiveCredential(ctx context.Context) (credential.Credential, error) {
	digits := make([]byte, credential.Length)
	for i := range digits {
		b, err := c.ch.ReceiveByte(ctx)
		if err != nil {
			return credential.Credential{}, fmt.Errorf("receive digit %d: %w", i, err)
		}
		if !credential.IsDigit(b) {
			return credential.Credential{}, fmt.Errorf("receive digit %d: got %#04x: %w", i, b, common.ErrDesync)
		}
		digits[i] = b
	}
	return credential.FromDigits(digits...)
}

// sendByte never logs: digit bytes are credential material.
func (c *Codec) sendByte(ctx context.Context, b byte) error {
	return c.ch.SendByte(ctx, b)
}
