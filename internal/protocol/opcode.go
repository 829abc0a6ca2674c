// Package protocol implements the fixed-layout request/response protocol
// spoken between the front-end and back-end controllers.
//
// Every request is one opcode byte, optionally followed by exactly four
// digit bytes (0–9). Every response is one opcode byte. There is no framing
// or checksum, so any byte out of place desynchronizes both controllers.
package protocol

import "fmt"

// Opcode is a single protocol command byte.
type Opcode byte

const (
	SetFirstCredential Opcode = 0xF1 // front→back, + 4 digits
	OpenRequest        Opcode = 0xF2 // front→back, + 4 digits
	VerifySuccess      Opcode = 0xF3 // back→front; also triggers the door-opening display
	VerifyFailure      Opcode = 0xF4 // back→front
	ChangeRequest      Opcode = 0xF5 // front→back, + 4 digits
	ChangeAccepted     Opcode = 0xF6 // back→front; a replacement credential follows
	ChangeRejected     Opcode = 0xF7 // back→front
)

var opcodeNames = map[Opcode]string{
	SetFirstCredential: "SET_FIRST_CREDENTIAL",
	OpenRequest:        "OPEN_REQUEST",
	VerifySuccess:      "VERIFY_SUCCESS",
	VerifyFailure:      "VERIFY_FAILURE",
	ChangeRequest:      "CHANGE_REQUEST",
	ChangeAccepted:     "CHANGE_ACCEPTED",
	ChangeRejected:     "CHANGE_REJECTED",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(%#04x)", byte(op))
}

// IsRequest reports whether op travels front→back and carries a credential.
func (op Opcode) IsRequest() bool {
	switch op {
	case SetFirstCredential, OpenRequest, ChangeRequest:
		return true
	}
	return false
}

// IsResponse reports whether op travels back→front.
func (op Opcode) IsResponse() bool {
	switch op {
	case VerifySuccess, VerifyFailure, ChangeAccepted, ChangeRejected:
		return true
	}
	return false
}
