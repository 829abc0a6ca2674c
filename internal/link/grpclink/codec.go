package grpclink

import "fmt"

// frame is one gRPC message on the link stream: a run of protocol bytes,
// carried without any envelope of its own.
type frame struct {
	data []byte
}

// rawCodec passes frame payloads through unchanged, so the bytes on the
// wire are the protocol bytes themselves.
type rawCodec struct{}

func (rawCodec) Name() string { return "doorlock-raw" }

func (rawCodec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*frame)
	if !ok {
		return nil, fmt.Errorf("raw codec: cannot marshal %T", v)
	}
	return f.data, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*frame)
	if !ok {
		return fmt.Errorf("raw codec: cannot unmarshal into %T", v)
	}
	// the transport may reuse data after Unmarshal returns
	f.data = append(f.data[:0], data...)
	return nil
}
