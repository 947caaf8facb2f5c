package grpcapi

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Message is implemented by every request and response of the service.
// Encoding follows the protobuf wire format so stock gRPC clients built from
// medwise/v1/schedule.proto interoperate.
type Message interface {
	MarshalWire() []byte
	UnmarshalWire([]byte) error
}

// Codec moves Messages over gRPC. The server forces it for every call.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("grpcapi: cannot marshal %T", v)
	}
	return m.MarshalWire(), nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("grpcapi: cannot unmarshal into %T", v)
	}
	return m.UnmarshalWire(data)
}

func (Codec) Name() string { return "proto" }

// field is one decoded tag/value pair. Only varint and length-delimited
// values are kept; other wire types are skipped.
type field struct {
	num protowire.Number
	typ protowire.Type
	u   uint64
	b   []byte
}

func (f field) str() string { return string(f.b) }
func (f field) int() int64  { return int64(f.u) }

// walk calls fn for every field in b.
func walk(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			f.u = v
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			f.b = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func appendString(out []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return out
	}
	out = protowire.AppendTag(out, num, protowire.BytesType)
	return protowire.AppendString(out, s)
}

// appendOptString writes s even when empty so presence survives.
func appendOptString(out []byte, num protowire.Number, s *string) []byte {
	if s == nil {
		return out
	}
	out = protowire.AppendTag(out, num, protowire.BytesType)
	return protowire.AppendString(out, *s)
}

func appendInt(out []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return out
	}
	out = protowire.AppendTag(out, num, protowire.VarintType)
	return protowire.AppendVarint(out, uint64(v))
}

func appendOptInt(out []byte, num protowire.Number, v *int) []byte {
	if v == nil {
		return out
	}
	out = protowire.AppendTag(out, num, protowire.VarintType)
	return protowire.AppendVarint(out, uint64(int64(*v)))
}

func appendMessage(out []byte, num protowire.Number, inner []byte) []byte {
	out = protowire.AppendTag(out, num, protowire.BytesType)
	return protowire.AppendBytes(out, inner)
}

// appendTime writes t as a google.protobuf.Timestamp. The zero time is
// omitted.
func appendTime(out []byte, num protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return out
	}
	ts := timestamppb.New(t)
	var inner []byte
	inner = appendInt(inner, 1, ts.Seconds)
	inner = appendInt(inner, 2, int64(ts.Nanos))
	return appendMessage(out, num, inner)
}

func parseTime(b []byte) (time.Time, error) {
	ts := &timestamppb.Timestamp{}
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			ts.Seconds = f.int()
		case 2:
			ts.Nanos = int32(f.int())
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	if err := ts.CheckValid(); err != nil {
		return time.Time{}, err
	}
	return ts.AsTime(), nil
}
