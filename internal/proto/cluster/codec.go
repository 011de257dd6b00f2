package cluster

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protowire"
)

// CodecName gRPC content-subtype，对应 application/grpc+cluster
const CodecName = "cluster"

// 字段号与 cluster.proto 保持一致
const (
	envelopeConnectField protowire.Number = 1
	envelopePayloadField protowire.Number = 2

	connectAddressField protowire.Number = 1
	addressHostField    protowire.Number = 1
	addressPortField    protowire.Number = 2

	payloadKindField protowire.Number = 1
	payloadDataField protowire.Number = 2
)

var (
	ErrEmptyEnvelope  = errors.New("envelope: empty body")
	ErrUnknownVariant = errors.New("envelope: unknown body variant")
)

func init() {
	encoding.RegisterCodec(grpcCodec{})
}

// Marshal 按 cluster.proto 的线上格式编码
func Marshal(env *Envelope) ([]byte, error) {
	if env == nil || env.Body == nil {
		return nil, ErrEmptyEnvelope
	}

	var b []byte
	switch body := env.Body.(type) {
	case *Connect:
		var addr []byte
		addr = protowire.AppendTag(addr, addressHostField, protowire.BytesType)
		addr = protowire.AppendString(addr, body.Host)
		addr = protowire.AppendTag(addr, addressPortField, protowire.VarintType)
		addr = protowire.AppendVarint(addr, uint64(int64(body.Port)))

		var msg []byte
		msg = protowire.AppendTag(msg, connectAddressField, protowire.BytesType)
		msg = protowire.AppendBytes(msg, addr)

		b = protowire.AppendTag(b, envelopeConnectField, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	case *Payload:
		var msg []byte
		msg = protowire.AppendTag(msg, payloadKindField, protowire.BytesType)
		msg = protowire.AppendString(msg, body.Kind)
		msg = protowire.AppendTag(msg, payloadDataField, protowire.BytesType)
		msg = protowire.AppendBytes(msg, body.Data)

		b = protowire.AppendTag(b, envelopePayloadField, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	default:
		return nil, ErrUnknownVariant
	}
	return b, nil
}

// Unmarshal 解码一帧；未知字段跳过，oneof 以最后出现的为准
func Unmarshal(data []byte) (*Envelope, error) {
	env := &Envelope{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		switch num {
		case envelopeConnectField:
			c, err := unmarshalConnect(raw)
			if err != nil {
				return err
			}
			env.Body = c
		case envelopePayloadField:
			p, err := unmarshalPayload(raw)
			if err != nil {
				return err
			}
			env.Body = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if env.Body == nil {
		return nil, ErrEmptyEnvelope
	}
	return env, nil
}

func unmarshalConnect(data []byte) (*Connect, error) {
	c := &Connect{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		if num != connectAddressField {
			return nil
		}
		return walkFields(raw, func(num protowire.Number, typ protowire.Type, raw []byte) error {
			switch num {
			case addressHostField:
				c.Host = string(raw)
			case addressPortField:
				v, n := protowire.ConsumeVarint(raw)
				if n < 0 {
					return protowire.ParseError(n)
				}
				c.Port = int32(v)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("decode connect: %w", err)
	}
	return c, nil
}

func unmarshalPayload(data []byte) (*Payload, error) {
	p := &Payload{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, raw []byte) error {
		switch num {
		case payloadKindField:
			p.Kind = string(raw)
		case payloadDataField:
			p.Data = append([]byte(nil), raw...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}

// walkFields 逐个字段回调；bytes 类型传入内容，varint 传入原始编码
func walkFields(data []byte, fn func(num protowire.Number, typ protowire.Type, raw []byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		m := protowire.ConsumeFieldValue(num, typ, data)
		if m < 0 {
			return protowire.ParseError(m)
		}
		raw := data[:m]
		if typ == protowire.BytesType {
			v, k := protowire.ConsumeBytes(raw)
			if k < 0 {
				return protowire.ParseError(k)
			}
			raw = v
		}
		if err := fn(num, typ, raw); err != nil {
			return err
		}
		data = data[m:]
	}
	return nil
}

// grpcCodec 让 gRPC 直接收发 *Envelope
type grpcCodec struct{}

func (grpcCodec) Marshal(v any) ([]byte, error) {
	env, ok := v.(*Envelope)
	if !ok {
		return nil, fmt.Errorf("cluster codec: unexpected type %T", v)
	}
	return Marshal(env)
}

func (grpcCodec) Unmarshal(data []byte, v any) error {
	env, ok := v.(*Envelope)
	if !ok {
		return fmt.Errorf("cluster codec: unexpected type %T", v)
	}
	decoded, err := Unmarshal(data)
	if err != nil {
		return err
	}
	*env = *decoded
	return nil
}

func (grpcCodec) Name() string { return CodecName }
