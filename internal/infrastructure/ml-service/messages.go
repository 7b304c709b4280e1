package ml_service

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Сообщения ml.v1 (api/proto/ml/v1/backbone.proto), закодированные вручную через protowire.

// unmarshal, как и proto.Unmarshal, сначала обнуляет сообщение.
type wireMessage interface {
	marshal() []byte
	unmarshal(b []byte) error
}

type ForwardRequest struct {
	Model string
	Shape []int64
	Data  []float32
}

type ForwardResponse struct {
	Shape        []int64
	Data         []float32
	ModelVersion string
}

type DescribeRequest struct {
	Model string
}

type DescribeResponse struct {
	Name       string
	Version    string
	FeatureDim int64
	InputSize  int64
}

func (m *ForwardRequest) marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Model)
	b = appendPackedInt64(b, 2, m.Shape)
	b = appendPackedFloat(b, 3, m.Data)
	return b
}

func (m *ForwardRequest) unmarshal(b []byte) error {
	*m = ForwardRequest{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, v, &m.Model)
		case 2:
			return consumeInt64s(typ, v, &m.Shape)
		case 3:
			return consumeFloats(typ, v, &m.Data)
		}
		return skipField(num, typ, v)
	})
}

func (m *ForwardResponse) marshal() []byte {
	var b []byte
	b = appendPackedInt64(b, 1, m.Shape)
	b = appendPackedFloat(b, 2, m.Data)
	b = appendString(b, 3, m.ModelVersion)
	return b
}

func (m *ForwardResponse) unmarshal(b []byte) error {
	*m = ForwardResponse{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			return consumeInt64s(typ, v, &m.Shape)
		case 2:
			return consumeFloats(typ, v, &m.Data)
		case 3:
			return consumeString(typ, v, &m.ModelVersion)
		}
		return skipField(num, typ, v)
	})
}

func (m *DescribeRequest) marshal() []byte {
	return appendString(nil, 1, m.Model)
}

func (m *DescribeRequest) unmarshal(b []byte) error {
	*m = DescribeRequest{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		if num == 1 {
			return consumeString(typ, v, &m.Model)
		}
		return skipField(num, typ, v)
	})
}

func (m *DescribeResponse) marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Name)
	b = appendString(b, 2, m.Version)
	b = appendVarint(b, 3, m.FeatureDim)
	b = appendVarint(b, 4, m.InputSize)
	return b
}

func (m *DescribeResponse) unmarshal(b []byte) error {
	*m = DescribeResponse{}
	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, v, &m.Name)
		case 2:
			return consumeString(typ, v, &m.Version)
		case 3:
			return consumeInt64(typ, v, &m.FeatureDim)
		case 4:
			return consumeInt64(typ, v, &m.InputSize)
		}
		return skipField(num, typ, v)
	})
}

// ENCODING

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendPackedInt64(b []byte, num protowire.Number, vs []int64) []byte {
	if len(vs) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func appendPackedFloat(b []byte, num protowire.Number, vs []float32) []byte {
	if len(vs) == 0 {
		return b
	}
	packed := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		packed = protowire.AppendFixed32(packed, math.Float32bits(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

// DECODING

type fieldFunc func(num protowire.Number, typ protowire.Type, v []byte) (int, error)

func walkFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}

func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) (int, error) {
	if typ != protowire.BytesType {
		return 0, fmt.Errorf("string field has wire type %d", typ)
	}
	s, n := protowire.ConsumeString(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = s
	return n, nil
}

func consumeInt64(typ protowire.Type, b []byte, dst *int64) (int, error) {
	if typ != protowire.VarintType {
		return 0, fmt.Errorf("int64 field has wire type %d", typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = int64(v)
	return n, nil
}

// consumeInt64s принимает как packed, так и неупакованную форму repeated поля.
func consumeInt64s(typ protowire.Type, b []byte, dst *[]int64) (int, error) {
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		*dst = append(*dst, int64(v))
		return n, nil
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		for len(packed) > 0 {
			v, m := protowire.ConsumeVarint(packed)
			if m < 0 {
				return 0, protowire.ParseError(m)
			}
			*dst = append(*dst, int64(v))
			packed = packed[m:]
		}
		return n, nil
	}
	return 0, fmt.Errorf("repeated int64 field has wire type %d", typ)
}

func consumeFloats(typ protowire.Type, b []byte, dst *[]float32) (int, error) {
	switch typ {
	case protowire.Fixed32Type:
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		*dst = append(*dst, math.Float32frombits(v))
		return n, nil
	case protowire.BytesType:
		packed, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		if len(packed)%4 != 0 {
			return 0, fmt.Errorf("packed float field of %d bytes", len(packed))
		}
		if *dst == nil {
			*dst = make([]float32, 0, len(packed)/4)
		}
		for len(packed) > 0 {
			v, m := protowire.ConsumeFixed32(packed)
			if m < 0 {
				return 0, protowire.ParseError(m)
			}
			*dst = append(*dst, math.Float32frombits(v))
			packed = packed[m:]
		}
		return n, nil
	}
	return 0, fmt.Errorf("repeated float field has wire type %d", typ)
}
