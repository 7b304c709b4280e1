package ml_service

import "fmt"

// codecName совпадает с именем стандартного protobuf-кодека, поэтому сервер модели
// видит обычный application/grpc+proto.
const codecName = "proto"

// wireCodec сериализует сообщения ml.v1, реализующие wireMessage.
type wireCodec struct{}

func (wireCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("ml codec: cannot marshal %T", v)
	}
	return m.marshal(), nil
}

func (wireCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("ml codec: cannot unmarshal into %T", v)
	}
	return m.unmarshal(data)
}

func (wireCodec) Name() string {
	return codecName
}
