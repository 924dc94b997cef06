// codec.go

package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// 编码名称
const (
	EncodingJSON    = "json"
	EncodingMsgpack = "msgpack"
	EncodingProto   = "proto"
)

// Codec 消息编解码器
type Codec interface {
	Name() string
	// Binary 是否需要以二进制帧发送
	Binary() bool
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// CodecFor 按名称获取编解码器，空名称为JSON
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", EncodingJSON:
		return jsonCodec{}, nil
	case EncodingMsgpack:
		return msgpackCodec{}, nil
	case EncodingProto:
		return protoCodec{}, nil
	default:
		return nil, fmt.Errorf("不支持的编码: %s", name)
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return EncodingJSON }

func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

// msgpackCodec 字段名沿用json标签，两种编码的键保持一致
type msgpackCodec struct{}

func (msgpackCodec) Name() string { return EncodingMsgpack }

func (msgpackCodec) Binary() bool { return true }

func (msgpackCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("msgpack编码失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) Unmarshal(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("msgpack解码失败: %w", err)
	}
	return nil
}

// protoCodec 以 google.protobuf.Struct 的二进制形式传输
type protoCodec struct{}

func (protoCodec) Name() string { return EncodingProto }

func (protoCodec) Binary() bool { return true }

func (protoCodec) Marshal(v interface{}) ([]byte, error) {
	s, err := ToStruct(v)
	if err != nil {
		return nil, err
	}
	data, err := proto.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("protobuf编码失败: %w", err)
	}
	return data, nil
}

func (protoCodec) Unmarshal(data []byte, v interface{}) error {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("protobuf解码失败: %w", err)
	}
	return FromStruct(&s, v)
}

// ToStruct 把任意可JSON序列化的值转换为 structpb.Struct
func ToStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("序列化失败: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("只支持对象类型: %w", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("转换Struct失败: %w", err)
	}
	return s, nil
}

// FromStruct 把 structpb.Struct 解析到 v
func FromStruct(s *structpb.Struct, v interface{}) error {
	raw, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("转换JSON失败: %w", err)
	}
	return json.Unmarshal(raw, v)
}
