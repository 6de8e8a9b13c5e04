package grpc

import (
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName JSON codec 的 content-subtype ("application/grpc+json")
const CodecName = "json"

// jsonCodec 以 encoding/json 序列化 gRPC 訊息，訊息是一般的 Go struct
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// JSONCallOption 讓 client 的呼叫使用 JSON codec
func JSONCallOption() grpc.CallOption {
	return grpc.CallContentSubtype(CodecName)
}
