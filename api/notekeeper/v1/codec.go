package notekeeperv1

import (
	"github.com/bytedance/sonic"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content subtype, sent as application/grpc+json.
const CodecName = "json"

// Codec encodes messages as JSON.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error)      { return sonic.Marshal(v) }
func (Codec) Unmarshal(data []byte, v any) error { return sonic.Unmarshal(data, v) }
func (Codec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(Codec{})
}
