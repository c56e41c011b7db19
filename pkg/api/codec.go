package api

import (
	"encoding/json"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// JSONCodec is the Connect codec for the village API. Protobuf messages (such
// as emptypb.Empty) go through protojson, plain Go messages through
// encoding/json. An empty body decodes to the zero message.
type JSONCodec struct{}

// Name registers the codec under the standard "json" content subtype.
func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	if pm, ok := msg.(proto.Message); ok {
		return protojson.MarshalOptions{EmitUnpopulated: true}.Marshal(pm)
	}
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if pm, ok := msg.(proto.Message); ok {
		return protojson.UnmarshalOptions{DiscardUnknown: true}.Unmarshal(data, pm)
	}
	return json.Unmarshal(data, msg)
}
