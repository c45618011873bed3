package broadcast

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	FormatJSON  = "json"
	FormatProto = "proto"
)

// EncodeJSON renders the event as a JSON object.
func EncodeJSON(evt Event) ([]byte, error) {
	return json.Marshal(evt)
}

// EncodeProto renders the event as a binary google.protobuf.Struct so binary
// clients can decode frames without a generated schema.
func EncodeProto(evt Event) ([]byte, error) {
	generic, err := toGeneric(evt)
	if err != nil {
		return nil, err
	}
	st, err := structpb.NewStruct(generic)
	if err != nil {
		return nil, fmt.Errorf("build struct frame: %w", err)
	}
	return proto.Marshal(st)
}

// DecodeProto is the inverse of EncodeProto, used by tests and Go clients.
func DecodeProto(data []byte) (map[string]any, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return st.AsMap(), nil
}

// toGeneric flattens typed payloads into the map/slice/scalar shapes structpb accepts.
func toGeneric(evt Event) (map[string]any, error) {
	raw, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", evt.Name, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
