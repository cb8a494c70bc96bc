package forumv1

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Ключи полей сообщений.
const (
	FieldMethod = "method"
	FieldName   = "name"
	FieldArgs   = "args"
	FieldResult = "result"
)

// Value переводит значение в structpb.Value через его JSON-представление.
func Value(v any) (*structpb.Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("forumv1: encode: %w", err)
	}

	var plain any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, fmt.Errorf("forumv1: encode: %w", err)
	}

	return structpb.NewValue(plain)
}

// Object переводит значение, кодирующееся JSON-объектом, в Struct.
func Object(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("forumv1: encode: %w", err)
	}

	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("forumv1: encode: %w", err)
	}

	return out, nil
}

// Decode раскладывает Struct в dst через JSON.
func Decode(in *structpb.Struct, dst any) error {
	raw, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("forumv1: decode: %w", err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("forumv1: decode: %w", err)
	}

	return nil
}

// CallRequest — запрос Call.
func CallRequest(method string, args []any) (*structpb.Struct, error) {
	return request(FieldMethod, method, args)
}

// SubscribeRequest — запрос Subscribe.
func SubscribeRequest(name string, args []any) (*structpb.Struct, error) {
	return request(FieldName, name, args)
}

func request(key, value string, args []any) (*structpb.Struct, error) {
	if args == nil {
		args = []any{}
	}

	list, err := Value(args)
	if err != nil {
		return nil, err
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		key:       structpb.NewStringValue(value),
		FieldArgs: list,
	}}, nil
}

// Args — позиционные аргументы запроса; отсутствующие — пустой список.
func Args(in *structpb.Struct) []any {
	return in.GetFields()[FieldArgs].GetListValue().AsSlice()
}

// String — строковое поле запроса.
func String(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

// CallResponse — ответ Call.
func CallResponse(result any) (*structpb.Struct, error) {
	v, err := Value(result)
	if err != nil {
		return nil, err
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{FieldResult: v}}, nil
}

// DecodeResult раскладывает результат Call в dst. nil dst — результат не нужен.
func DecodeResult(out *structpb.Struct, dst any) error {
	if dst == nil {
		return nil
	}

	v, ok := out.GetFields()[FieldResult]
	if !ok || v == nil {
		return nil
	}

	raw, err := protojson.Marshal(v)
	if err != nil {
		return fmt.Errorf("forumv1: decode: %w", err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("forumv1: decode: %w", err)
	}

	return nil
}
