package redis

import (
	"encoding/json"
	"fmt"
)

// decodeJSON разбирает значение из Redis. Для промаха (nil) возвращает ok=false без ошибки.
func decodeJSON[T any](val any, key string) (out T, ok bool, err error) {
	var data []byte
	switch v := val.(type) {
	case nil:
		return out, false, nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return out, false, fmt.Errorf("unexpected redis value type for key %s: %T", key, val)
	}

	if err := json.Unmarshal(data, &out); err != nil {
		return out, false, fmt.Errorf("decode %s: %w", key, err)
	}

	return out, true, nil
}

func withPrefix[T any](prefix string, ids []T) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf("%s:%v", prefix, id)
	}

	return keys
}
