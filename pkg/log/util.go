package log

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// toFields converts logr style key/value pairs into zap fields. A bare zap.Field or error may
// appear anywhere in the list and consumes a single position.
func toFields(args ...any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); i++ {
		switch v := args[i].(type) {
		case zap.Field:
			fields = append(fields, v)
			continue
		case error:
			fields = append(fields, zap.Error(v))
			continue
		}

		if i == len(args)-1 {
			fields = append(fields, zap.Any(fmt.Sprintf("arg#%d", i), args[i]))
			break
		}

		key, val := args[i], args[i+1]
		i++
		if name, ok := key.(string); ok {
			fields = append(fields, typedField(name, val))
			continue
		}
		// Keep both halves of a malformed pair instead of dropping them.
		fields = append(fields, zap.Any(fmt.Sprintf("invalid_key_%d", i/2), map[string]any{
			"key":   key,
			"value": val,
		}))
	}

	return fields
}

func typedField(key string, val any) zap.Field {
	switch v := val.(type) {
	case string:
		return zap.String(key, v)
	case bool:
		return zap.Bool(key, v)
	case int:
		return zap.Int(key, v)
	case int64:
		return zap.Int64(key, v)
	case uint32:
		return zap.Uint32(key, v)
	case uint64:
		return zap.Uint64(key, v)
	case float64:
		return zap.Float64(key, v)
	case time.Duration:
		return zap.Duration(key, v)
	case time.Time:
		return zap.Time(key, v)
	case error:
		return zap.NamedError(key, v)
	case []byte:
		// Payloads from the wire are mostly short text commands.
		return zap.ByteString(key, v)
	case []string:
		return zap.Strings(key, v)
	case fmt.Stringer:
		return zap.Stringer(key, v)
	default:
		return zap.Any(key, v)
	}
}
