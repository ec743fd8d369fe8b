package usecase

import (
	"context"

	"wifi-loyalty-portal/internal/domain/model"
)

// AuditEntry is what callers hand to the audit collaborator. ID and timestamp are assigned on record.
type AuditEntry struct {
	Actor    model.Actor
	Action   string
	Resource string
	Details  model.Value
}

// AuditRecorder is the write side of the audit collaborator. Record never fails the caller.
type AuditRecorder interface {
	Record(ctx context.Context, e AuditEntry)
}

func details(kv ...any) model.Value {
	fields := make(map[string]model.Value, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		switch v := kv[i+1].(type) {
		case model.Value:
			fields[key] = v
		case string:
			fields[key] = model.String(v)
		case *string:
			if v != nil {
				fields[key] = model.String(*v)
			}
		case int:
			fields[key] = model.Int(v)
		case int64:
			fields[key] = model.Number(float64(v))
		case float64:
			fields[key] = model.Number(v)
		case bool:
			fields[key] = model.Bool(v)
		}
	}
	return model.Object(fields)
}
