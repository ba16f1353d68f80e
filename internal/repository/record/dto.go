package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/solrsync/internal/domain"
	domrec "github.com/kailas-cloud/solrsync/internal/domain/record"
)

// updatedAtField is reserved in every record hash and never surfaces as a record field.
const updatedAtField = "__updated_at"

// buildHashFields JSON-encodes every record value into a flat map for the hash store.
func buildHashFields(rec domrec.Record, now time.Time) (map[string]string, error) {
	m := make(map[string]string, len(rec.Fields())+1)
	for k, v := range rec.Fields() {
		if strings.HasPrefix(k, "__") {
			return nil, fmt.Errorf("field %q uses the reserved __ prefix: %w", k, domain.ErrInvalidRecord)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w: %w", k, domain.ErrInvalidRecord, err)
		}
		m[k] = string(data)
	}
	m[updatedAtField] = now.UTC().Format(time.RFC3339Nano)
	return m, nil
}

// parseHashFields decodes a stored hash. Numbers stay json.Number so integer
// precision survives until the mapper coerces them.
func parseHashFields(recordType, id string, m map[string]string) (domrec.Record, error) {
	fields := make(map[string]any, len(m))
	for k, raw := range m {
		if k == updatedAtField {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return domrec.Record{}, fmt.Errorf("decode field %q of %s/%s: %w", k, recordType, id, err)
		}
		fields[k] = v
	}
	return domrec.Reconstruct(recordType, id, fields), nil
}

func recordKey(recordType, id string) string {
	return fmt.Sprintf("%srecord:%s:%s", domain.KeyPrefix, recordType, id)
}

func recordPattern(recordType string) string {
	return fmt.Sprintf("%srecord:%s:*", domain.KeyPrefix, recordType)
}

func extractID(key, recordType string) string {
	return strings.TrimPrefix(key, fmt.Sprintf("%srecord:%s:", domain.KeyPrefix, recordType))
}
