package jobs

import (
	"context"

	"presstrack/internal/recordstore"
)

// patchWithSchemaFallback writes a field patch, tolerating remote schema
// drift on value typing: if the store answers with a validation-class
// rejection and a fallback representation was supplied, it retries exactly
// once with the fallback. Any other failure, or a failure of the fallback
// itself, surfaces verbatim — further retries would only mask a persistent
// misconfiguration.
//
// The machine/selection field is the known case: deployments configure it
// either as a number field or as a single-select, so the natural numeric
// write may need to fall back to the string form.
func patchWithSchemaFallback(ctx context.Context, store recordstore.Store, id string, primary, fallback map[string]interface{}) (recordstore.RawRecord, error) {
	rec, err := store.PatchRecord(ctx, id, primary)
	if err == nil {
		return rec, nil
	}
	if fallback == nil || !recordstore.IsValidation(err) {
		return recordstore.RawRecord{}, err
	}
	return store.PatchRecord(ctx, id, fallback)
}
