package watchregistration

import (
	"encoding/json"
	"sort"

	"watch-registration/internal/common/config"
	"watch-registration/internal/common/errors"
	"watch-registration/internal/common/validation"
	"watch-registration/pkg/registry"
)

// Activity describes the job worker for the activity registry.
func Activity(cfg *Config) registry.Activity {
	codes := make([]string, 0, len(errors.BPMNErrorMapping))
	for _, bpmnCode := range errors.BPMNErrorMapping {
		codes = append(codes, bpmnCode)
	}
	sort.Strings(codes)

	return registry.Activity{
		ID:                   config.WorkerName,
		DisplayName:          "Register Watch",
		Description:          "Validates, attests and submits a luxury watch registration to the receiver contract",
		Category:             "tokenization",
		Version:              "1.0.0",
		TaskType:             TaskType,
		ImplementationStatus: "completed",
		InputSchema:          schemaMap(GetInputSchema()),
		OutputSchema:         schemaMap(GetOutputSchema()),
		ErrorCodes:           codes,
		Timeout:              cfg.Timeout.String(),
		Retries:              errors.GetRetryCount(errors.ErrCodeSubmissionFailed),
		Workflows:            []string{"watch-tokenization"},
		Tags:                 []string{"evm", "attestation", "rwa"},
	}
}

func schemaMap(schema validation.JSONSchema) map[string]interface{} {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
