package watchregistration

import "watch-registration/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"watchBrand", "watchModel", "watchSerial", "totalFractions", "pricePerFractionWei"},
		Properties: map[string]validation.Property{
			"watchBrand": {
				Type:        "string",
				Description: "Watch manufacturer",
				MinLength:   intPtr(1),
			},
			"watchModel": {
				Type:        "string",
				Description: "Watch model name or reference",
				MinLength:   intPtr(1),
			},
			"watchSerial": {
				Type:        "string",
				Description: "Serial number known to the appraisal authority",
				MinLength:   intPtr(1),
			},
			"totalFractions": {
				Type:        "integer",
				Description: "Number of fractions to mint",
				Minimum:     floatPtr(1),
			},
			"pricePerFractionWei": {
				Type:        "string",
				Description: "Price of one fraction in wei, decimal digits only",
				Pattern:     strPtr(`^[0-9]+$`),
				MinLength:   intPtr(1),
			},
			"appraisalSource": {
				Type:        "string",
				Description: "Optional appraisal provenance",
			},
		},
	}
}

func GetOutputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"registrationSummary", "transactionHash", "registrationStatus"},
		Properties: map[string]validation.Property{
			"registrationSummary": {
				Type:        "string",
				Description: "Human readable registration summary",
			},
			"transactionHash": {
				Type:        "string",
				Description: "0x prefixed transaction hash",
				Pattern:     strPtr(`^0x[0-9a-f]{64}$`),
			},
			"registrationStatus": {
				Type:        "string",
				Description: "Ledger transaction status",
				Enum:        []string{"SUCCESS"},
			},
		},
	}
}

func intPtr(i int) *int {
	return &i
}

func floatPtr(f float64) *float64 {
	return &f
}

func strPtr(s string) *string {
	return &s
}
