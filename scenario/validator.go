package scenario

import "fmt"

// ValidationError is one rule violation found by Validate.
type ValidationError struct {
	PropertyPath string
	Message      string
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s", e.PropertyPath, e.Message)
}

// Validate checks a Definition's well-formedness, returning every violation
// found rather than stopping at the first. An empty result means the
// definition is well-formed enough to build.
func Validate(def *Definition) []ValidationError {
	var errs []ValidationError

	if def.Name == "" {
		errs = append(errs, ValidationError{"name", "must not be empty"})
	}
	if len(def.ValidModels) == 0 {
		errs = append(errs, ValidationError{"validModels", "must not be empty"})
	}
	if len(def.Stages) == 0 {
		errs = append(errs, ValidationError{"stages", "must not be empty"})
	}

	seenStageIDs := make(map[int]bool)
	for si, stage := range def.Stages {
		path := fmt.Sprintf("stages[%d]", si)

		if seenStageIDs[stage.ID] {
			errs = append(errs, ValidationError{path + ".id", "duplicate stage id"})
		}
		seenStageIDs[stage.ID] = true

		if len(stage.UserPrompts) == 0 {
			errs = append(errs, ValidationError{path + ".userPrompts", "must contain at least one user prompt"})
		}

		errs = append(errs, validateNumericRanges(path, stage.Temperature, stage.TopP, stage.MaxTokens)...)

		for pi, prompt := range stage.UserPrompts {
			ppath := fmt.Sprintf("%s.userPrompts[%d]", path, pi)
			if prompt.Template == "" {
				errs = append(errs, ValidationError{ppath + ".template", "must not be empty"})
			}
			errs = append(errs, validateNumericRanges(ppath, prompt.Temperature, prompt.TopP, prompt.MaxTokens)...)

			if prompt.ResponseFormatConfig != nil {
				rfc := prompt.ResponseFormatConfig
				if rfc.Type == ResponseFormatJsonSchema {
					hasSchema := rfc.Schema != ""
					hasTypeName := rfc.ResponseTypeName != ""
					if hasSchema == hasTypeName {
						errs = append(errs, ValidationError{
							ppath + ".responseFormatConfig",
							"JsonSchema requires exactly one of schema or responseTypeName",
						})
					}
				}
			}
		}
	}

	return errs
}

func validateNumericRanges(path string, temperature, topP *float64, maxTokens *int) []ValidationError {
	var errs []ValidationError
	if temperature != nil && (*temperature < 0 || *temperature > 1) {
		errs = append(errs, ValidationError{path + ".temperature", "must be between 0 and 1"})
	}
	if topP != nil && (*topP < 0 || *topP > 1) {
		errs = append(errs, ValidationError{path + ".topP", "must be between 0 and 1"})
	}
	if maxTokens != nil && *maxTokens <= 0 {
		errs = append(errs, ValidationError{path + ".maxTokens", "must be > 0"})
	}
	return errs
}
