package scenario

import (
	"fmt"

	"github.com/kairos-run/orchestrator/orcherr"
	"github.com/kairos-run/orchestrator/schema"
)

// Build lowers a validated Definition into a RuntimeScenario. Callers should
// run Validate first; Build still performs the checks it needs to lower
// safely (e.g. response-format shape) since a caller could skip validation.
func Build(def *Definition, schemas *schema.Registry) (*RuntimeScenario, error) {
	if len(def.ValidModels) == 0 {
		return nil, orcherr.Newf(orcherr.InvalidDefinition, "scenario %q: validModels must not be empty", def.Name)
	}

	rs := &RuntimeScenario{
		Name:     def.Name,
		Metadata: def.Metadata,
	}

	for _, stage := range def.Stages {
		runtimeStage, err := buildStage(def, stage, schemas)
		if err != nil {
			return nil, err
		}
		rs.Stages = append(rs.Stages, *runtimeStage)
	}

	return rs, nil
}

func buildStage(def *Definition, stage StageDefinition, schemas *schema.Registry) (*RuntimeStage, error) {
	rs := &RuntimeStage{
		ID:         stage.ID,
		Name:       stage.Name,
		Model:      stage.Model,
		ValidModel: def.ValidModels[0],
		Parameters: make(map[string]any),
	}

	for k, v := range stage.Parameters {
		rs.Parameters[k] = v
	}
	if stage.Temperature != nil {
		rs.Parameters["temperature"] = *stage.Temperature
	}
	if stage.TopP != nil {
		rs.Parameters["topP"] = *stage.TopP
	}
	if stage.MaxTokens != nil {
		rs.Parameters["maxTokens"] = *stage.MaxTokens
	}

	functions, err := resolveFunctions(stage.Functions, schemas)
	if err != nil {
		return nil, orcherr.New(orcherr.InvalidDefinition, err).WithStage(fmt.Sprintf("%d", stage.ID))
	}
	tools, err := resolveTools(stage.Tools, schemas)
	if err != nil {
		return nil, orcherr.New(orcherr.InvalidDefinition, err).WithStage(fmt.Sprintf("%d", stage.ID))
	}
	functionCall := resolveFunctionCall(stage.Functions)

	if stage.SystemPrompt != "" {
		rs.Turns = append(rs.Turns, PromptTurn{
			Role:    RoleSystem,
			Content: stage.SystemPrompt,
		})
	}

	for pi, prompt := range stage.UserPrompts {
		params, err := buildTurnParameters(stage, prompt, functions, tools, functionCall, schemas)
		if err != nil {
			return nil, orcherr.New(orcherr.InvalidDefinition, err).WithStage(fmt.Sprintf("%d", stage.ID))
		}
		rs.Turns = append(rs.Turns, PromptTurn{
			Role:       RoleUser,
			Content:    prompt.Template,
			Name:       fmt.Sprintf("user-%d", pi),
			Parameters: params,
		})
	}

	return rs, nil
}

func buildTurnParameters(stage StageDefinition, prompt UserPromptDefinition, functions, tools []ResolvedFunction, functionCall FunctionCallPolicy, schemas *schema.Registry) (TurnParameters, error) {
	params := TurnParameters{
		Temperature:  firstNonNil(prompt.Temperature, stage.Temperature),
		TopP:         firstNonNil(prompt.TopP, stage.TopP),
		MaxTokens:    firstNonNilInt(prompt.MaxTokens, stage.MaxTokens),
		Functions:    functions,
		Tools:        tools,
		FunctionCall: functionCall,
		Extras:       make(map[string]any),
	}

	for k, v := range prompt.Parameters {
		params.Extras[k] = v
	}

	rf, err := resolveResponseFormat(prompt.ResponseFormatConfig, schemas)
	if err != nil {
		return TurnParameters{}, err
	}
	params.ResponseFormat = rf

	return params, nil
}

func resolveResponseFormat(rfc *ResponseFormatConfig, schemas *schema.Registry) (*ResponseFormat, error) {
	if rfc == nil {
		return &ResponseFormat{Type: ResponseFormatText}, nil
	}
	switch rfc.Type {
	case ResponseFormatText, "":
		return &ResponseFormat{Type: ResponseFormatText}, nil
	case ResponseFormatJsonObject:
		return &ResponseFormat{Type: ResponseFormatJsonObject}, nil
	case ResponseFormatJsonSchema:
		if rfc.Schema != "" {
			return &ResponseFormat{Type: ResponseFormatJsonSchema, Schema: rfc.Schema}, nil
		}
		if rfc.ResponseTypeName != "" {
			resolved, err := schemas.ResolveResponseType(rfc.ResponseTypeName)
			if err != nil {
				// Unresolvable named type: downgrade rather than fail the build.
				return &ResponseFormat{Type: ResponseFormatJsonObject}, nil
			}
			return &ResponseFormat{Type: ResponseFormatJsonSchema, Schema: resolved}, nil
		}
		return nil, fmt.Errorf("responseFormatConfig: JsonSchema requires schema or responseTypeName")
	default:
		return nil, fmt.Errorf("responseFormatConfig: unknown type %q", rfc.Type)
	}
}

func resolveFunctions(cfg *FunctionsDefinition, schemas *schema.Registry) ([]ResolvedFunction, error) {
	if cfg == nil {
		return nil, nil
	}
	out := make([]ResolvedFunction, 0, len(cfg.Functions))
	for _, fd := range cfg.Functions {
		rf, err := resolveFunctionDefinition(fd, schemas)
		if err != nil {
			return nil, err
		}
		out = append(out, rf)
	}
	return out, nil
}

func resolveTools(tools []ToolDefinition, schemas *schema.Registry) ([]ResolvedFunction, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	out := make([]ResolvedFunction, 0, len(tools))
	for _, td := range tools {
		rf, err := resolveFunctionDefinition(td.Function, schemas)
		if err != nil {
			return nil, err
		}
		out = append(out, rf)
	}
	return out, nil
}

func resolveFunctionDefinition(fd FunctionDefinition, schemas *schema.Registry) (ResolvedFunction, error) {
	rf := ResolvedFunction{Name: fd.Name, Description: fd.Description}
	switch {
	case fd.ParametersType != "":
		resolved, err := schemas.ResolveResponseType(fd.ParametersType)
		if err != nil {
			rf.Parameters = "{}"
		} else {
			rf.Parameters = resolved
		}
	case fd.Parameters != "":
		rf.Parameters = fd.Parameters
	default:
		rf.Parameters = "{}"
	}
	return rf, nil
}

func resolveFunctionCall(cfg *FunctionsDefinition) FunctionCallPolicy {
	if cfg == nil || cfg.FunctionCall == "" || cfg.FunctionCall == "auto" {
		return FunctionCallPolicy{Mode: FunctionCallAuto}
	}
	if cfg.FunctionCall == "none" {
		return FunctionCallPolicy{Mode: FunctionCallNone}
	}
	return FunctionCallPolicy{Mode: FunctionCallSpecific, Name: cfg.FunctionCall}
}

func firstNonNil(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}

func firstNonNilInt(a, b *int) *int {
	if a != nil {
		return a
	}
	return b
}
