// Package scenario defines the declarative scenario data model (as parsed
// from YAML/JSON files), its runtime lowering, and the loader, validator,
// and builder that connect the two.
package scenario

import "encoding/json"

// Definition is a scenario as parsed from a file: declarative, not yet
// validated or lowered.
type Definition struct {
	Name        string            `json:"name" yaml:"name"`
	Version     string            `json:"version" yaml:"version"`
	Description string            `json:"description" yaml:"description"`
	ValidModels []string          `json:"validModels" yaml:"validModels"`
	Metadata    map[string]string `json:"metadata" yaml:"metadata"`
	Stages      []StageDefinition `json:"stages" yaml:"stages"`
}

// StageDefinition is one stage in a Definition.
type StageDefinition struct {
	ID            int                     `json:"id" yaml:"id"`
	Name          string                  `json:"name" yaml:"name"`
	Description   string                  `json:"description" yaml:"description"`
	SystemPrompt  string                  `json:"systemPrompt" yaml:"systemPrompt"`
	UserPrompts   []UserPromptDefinition  `json:"userPrompts" yaml:"userPrompts"`
	Model         string                  `json:"model" yaml:"model"`
	Functions     *FunctionsDefinition    `json:"functions" yaml:"functions"`
	Tools         []ToolDefinition        `json:"tools" yaml:"tools"`
	Parameters    map[string]any          `json:"parameters" yaml:"parameters"`
	Temperature   *float64                `json:"temperature" yaml:"temperature"`
	TopP          *float64                `json:"topP" yaml:"topP"`
	MaxTokens     *int                    `json:"maxTokens" yaml:"maxTokens"`
}

// UserPromptDefinition is one user-prompt template within a stage.
type UserPromptDefinition struct {
	Template             string                `json:"template" yaml:"template"`
	Parameters           map[string]any        `json:"parameters" yaml:"parameters"`
	Temperature          *float64              `json:"temperature" yaml:"temperature"`
	TopP                 *float64              `json:"topP" yaml:"topP"`
	MaxTokens            *int                  `json:"maxTokens" yaml:"maxTokens"`
	ResponseFormatConfig *ResponseFormatConfig `json:"responseFormatConfig" yaml:"responseFormatConfig"`
}

// ResponseFormatType names the three structured-output shapes a user prompt
// may request.
type ResponseFormatType string

const (
	ResponseFormatText       ResponseFormatType = "Text"
	ResponseFormatJsonObject ResponseFormatType = "JsonObject"
	ResponseFormatJsonSchema ResponseFormatType = "JsonSchema"
)

// ResponseFormatConfig is the declarative form of a response-format request.
// When Type is ResponseFormatJsonSchema, exactly one of Schema or
// ResponseTypeName must be set.
type ResponseFormatConfig struct {
	Type             ResponseFormatType `json:"type" yaml:"type"`
	Schema           string             `json:"schema" yaml:"schema"`
	ResponseTypeName string             `json:"responseTypeName" yaml:"responseTypeName"`
}

// FunctionDefinition describes one callable function: either a literal JSON
// schema for its parameters, or a named type resolved via the schema
// registry.
type FunctionDefinition struct {
	Name           string `json:"name" yaml:"name"`
	Description    string `json:"description" yaml:"description"`
	Parameters     string `json:"parameters" yaml:"parameters"`
	ParametersType string `json:"parametersType" yaml:"parametersType"`
}

// FunctionsDefinition is a stage's function-calling configuration.
type FunctionsDefinition struct {
	Functions    []FunctionDefinition `json:"functions" yaml:"functions"`
	FunctionCall string               `json:"functionCall" yaml:"functionCall"`
}

// ToolDefinition is one entry of a stage's "tools" list (OpenAI-style
// function-tool wrapper).
type ToolDefinition struct {
	Type     string             `json:"type" yaml:"type"`
	Function FunctionDefinition `json:"function" yaml:"function"`
}

// --- Runtime form -----------------------------------------------------

// RuntimeScenario is a Definition lowered by the Builder: ready to execute.
type RuntimeScenario struct {
	Name     string
	Stages   []RuntimeStage
	Metadata map[string]string
}

// RuntimeStage is one stage of a RuntimeScenario.
type RuntimeStage struct {
	ID         int
	Name       string
	Model      string
	ValidModel string // scenario's validModels[0], used as Model Router fallback
	Turns      []PromptTurn
	Parameters map[string]any
}

// Role names the participant in a PromptTurn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// PromptTurn is one message in a stage's conversation.
type PromptTurn struct {
	Role       Role
	Content    string
	Name       string
	Parameters TurnParameters
}

// FunctionCallMode names the stage's function-call policy.
type FunctionCallMode string

const (
	FunctionCallAuto     FunctionCallMode = "auto"
	FunctionCallNone     FunctionCallMode = "none"
	FunctionCallSpecific FunctionCallMode = "specific"
)

// FunctionCallPolicy is the resolved functionCall directive.
type FunctionCallPolicy struct {
	Mode FunctionCallMode
	Name string // set only when Mode == FunctionCallSpecific
}

// ResolvedFunction is a function/tool definition after schema resolution:
// Parameters is always a JSON schema string (possibly "{}" for an
// unspecified/empty schema).
type ResolvedFunction struct {
	Name        string
	Description string
	Parameters  string
}

// ResponseFormat is the resolved structured-output request for one turn.
type ResponseFormat struct {
	Type   ResponseFormatType
	Schema string // non-empty only when Type == ResponseFormatJsonSchema
}

// TurnParameters carries the well-known numeric/structured knobs a turn may
// set, with an Extras escape hatch for anything a scenario file supplies
// that this rendition does not model explicitly.
type TurnParameters struct {
	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	ResponseFormat *ResponseFormat
	Functions      []ResolvedFunction
	Tools          []ResolvedFunction
	FunctionCall   FunctionCallPolicy
	Extras         map[string]any
}

// CompletionResult is the outcome of running one user turn through the LLM
// Adapter.
type CompletionResult struct {
	SessionID    string
	SystemPrompt string
	UserPrompt   PromptTurn
	Content      string
	Metadata     CompletionMetadata
}

// CompletionMetadata carries the provider-reported facts about a completion.
type CompletionMetadata struct {
	ID            string
	Model         string
	FinishReason  string
	ToolCalls     []ToolCallAudit
	InputTokens   *int
	OutputTokens  *int
	TotalTokens   *int
}

// ToolCallAudit records one function invocation made during a conversation
// loop.
type ToolCallAudit struct {
	ID           string
	FunctionName string
	Arguments    json.RawMessage
	Result       json.RawMessage
}
