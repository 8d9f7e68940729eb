package scenario_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairos-run/orchestrator/orcherr"
	"github.com/kairos-run/orchestrator/scenario"
	"github.com/kairos-run/orchestrator/schema"
)

func ptr[T any](v T) *T { return &v }

func TestLoadFileYAML(t *testing.T) {
	raw := []byte(`
name: echo
version: "1"
validModels: ["gpt-4o"]
stages:
  - id: 1
    name: say-hi
    userPrompts:
      - template: "hello {{name}}"
`)
	def, err := scenario.LoadFile("echo.yaml", raw)
	require.NoError(t, err)
	assert.Equal(t, "echo", def.Name)
	assert.Equal(t, []string{"gpt-4o"}, def.ValidModels)
	require.Len(t, def.Stages, 1)
	assert.Equal(t, 1, def.Stages[0].ID)
}

func TestLoadFileUnsupportedExtension(t *testing.T) {
	_, err := scenario.LoadFile("echo.txt", []byte("x"))
	assert.True(t, orcherr.Is(err, orcherr.InvalidDefinition))
}

func TestValidateCatchesMissingFields(t *testing.T) {
	def := &scenario.Definition{}
	errs := scenario.Validate(def)
	assert.NotEmpty(t, errs)
}

func TestValidateRejectsJsonSchemaWithBothOrNeitherField(t *testing.T) {
	def := &scenario.Definition{
		Name:        "s",
		ValidModels: []string{"m"},
		Stages: []scenario.StageDefinition{{
			ID: 1,
			UserPrompts: []scenario.UserPromptDefinition{{
				Template: "hi",
				ResponseFormatConfig: &scenario.ResponseFormatConfig{
					Type: scenario.ResponseFormatJsonSchema,
				},
			}},
		}},
	}
	errs := scenario.Validate(def)
	assert.NotEmpty(t, errs)

	rfc := def.Stages[0].UserPrompts[0].ResponseFormatConfig
	rfc.Schema = `{"type":"object"}`
	rfc.ResponseTypeName = "WeatherResponse"
	assert.NotEmpty(t, scenario.Validate(def))
}

func TestBuildDowngradesUnresolvableResponseType(t *testing.T) {
	def := &scenario.Definition{
		Name:        "s",
		ValidModels: []string{"m"},
		Stages: []scenario.StageDefinition{{
			ID: 1,
			UserPrompts: []scenario.UserPromptDefinition{{
				Template: "hi",
				ResponseFormatConfig: &scenario.ResponseFormatConfig{
					Type:             scenario.ResponseFormatJsonSchema,
					ResponseTypeName: "Missing",
				},
			}},
		}},
	}
	rs, err := scenario.Build(def, schema.NewRegistry())
	require.NoError(t, err)
	require.Len(t, rs.Stages, 1)
	require.Len(t, rs.Stages[0].Turns, 1)
	rf := rs.Stages[0].Turns[0].Parameters.ResponseFormat
	require.NotNil(t, rf)
	assert.Equal(t, scenario.ResponseFormatJsonObject, rf.Type)
}

func TestBuildUsesLiteralSchemaVerbatim(t *testing.T) {
	def := &scenario.Definition{
		Name:        "s",
		ValidModels: []string{"m"},
		Stages: []scenario.StageDefinition{{
			ID: 1,
			UserPrompts: []scenario.UserPromptDefinition{{
				Template: "hi",
				ResponseFormatConfig: &scenario.ResponseFormatConfig{
					Type:   scenario.ResponseFormatJsonSchema,
					Schema: `{"type":"object"}`,
				},
			}},
		}},
	}
	rs, err := scenario.Build(def, schema.NewRegistry())
	require.NoError(t, err)
	rf := rs.Stages[0].Turns[0].Parameters.ResponseFormat
	assert.Equal(t, `{"type":"object"}`, rf.Schema)
}

func TestBuildMergesStageFallbacksIntoTurnParameters(t *testing.T) {
	def := &scenario.Definition{
		Name:        "s",
		ValidModels: []string{"m"},
		Stages: []scenario.StageDefinition{{
			ID:          1,
			Temperature: ptr(0.2),
			UserPrompts: []scenario.UserPromptDefinition{{Template: "hi"}},
		}},
	}
	rs, err := scenario.Build(def, schema.NewRegistry())
	require.NoError(t, err)
	require.NotNil(t, rs.Stages[0].Turns[0].Parameters.Temperature)
	assert.Equal(t, 0.2, *rs.Stages[0].Turns[0].Parameters.Temperature)
}

func TestBuildSystemTurnOmittedWhenEmpty(t *testing.T) {
	def := &scenario.Definition{
		Name:        "s",
		ValidModels: []string{"m"},
		Stages: []scenario.StageDefinition{{
			ID:          1,
			UserPrompts: []scenario.UserPromptDefinition{{Template: "hi"}},
		}},
	}
	rs, err := scenario.Build(def, schema.NewRegistry())
	require.NoError(t, err)
	require.Len(t, rs.Stages[0].Turns, 1)
	assert.Equal(t, scenario.RoleUser, rs.Stages[0].Turns[0].Role)
}
