package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCleanJSON(t *testing.T) {
	cmd := Parse(`{"action":"control","domain":"light","entity_id":"light.kitchen","service":"turn_on"}`)
	require.NotNil(t, cmd)
	assert.Equal(t, "control", cmd.Action)
	assert.Equal(t, "light.kitchen", cmd.EntityID)
	assert.Equal(t, "turn_on", cmd.Service)
}

func TestParseMarkdownFence(t *testing.T) {
	cmd := Parse("```json\n{\"action\":\"query\",\"query_type\":\"status\",\"sub_type\":\"windows\"}\n```")
	require.NotNil(t, cmd)
	assert.Equal(t, "query", cmd.Action)
	assert.Equal(t, "windows", cmd.SubType)
}

func TestParseJSONEmbeddedInProse(t *testing.T) {
	cmd := Parse(`Sure, turning it on now: {"action":"control","entity_id":"light.bedroom","service":"turn_on"} Done!`)
	require.NotNil(t, cmd)
	assert.Equal(t, "light.bedroom", cmd.EntityID)
}

func TestParseNestedObject(t *testing.T) {
	cmd := Parse(`{"action":"control","entity_id":"light.kitchen","service":"turn_on","data":{"brightness_pct":50}}`)
	require.NotNil(t, cmd)
	assert.Equal(t, "light.kitchen", cmd.EntityID)
	require.NotNil(t, cmd.Data)
	assert.Equal(t, float64(50), cmd.Data["brightness_pct"])
}

func TestParseBatch(t *testing.T) {
	cmd := Parse(`{"action":"control_multiple","commands":[{"action":"control","entity_id":"light.a","service":"turn_on"},{"action":"control","entity_id":"light.b","service":"turn_off"}]}`)
	require.NotNil(t, cmd)
	assert.Equal(t, "control_multiple", cmd.Action)
	require.Len(t, cmd.Commands, 2)
	assert.Equal(t, "light.b", cmd.Commands[1].EntityID)
}

func TestParsePlainChatReturnsNil(t *testing.T) {
	assert.Nil(t, Parse("The weather today is sunny with a light breeze."))
}

func TestRepairTruncatedControl(t *testing.T) {
	// Truncated completion: closing brace missing.
	cmd := Parse(`{"action":"control","entity_id":"light.kitchen","service":"turn_off",`)
	require.NotNil(t, cmd)
	assert.Equal(t, ActionControl, cmd.Action)
	assert.Equal(t, "light.kitchen", cmd.EntityID)
	assert.Equal(t, "light", cmd.Domain)
	assert.Equal(t, "turn_off", cmd.Service)
}

func TestRepairAbbreviatedAction(t *testing.T) {
	cmd := Parse(`"action":"cont" "entity_id":"switch.heater" "state":"off"`)
	require.NotNil(t, cmd)
	assert.Equal(t, ActionControl, cmd.Action)
	assert.Equal(t, "switch.heater", cmd.EntityID)
	assert.Equal(t, "switch", cmd.Domain)
	assert.Equal(t, "turn_off", cmd.Service)
}

func TestRepairExtractsColorAndBrightness(t *testing.T) {
	cmd := Parse(`"entity_id":"light.kitchen", "rgb_color": [255, 0, 0], "brightness": 128,`)
	require.NotNil(t, cmd)
	assert.Equal(t, "turn_on", cmd.Service)
	assert.Equal(t, []interface{}{float64(255), float64(0), float64(0)}, cmd.Data["rgb_color"])
	assert.Equal(t, float64(50), cmd.Data["brightness_pct"], "0-255 brightness rescales to percent")
}

func TestRepairQueryDefaultsToTemperatures(t *testing.T) {
	cmd := Parse(`"action":"query" and some broken trailing text`)
	require.NotNil(t, cmd)
	assert.Equal(t, ActionQuery, cmd.Action)
	assert.Equal(t, "status", cmd.QueryType)
	assert.Equal(t, "temperatures", cmd.SubType)
}

func TestRepairQueryWithType(t *testing.T) {
	cmd := Parse(`"action":"query", "sub_type":"battery" oops`)
	require.NotNil(t, cmd)
	assert.Equal(t, "battery", cmd.SubType)
}

func TestNormalizeAction(t *testing.T) {
	assert.Equal(t, ActionControl, NormalizeAction("cont"))
	assert.Equal(t, ActionControl, NormalizeAction(" CTRL "))
	assert.Equal(t, ActionControl, NormalizeAction("c"))
	assert.Equal(t, ActionQuery, NormalizeAction("ask"))
	assert.Equal(t, ActionQuery, NormalizeAction("get"))
	assert.Equal(t, ActionControlMultiple, NormalizeAction("batch"))
	assert.Equal(t, "", NormalizeAction("dance"))
}

func TestReportType(t *testing.T) {
	cmd := &Command{SubType: "windows", Type: "battery"}
	assert.Equal(t, "windows", cmd.ReportType())

	cmd = &Command{Data: map[string]interface{}{"type": "energy"}}
	assert.Equal(t, "energy", cmd.ReportType())

	cmd = &Command{Data: map[string]interface{}{"sub_type": "motion"}}
	assert.Equal(t, "motion", cmd.ReportType())

	cmd = &Command{Type: "humidity"}
	assert.Equal(t, "humidity", cmd.ReportType())
}
