package runtrigger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRequest_Defaults(t *testing.T) {
	env := Environment{Type: EnvironmentProduction}
	body := TriggerTaskRequestBody{Payload: json.RawMessage(`{"a":1}`)}

	req, err := normalizeRequest("send-email", body, env)
	require.NoError(t, err)

	assert.Equal(t, "application/json", req.PayloadType)
	assert.Equal(t, "application/json", req.MetadataType)
	assert.Equal(t, "task", req.CustomIcon)
	assert.False(t, req.IsTest)
	assert.Nil(t, req.TTL)
	assert.Nil(t, req.Tags)
}

func TestNormalizeRequest_DevelopmentDefaultTTL(t *testing.T) {
	env := Environment{Type: EnvironmentDevelopment}
	body := TriggerTaskRequestBody{Payload: json.RawMessage(`{}`)}

	req, err := normalizeRequest("send-email", body, env)
	require.NoError(t, err)

	require.NotNil(t, req.TTL)
	assert.Equal(t, "10m", *req.TTL)
}

func TestNormalizeRequest_NumericTTLStringified(t *testing.T) {
	env := Environment{Type: EnvironmentProduction}
	body := TriggerTaskRequestBody{
		Payload: json.RawMessage(`{}`),
		Options: &TriggerTaskOptions{TTL: json.RawMessage(`3661`)},
	}

	req, err := normalizeRequest("send-email", body, env)
	require.NoError(t, err)

	require.NotNil(t, req.TTL)
	assert.Equal(t, "1h1m1s", *req.TTL)
}

func TestNormalizeRequest_StringTagLifted(t *testing.T) {
	env := Environment{Type: EnvironmentProduction}
	body := TriggerTaskRequestBody{
		Payload: json.RawMessage(`{}`),
		Options: &TriggerTaskOptions{Tags: json.RawMessage(`"welcome"`)},
	}

	req, err := normalizeRequest("send-email", body, env)
	require.NoError(t, err)

	assert.Equal(t, []string{"welcome"}, req.Tags)
}

func TestNormalizeRequest_MissingPayloadFailsValidation(t *testing.T) {
	env := Environment{Type: EnvironmentProduction}
	body := TriggerTaskRequestBody{}

	_, err := normalizeRequest("send-email", body, env)
	require.Error(t, err)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestNormalizeRequest_MaxAttemptsOutOfRangeFailsValidation(t *testing.T) {
	env := Environment{Type: EnvironmentProduction}
	tooMany := int32(1000)
	body := TriggerTaskRequestBody{
		Payload: json.RawMessage(`{}`),
		Options: &TriggerTaskOptions{MaxAttempts: &tooMany},
	}

	_, err := normalizeRequest("send-email", body, env)
	require.Error(t, err)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestNormalizeRequest_TooManyTagsFails(t *testing.T) {
	env := Environment{Type: EnvironmentProduction}
	tags, _ := json.Marshal([]string{"a", "b", "c", "d", "e", "f", "g", "h", "i"})
	body := TriggerTaskRequestBody{
		Payload: json.RawMessage(`{}`),
		Options: &TriggerTaskOptions{Tags: json.RawMessage(tags)},
	}

	_, err := normalizeRequest("send-email", body, env)
	require.Error(t, err)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Error(), "8")
}
