package runtrigger

import (
	"encoding/json"
	"strconv"

	"github.com/go-playground/validator/v10"
)

const defaultDevTTL = "10m"

// requestValidator runs the struct-tag shape checks on TriggerTaskRequestBody
// ahead of any field-by-field normalization below. A single *validator.Validate
// is safe for concurrent use and caches struct metadata across calls.
var requestValidator = validator.New()

// normalizeRequest implements C1: canonicalizes options and validates
// shape, ahead of any collaborator call.
func normalizeRequest(taskID string, body TriggerTaskRequestBody, environment Environment) (*NormalizedRequest, error) {
	if err := requestValidator.Struct(body); err != nil {
		return nil, validationErrorf("invalid trigger request: %s", err.Error())
	}

	opts := body.Options
	if opts == nil {
		opts = &TriggerTaskOptions{}
	}

	payloadType := "application/json"
	if opts.PayloadType != nil && *opts.PayloadType != "" {
		payloadType = *opts.PayloadType
	}
	metadataType := "application/json"
	if opts.MetadataType != nil && *opts.MetadataType != "" {
		metadataType = *opts.MetadataType
	}

	ttl, err := normalizeTTL(opts.TTL, environment)
	if err != nil {
		return nil, err
	}

	tags, err := normalizeTags(opts.Tags)
	if err != nil {
		return nil, err
	}

	customIcon := "task"
	if opts.CustomIcon != nil && *opts.CustomIcon != "" {
		customIcon = *opts.CustomIcon
	}

	isTest := false
	if opts.Test != nil {
		isTest = *opts.Test
	}

	return &NormalizedRequest{
		TaskID:           taskID,
		Payload:          body.Payload,
		PayloadType:      payloadType,
		Metadata:         opts.Metadata,
		MetadataType:     metadataType,
		IdempotencyKey:   opts.IdempotencyKey,
		Delay:            opts.Delay,
		TTL:              ttl,
		Tags:             tags,
		CustomIcon:       customIcon,
		IsTest:           isTest,
		ConcurrencyKey:   opts.ConcurrencyKey,
		Queue:            opts.Queue,
		LockToVersion:    opts.LockToVersion,
		MaxAttempts:      opts.MaxAttempts,
		DependentAttempt: opts.DependentAttempt,
		ParentAttempt:    opts.ParentAttempt,
		DependentBatch:   opts.DependentBatch,
		ParentBatch:      opts.ParentBatch,
	}, nil
}

// normalizeTTL resolves a ttl that may arrive as a JSON number (seconds) or
// a JSON string (already a duration). Absent in a DEVELOPMENT environment
// defaults to "10m"; absent elsewhere stays nil.
func normalizeTTL(raw json.RawMessage, environment Environment) (*string, error) {
	if len(raw) == 0 {
		if environment.IsDevelopment() {
			ttl := defaultDevTTL
			return &ttl, nil
		}
		return nil, nil
	}

	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		stringified := StringifyDuration(int64(asNumber))
		if stringified == "" {
			return nil, nil
		}
		return &stringified, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return &asString, nil
	}

	return nil, validationErrorf("ttl must be a number of seconds or a duration string")
}

// normalizeTags lifts a single tag string into a one-element slice and
// rejects a tag list longer than MaxTagsPerRun.
func normalizeTags(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return []string{asString}, nil
	}

	var asSlice []string
	if err := json.Unmarshal(raw, &asSlice); err == nil {
		if len(asSlice) > MaxTagsPerRun {
			return nil, maxTagsExceededError(len(asSlice))
		}
		return asSlice, nil
	}

	return nil, validationErrorf("tags must be a string or an array of strings, got: %s", strconv.Quote(string(raw)))
}
