package runtrigger

import "encoding/json"

// TriggerTaskOptions is the `options` object of a trigger request, matching
// spec §6 field-for-field. Fields that accept more than one JSON shape
// (tags, ttl) are kept as raw JSON and resolved by the normalizer; struct
// tags carry the shape checks validator/v10 runs ahead of normalization.
type TriggerTaskOptions struct {
	IdempotencyKey   *string         `json:"idempotencyKey,omitempty" validate:"omitempty,max=256"`
	Delay            *string         `json:"delay,omitempty"`
	TTL              json.RawMessage `json:"ttl,omitempty"`
	Tags             json.RawMessage `json:"tags,omitempty"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	MetadataType     *string         `json:"metadataType,omitempty"`
	PayloadType      *string         `json:"payloadType,omitempty"`
	ConcurrencyKey   *string         `json:"concurrencyKey,omitempty" validate:"omitempty,max=256"`
	Queue            *QueueOption    `json:"queue,omitempty"`
	LockToVersion    *string         `json:"lockToVersion,omitempty"`
	MaxAttempts      *int32          `json:"maxAttempts,omitempty" validate:"omitempty,min=1,max=100"`
	Test             *bool           `json:"test,omitempty"`
	DependentAttempt *string         `json:"dependentAttempt,omitempty"`
	ParentAttempt    *string         `json:"parentAttempt,omitempty"`
	DependentBatch   *string         `json:"dependentBatch,omitempty"`
	ParentBatch      *string         `json:"parentBatch,omitempty"`
	CustomIcon       *string         `json:"customIcon,omitempty"`
}

// QueueOption is the `options.queue` sub-object.
type QueueOption struct {
	Name             *string `json:"name,omitempty" validate:"omitempty,max=256"`
	ConcurrencyLimit *int32  `json:"concurrencyLimit,omitempty" validate:"omitempty,min=1"`
}

// TriggerTaskRequestBody is the request accepted by the enclosing API and
// normalized by C1.
type TriggerTaskRequestBody struct {
	Payload json.RawMessage     `json:"payload" validate:"required"`
	Context json.RawMessage     `json:"context,omitempty"`
	Options *TriggerTaskOptions `json:"options,omitempty" validate:"omitempty"`
}

// NormalizedRequest is C1's output: every option resolved to its concrete
// Go type, ready for the idempotency gate onward.
type NormalizedRequest struct {
	TaskID         string
	Payload        json.RawMessage
	PayloadType    string
	Metadata       json.RawMessage
	MetadataType   string
	IdempotencyKey *string
	Delay          *string
	TTL            *string
	Tags           []string
	CustomIcon     string
	IsTest         bool
	ConcurrencyKey *string
	Queue          *QueueOption
	LockToVersion  *string
	MaxAttempts    *int32
	DependentAttempt *string
	ParentAttempt    *string
	DependentBatch   *string
	ParentBatch      *string
}

// maxTagsExceededError builds the validation error message C1 raises when
// the caller supplies more tags than MaxTagsPerRun allows.
func maxTagsExceededError(requested int) error {
	return validationErrorf("a run can have a maximum of %d tags, got %d", MaxTagsPerRun, requested)
}
