package api

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Normalizers in this file are total: any input shape, including nil,
// arrays, and primitives, yields a fully-defaulted value. Field access on a
// default-constructed entity is always safe.

type Envelope struct {
	Success   bool
	Data      any
	Timestamp *string
}

func EnvelopeFrom(input any) Envelope {
	obj, ok := asObject(input)
	if !ok {
		return Envelope{}
	}
	return Envelope{
		Success:   truthy(obj["success"]),
		Data:      obj["data"],
		Timestamp: asString(obj["timestamp"]),
	}
}

type Price struct {
	Credits     *float64
	IncludedFee *float64
}

func PriceFrom(input any) Price {
	obj, ok := asObject(input)
	if !ok {
		return Price{}
	}
	return Price{
		Credits:     asFiniteFloat(obj["credits"]),
		IncludedFee: asFiniteFloat(obj["includedFee"]),
	}
}

type Tag struct {
	Name *string
}

func TagFrom(input any) Tag {
	obj, ok := asObject(input)
	if !ok {
		return Tag{}
	}
	return Tag{Name: asString(obj["name"])}
}

type Agent struct {
	ID          *string
	Name        *string
	Description *string
	Status      *string
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
	IsNew       bool
	IsShown     bool
	Price       Price
	Tags        []Tag
}

func AgentFrom(input any) Agent {
	obj, ok := asObject(input)
	if !ok {
		return Agent{Tags: []Tag{}}
	}
	tags := []Tag{}
	if list, ok := obj["tags"].([]any); ok {
		for _, item := range list {
			tags = append(tags, TagFrom(item))
		}
	}
	return Agent{
		ID:          asString(obj["id"]),
		Name:        asString(obj["name"]),
		Description: asString(obj["description"]),
		Status:      asString(obj["status"]),
		CreatedAt:   asTime(obj["createdAt"]),
		UpdatedAt:   asTime(obj["updatedAt"]),
		IsNew:       truthy(obj["isNew"]),
		IsShown:     truthy(obj["isShown"]),
		Price:       PriceFrom(obj["price"]),
		Tags:        tags,
	}
}

// TagNames returns the non-empty tag names in order.
func (a Agent) TagNames() []string {
	names := []string{}
	for _, tag := range a.Tags {
		if tag.Name != nil && strings.TrimSpace(*tag.Name) != "" {
			names = append(names, *tag.Name)
		}
	}
	return names
}

// JobPayload is the input/output of a job. The wire value is either a
// literal string (kept verbatim) or an arbitrary JSON value (serialized);
// when the text parses as a JSON object the parsed form is kept alongside
// so consumers do not re-parse.
type JobPayload struct {
	text   string
	null   bool
	object map[string]any
}

func PayloadFrom(input any) JobPayload {
	switch value := input.(type) {
	case nil:
		return JobPayload{null: true}
	case string:
		payload := JobPayload{text: value}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(value), &parsed); err == nil {
			payload.object = parsed
		}
		return payload
	default:
		if !truthy(value) {
			return JobPayload{null: true}
		}
		buf, err := json.Marshal(value)
		if err != nil {
			return JobPayload{null: true}
		}
		payload := JobPayload{text: string(buf)}
		if obj, ok := value.(map[string]any); ok {
			payload.object = obj
		}
		return payload
	}
}

func (p JobPayload) IsNull() bool { return p.null }

func (p JobPayload) Text() string { return p.text }

// Object reports the parsed JSON object form, when the payload has one.
func (p JobPayload) Object() (map[string]any, bool) {
	if p.object == nil {
		return nil, false
	}
	return p.object, true
}

// HasContent reports whether the payload carries non-blank text. Jobs whose
// output fails this test are treated as result-less.
func (p JobPayload) HasContent() bool {
	return !p.null && strings.TrimSpace(p.text) != ""
}

type AgentJob struct {
	ID                *string
	Name              *string
	Status            *string
	AgentID           *string
	UserID            *string
	OrganizationID    *string
	AgentJobID        *string
	AgentJobStatus    *string
	OnChainStatus     *string
	Input             JobPayload
	Output            JobPayload
	CreatedAt         *time.Time
	UpdatedAt         *time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
	ResultSubmittedAt *time.Time
	IsDemo            bool
	JobStatusSettled  bool
	Price             Price
	Refund            any
}

func AgentJobFrom(input any) AgentJob {
	obj, ok := asObject(input)
	if !ok {
		return AgentJob{
			Input:  JobPayload{null: true},
			Output: JobPayload{null: true},
		}
	}
	return AgentJob{
		ID:                asString(obj["id"]),
		Name:              asString(obj["name"]),
		Status:            asString(obj["status"]),
		AgentID:           asString(obj["agentId"]),
		UserID:            asString(obj["userId"]),
		OrganizationID:    asString(obj["organizationId"]),
		AgentJobID:        asString(obj["agentJobId"]),
		AgentJobStatus:    asString(obj["agentJobStatus"]),
		OnChainStatus:     asString(obj["onChainStatus"]),
		Input:             PayloadFrom(obj["input"]),
		Output:            PayloadFrom(obj["output"]),
		CreatedAt:         asTime(obj["createdAt"]),
		UpdatedAt:         asTime(obj["updatedAt"]),
		StartedAt:         asTime(obj["startedAt"]),
		CompletedAt:       asTime(obj["completedAt"]),
		ResultSubmittedAt: asTime(obj["resultSubmittedAt"]),
		IsDemo:            truthy(obj["isDemo"]),
		JobStatusSettled:  truthy(obj["jobStatusSettled"]),
		Price:             PriceFrom(obj["price"]),
		Refund:            obj["refund"],
	}
}

// Key is the job's display identity: id, falling back to agentJobId.
func (j AgentJob) Key() string {
	if j.ID != nil && *j.ID != "" {
		return *j.ID
	}
	if j.AgentJobID != nil {
		return *j.AgentJobID
	}
	return ""
}

type User struct {
	ID               *string
	Name             *string
	Email            *string
	StripeCustomerID *string
	TermsAccepted    bool
	MarketingOptIn   bool
	CreatedAt        *time.Time
	UpdatedAt        *time.Time
}

func UserFrom(input any) User {
	obj, ok := asObject(input)
	if !ok {
		return User{}
	}
	return User{
		ID:               asString(obj["id"]),
		Name:             asString(obj["name"]),
		Email:            asString(obj["email"]),
		StripeCustomerID: asString(obj["stripeCustomerId"]),
		TermsAccepted:    truthy(obj["termsAccepted"]),
		MarketingOptIn:   truthy(obj["marketingOptIn"]),
		CreatedAt:        asTime(obj["createdAt"]),
		UpdatedAt:        asTime(obj["updatedAt"]),
	}
}

// FieldDescriptor is one entry of an agent's declared input schema.
type FieldDescriptor struct {
	ID          string
	Type        string
	Name        string
	Data        map[string]any
	Validations []any
}

func FieldDescriptorFrom(input any) FieldDescriptor {
	obj, ok := asObject(input)
	if !ok {
		return FieldDescriptor{Data: map[string]any{}, Validations: []any{}}
	}
	field := FieldDescriptor{
		Data:        map[string]any{},
		Validations: []any{},
	}
	if id := asString(obj["id"]); id != nil {
		field.ID = *id
	}
	if kind := asString(obj["type"]); kind != nil {
		field.Type = *kind
	}
	if name := asString(obj["name"]); name != nil {
		field.Name = *name
	}
	if field.Name == "" {
		field.Name = field.ID
	}
	if data, ok := asObject(obj["data"]); ok {
		field.Data = data
	}
	if list, ok := obj["validations"].([]any); ok {
		field.Validations = list
	}
	return field
}

func asObject(input any) (map[string]any, bool) {
	obj, ok := input.(map[string]any)
	if !ok || obj == nil {
		return nil, false
	}
	return obj, true
}

func asString(value any) *string {
	text, ok := value.(string)
	if !ok {
		return nil
	}
	return &text
}

// asFiniteFloat accepts JSON numbers only; NaN, infinities, strings, and
// anything else normalize to nil rather than zero.
func asFiniteFloat(value any) *float64 {
	var number float64
	switch typed := value.(type) {
	case float64:
		number = typed
	case int:
		number = float64(typed)
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return nil
		}
		number = parsed
	default:
		return nil
	}
	if math.IsNaN(number) || math.IsInf(number, 0) {
		return nil
	}
	return &number
}

// truthy coerces the way JavaScript Boolean() does: nil, false, zero, NaN,
// and the empty string are false, everything else true.
func truthy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return typed != ""
	case float64:
		return typed != 0 && !math.IsNaN(typed)
	case int:
		return typed != 0
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return true
		}
		return parsed != 0 && !math.IsNaN(parsed)
	default:
		return true
	}
}

// asTime parses ISO-like timestamp strings. Malformed or non-string input
// normalizes to nil, matching the numeric and boolean defaulting rules.
func asTime(value any) *time.Time {
	text, ok := value.(string)
	if !ok {
		return nil
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	for _, layout := range []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return &parsed
		}
	}
	return nil
}
