//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of imdbclean.
//
// imdbclean is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// imdbclean is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with imdbclean. If not, see https://www.gnu.org/licenses/.

// validators.go - Data quality validation of the cleaned row set
package validators

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Atim-01/imdbclean/core"
)

// ErrValidationFailed is returned (wrapped) by a strict validator with findings.
var ErrValidationFailed = errors.New("data quality validation failed")

// DataQualityValidator implements core.Validator.
// It checks record counts, field presence and per-field rules, and collects every
// violation as a Finding. Findings are logged; a strict validator also fails.
type DataQualityValidator struct {
	MinRecords      int                       // Minimum number of records required
	RequiredFields  []string                  // Fields that must be present in all records
	ForbiddenFields []string                  // Fields that must not be present
	FieldValidators map[string]FieldValidator // Per-field validation rules
	Strict          bool                      // Fail when any finding is reported
	MaxLogged       int                       // Findings logged individually (0 = all)
	Logger          *zap.Logger

	mu       sync.Mutex
	findings []Finding
}

// FieldValidator defines validation rules for individual fields.
// The missing-marker always passes.
type FieldValidator struct {
	DataType      FieldDataType                   // Expected data type
	Pattern       *regexp.Regexp                  // Regex pattern for string fields
	ForbidChars   string                          // Characters that must not appear in string values
	MinValue      interface{}                     // Minimum value (for numeric fields)
	MaxValue      interface{}                     // Maximum value (for numeric fields)
	AllowedValues []interface{}                   // Whitelist of allowed values
	CustomFunc    func(interface{}) (bool, error) // Custom validation function
}

// FieldDataType represents expected data types for validation
type FieldDataType string

const (
	FieldTypeString FieldDataType = "string"
	FieldTypeInt    FieldDataType = "int"
	FieldTypeFloat  FieldDataType = "float"
	FieldTypeBool   FieldDataType = "bool"
	FieldTypeDate   FieldDataType = "date"
	FieldTypeAny    FieldDataType = "any"
)

// Finding describes one violation.
type Finding struct {
	Record  int
	Field   string
	Message string
}

func (f Finding) String() string {
	if f.Record < 0 {
		return f.Message
	}
	return fmt.Sprintf("record %d field %s: %s", f.Record, f.Field, f.Message)
}

// ValidationError carries the findings of a failed strict validation.
type ValidationError struct {
	Findings []Finding
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%v: %d finding(s)", ErrValidationFailed, len(e.Findings))
	if len(e.Findings) > 0 {
		msg += ", first: " + e.Findings[0].String()
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// Validate implements core.Validator.
func (dqv *DataQualityValidator) Validate(ctx context.Context, records []core.Record) error {
	var findings []Finding

	if len(records) < dqv.MinRecords {
		findings = append(findings, Finding{Record: -1, Message: fmt.Sprintf(
			"insufficient records: got %d, need at least %d", len(records), dqv.MinRecords)})
	}

	for idx, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		findings = append(findings, dqv.validateFieldPresence(idx, record)...)
		for fieldName, validator := range dqv.FieldValidators {
			value, exists := record[fieldName]
			if !exists {
				continue
			}
			if msg := validateValue(value, validator); msg != "" {
				findings = append(findings, Finding{Record: idx, Field: fieldName, Message: msg})
			}
		}
	}

	dqv.mu.Lock()
	dqv.findings = findings
	dqv.mu.Unlock()

	dqv.logFindings(findings)
	if dqv.Strict && len(findings) > 0 {
		return &ValidationError{Findings: findings}
	}
	return nil
}

// Findings returns the findings of the last Validate call.
func (dqv *DataQualityValidator) Findings() []Finding {
	dqv.mu.Lock()
	defer dqv.mu.Unlock()
	return append([]Finding(nil), dqv.findings...)
}

func (dqv *DataQualityValidator) logFindings(findings []Finding) {
	logger := dqv.Logger
	if logger == nil {
		return
	}
	for i, f := range findings {
		if dqv.MaxLogged > 0 && i >= dqv.MaxLogged {
			logger.Warn("Further data quality findings suppressed", zap.Int("suppressed", len(findings)-i))
			break
		}
		logger.Warn("Data quality finding",
			zap.Int("record", f.Record),
			zap.String("field", f.Field),
			zap.String("message", f.Message))
	}
	if len(findings) == 0 {
		logger.Info("Data quality checks passed")
	}
}

// validateFieldPresence checks for required and forbidden fields
func (dqv *DataQualityValidator) validateFieldPresence(idx int, record core.Record) []Finding {
	var findings []Finding
	for _, field := range dqv.RequiredFields {
		if _, exists := record[field]; !exists {
			findings = append(findings, Finding{Record: idx, Field: field, Message: "missing required field"})
		}
	}
	for _, field := range dqv.ForbiddenFields {
		if _, exists := record[field]; exists {
			findings = append(findings, Finding{Record: idx, Field: field, Message: "contains forbidden field"})
		}
	}
	return findings
}

// validateValue returns a description of the first rule value breaks, or "".
func validateValue(value interface{}, validator FieldValidator) string {
	if value == nil {
		return ""
	}

	if !validateDataType(value, validator.DataType) {
		return fmt.Sprintf("invalid type %T, expected %s", value, validator.DataType)
	}

	if str, ok := value.(string); ok {
		if validator.Pattern != nil && !validator.Pattern.MatchString(str) {
			return fmt.Sprintf("value %q does not match pattern", str)
		}
		if validator.ForbidChars != "" && strings.ContainsAny(str, validator.ForbidChars) {
			return fmt.Sprintf("value %q contains one of %q", str, validator.ForbidChars)
		}
	}

	if msg := validateRange(value, validator.MinValue, validator.MaxValue); msg != "" {
		return msg
	}

	if len(validator.AllowedValues) > 0 {
		valid := false
		for _, allowedValue := range validator.AllowedValues {
			if value == allowedValue {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Sprintf("value '%v' not in allowed values", value)
		}
	}

	if validator.CustomFunc != nil {
		valid, err := validator.CustomFunc(value)
		if err != nil {
			return fmt.Sprintf("custom validation failed: %v", err)
		}
		if !valid {
			return fmt.Sprintf("value '%v' failed custom validation", value)
		}
	}

	return ""
}

// validateDataType checks if a value matches the expected data type
func validateDataType(value interface{}, expectedType FieldDataType) bool {
	switch expectedType {
	case "", FieldTypeAny:
		return true
	case FieldTypeString:
		_, ok := value.(string)
		return ok
	case FieldTypeInt:
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		}
		return false
	case FieldTypeFloat:
		switch v := value.(type) {
		case float32:
			return !math.IsNaN(float64(v))
		case float64:
			return !math.IsNaN(v)
		}
		return false
	case FieldTypeBool:
		_, ok := value.(bool)
		return ok
	case FieldTypeDate:
		_, ok := value.(time.Time)
		return ok
	default:
		return true
	}
}

// validateRange validates numeric ranges
func validateRange(value, minValue, maxValue interface{}) string {
	if minValue == nil && maxValue == nil {
		return ""
	}

	val, ok := toFloat64(value)
	if !ok {
		return ""
	}

	if minValue != nil {
		if min, ok := toFloat64(minValue); ok && val < min {
			return fmt.Sprintf("value %v below minimum %v", value, minValue)
		}
	}

	if maxValue != nil {
		if max, ok := toFloat64(maxValue); ok && val > max {
			return fmt.Sprintf("value %v above maximum %v", value, maxValue)
		}
	}

	return ""
}

// toFloat64 converts numeric types to float64 for comparison
func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// NewDataQualityValidator creates a validator and applies opts.
func NewDataQualityValidator(minRecords int, requiredFields []string, opts ...DataQualityOption) *DataQualityValidator {
	dqv := &DataQualityValidator{
		MinRecords:      minRecords,
		RequiredFields:  requiredFields,
		FieldValidators: make(map[string]FieldValidator),
	}
	for _, opt := range opts {
		opt(dqv)
	}
	return dqv
}

// DataQualityOption is a functional option for configuring DataQualityValidator
type DataQualityOption func(*DataQualityValidator)

// WithForbiddenFields sets fields that must not be present
func WithForbiddenFields(fields ...string) DataQualityOption {
	return func(dqv *DataQualityValidator) {
		dqv.ForbiddenFields = fields
	}
}

// WithFieldValidator adds a validation rule for a field
func WithFieldValidator(field string, validator FieldValidator) DataQualityOption {
	return func(dqv *DataQualityValidator) {
		dqv.FieldValidators[field] = validator
	}
}

// WithStrict makes findings fail validation.
func WithStrict(strict bool) DataQualityOption {
	return func(dqv *DataQualityValidator) {
		dqv.Strict = strict
	}
}

// WithLogger sets the logger findings are reported to.
func WithLogger(logger *zap.Logger) DataQualityOption {
	return func(dqv *DataQualityValidator) {
		dqv.Logger = logger
	}
}

// WithMaxLogged limits the number of findings logged individually.
func WithMaxLogged(n int) DataQualityOption {
	return func(dqv *DataQualityValidator) {
		dqv.MaxLogged = n
	}
}
