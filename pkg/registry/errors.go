package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrIntegrity  = errors.New("integrity violation")
)

// Entity kinds used in error messages and blocker maps.
const (
	KindOperator          = "operator"
	KindFleet             = "fleet"
	KindManufacturer      = "manufacturer"
	KindVesselType        = "vessel type"
	KindSensorClass       = "sensor class"
	KindSensorType        = "sensor type"
	KindVessel            = "vessel"
	KindSensor            = "sensor"
	KindRequirement       = "sensor requirement"
	KindLocation          = "location"
	KindAisData           = "AIS record"
	KindRoutePoint        = "route point"
	KindSensorReading     = "sensor reading"
	KindMaintenanceRecord = "maintenance record"
	KindAlert             = "alert"
	KindWeatherData       = "weather observation"
	KindVesselParameter   = "vessel parameter"
)

// NotFoundError reports a missing entity, either looked up directly or
// referenced by a foreign key in a payload.
type NotFoundError struct {
	Kind string
	ID   any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFound(kind string, id any) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// ValidationError reports a violated invariant or a malformed payload.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validation rule identifiers carried by ValidationError.Rule.
const (
	RuleFleetOperator        = "fleet_operator"
	RuleSensorCompatible     = "sensor_compatibility"
	RuleDuplicateRequirement = "duplicate_requirement"
	RuleQuantity             = "quantity"
	RuleUniqueName           = "unique_name"
	RulePayload              = "payload"
	RuleUniqueIdentifier     = "unique_identifier"
	RuleOwnership            = "ownership"
)

func invalid(rule, format string, args ...any) error {
	return &ValidationError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// DependencyError reports a deletion blocked by dependents. Blockers maps a
// dependent kind to the number of rows referencing the entity.
type DependencyError struct {
	Kind     string
	ID       any
	Blockers map[string]int64
	Reason   string
}

// Count is the total number of blocking rows.
func (e *DependencyError) Count() int64 {
	var n int64
	for _, c := range e.Blockers {
		n += c
	}
	return n
}

func (e *DependencyError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot delete %s %v: %s", e.Kind, e.ID, e.Reason)
	}
	kinds := make([]string, 0, len(e.Blockers))
	for k := range e.Blockers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%d %s(s)", e.Blockers[k], k))
	}
	return fmt.Sprintf("cannot delete %s %v: referenced by %s", e.Kind, e.ID, strings.Join(parts, " and "))
}

func (e *DependencyError) Is(target error) bool { return target == ErrConflict }

// IntegrityError wraps a store-level constraint violation that no pre-check
// anticipated.
type IntegrityError struct {
	Op  string
	Err error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: integrity violation: %v", e.Op, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// isConstraintViolation reports whether err is one of the constraint errors
// GORM produces with TranslateError enabled.
func isConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}
	// sqlite reports CHECK failures without a translated sentinel.
	return strings.Contains(strings.ToLower(err.Error()), "constraint failed")
}

// classify leaves typed errors alone and turns store constraint violations
// into IntegrityError. Anything else is wrapped with op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		nf *NotFoundError
		ve *ValidationError
		de *DependencyError
		ie *IntegrityError
	)
	switch {
	case errors.As(err, &nf), errors.As(err, &ve), errors.As(err, &de), errors.As(err, &ie):
		return err
	case isConstraintViolation(err):
		return &IntegrityError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
