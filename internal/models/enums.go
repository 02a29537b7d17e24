package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEnum is returned when an external enum value cannot be mapped to a canonical one.
var ErrInvalidEnum = errors.New("invalid enum value")

// enumNames maps a canonical tag to its lowercase external name. Index 0 is the unset tag.
type enumNames []string

func (n enumNames) parse(kind, raw string) (uint8, error) {
	key := foldEnum(raw)
	if key == "" {
		return 0, fmt.Errorf("%w: empty %s", ErrInvalidEnum, kind)
	}
	for i := 1; i < len(n); i++ {
		if foldEnum(n[i]) == key {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown %s %q", ErrInvalidEnum, kind, raw)
}

func (n enumNames) name(v uint8) string {
	if v == 0 || int(v) >= len(n) {
		return ""
	}
	return n[v]
}

// foldEnum drops case and word separators so "IN_PROGRESS", "in-progress" and "inProgress" compare equal.
func foldEnum(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r == '_' || r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func scanEnum(src any) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("unsupported enum column type %T", src)
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus uint8

const (
	StatusPending TaskStatus = iota + 1
	StatusInProgress
	StatusCompleted
	StatusDelayed
)

var statusNames = enumNames{"", "pending", "in_progress", "completed", "delayed"}

// TaskStatuses lists every status in declaration order.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{StatusPending, StatusInProgress, StatusCompleted, StatusDelayed}
}

// ParseTaskStatus maps an external status in any casing to its canonical value.
func ParseTaskStatus(s string) (TaskStatus, error) {
	v, err := statusNames.parse("status", s)
	return TaskStatus(v), err
}

// String returns the external (lowercase) name, or "" for an unset status.
func (s TaskStatus) String() string { return statusNames.name(uint8(s)) }

func (s TaskStatus) Valid() bool { return s.String() != "" }

func (s TaskStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: status %d", ErrInvalidEnum, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *TaskStatus) UnmarshalText(b []byte) error {
	v, err := ParseTaskStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s TaskStatus) Value() (driver.Value, error) {
	b, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *TaskStatus) Scan(src any) error {
	raw, err := scanEnum(src)
	if err != nil {
		return err
	}
	return s.UnmarshalText([]byte(raw))
}

// TaskType is the kind of field work a task represents.
type TaskType uint8

const (
	TypeMarquee TaskType = iota + 1
	TypeToilet
	TypeEquipment
	TypeVehicle
	TypeGeneral
)

var typeNames = enumNames{"", "marquee", "toilet", "equipment", "vehicle", "general"}

// TaskTypes lists every type in declaration order.
func TaskTypes() []TaskType {
	return []TaskType{TypeMarquee, TypeToilet, TypeEquipment, TypeVehicle, TypeGeneral}
}

// ParseTaskType maps an external type in any casing to its canonical value.
func ParseTaskType(s string) (TaskType, error) {
	v, err := typeNames.parse("type", s)
	return TaskType(v), err
}

func (t TaskType) String() string { return typeNames.name(uint8(t)) }

func (t TaskType) Valid() bool { return t.String() != "" }

func (t TaskType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: type %d", ErrInvalidEnum, uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *TaskType) UnmarshalText(b []byte) error {
	v, err := ParseTaskType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t TaskType) Value() (driver.Value, error) {
	b, err := t.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *TaskType) Scan(src any) error {
	raw, err := scanEnum(src)
	if err != nil {
		return err
	}
	return t.UnmarshalText([]byte(raw))
}

// TaskPriority orders tasks by urgency.
type TaskPriority uint8

const (
	PriorityLow TaskPriority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

var priorityNames = enumNames{"", "low", "medium", "high", "urgent"}

// TaskPriorities lists every priority in declaration order.
func TaskPriorities() []TaskPriority {
	return []TaskPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

// ParseTaskPriority maps an external priority in any casing to its canonical value.
func ParseTaskPriority(s string) (TaskPriority, error) {
	v, err := priorityNames.parse("priority", s)
	return TaskPriority(v), err
}

func (p TaskPriority) String() string { return priorityNames.name(uint8(p)) }

func (p TaskPriority) Valid() bool { return p.String() != "" }

func (p TaskPriority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: priority %d", ErrInvalidEnum, uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *TaskPriority) UnmarshalText(b []byte) error {
	v, err := ParseTaskPriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (p TaskPriority) Value() (driver.Value, error) {
	b, err := p.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *TaskPriority) Scan(src any) error {
	raw, err := scanEnum(src)
	if err != nil {
		return err
	}
	return p.UnmarshalText([]byte(raw))
}
