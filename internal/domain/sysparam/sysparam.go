package sysparam

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrKeyRequired      = errors.New("parameter key is required")
	ErrUnknownValueType = errors.New("unknown parameter value type")
	ErrInvalidValue     = errors.New("parameter value does not match its type")
	ErrTypeMismatch     = errors.New("parameter has a different value type")
	ErrInactive         = errors.New("parameter is inactive")
)

type ValueType string

const (
	TypeString  ValueType = "string"
	TypeInt     ValueType = "int"
	TypeBool    ValueType = "bool"
	TypeDecimal ValueType = "decimal"
)

func ParseValueType(raw string) (ValueType, error) {
	switch vt := ValueType(strings.ToLower(strings.TrimSpace(raw))); vt {
	case TypeString, TypeInt, TypeBool, TypeDecimal:
		return vt, nil
	case "":
		return TypeString, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownValueType, raw)
	}
}

// Parameter is one typed key-value setting.
type Parameter struct {
	Key         string
	Value       string
	ValueType   ValueType
	Description string
	IsActive    bool
}

// Validate checks the key and that Value parses as ValueType.
func (p Parameter) Validate() error {
	if strings.TrimSpace(p.Key) == "" {
		return ErrKeyRequired
	}

	var err error
	switch p.ValueType {
	case TypeString:
	case TypeInt:
		_, err = strconv.Atoi(strings.TrimSpace(p.Value))
	case TypeBool:
		_, err = strconv.ParseBool(strings.TrimSpace(p.Value))
	case TypeDecimal:
		_, err = decimal.NewFromString(strings.TrimSpace(p.Value))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownValueType, p.ValueType)
	}
	if err != nil {
		return fmt.Errorf("%w: %s=%q (%s)", ErrInvalidValue, p.Key, p.Value, p.ValueType)
	}
	return nil
}

func (p Parameter) usable(want ValueType) error {
	if !p.IsActive {
		return fmt.Errorf("%w: %s", ErrInactive, p.Key)
	}
	if p.ValueType != want {
		return fmt.Errorf("%w: %s is %s, want %s", ErrTypeMismatch, p.Key, p.ValueType, want)
	}
	return nil
}

func (p Parameter) Int() (int, error) {
	if err := p.usable(TypeInt); err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(p.Value))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, p.Key, p.Value)
	}
	return v, nil
}

func (p Parameter) Bool() (bool, error) {
	if err := p.usable(TypeBool); err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(strings.TrimSpace(p.Value))
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidValue, p.Key, p.Value)
	}
	return v, nil
}

func (p Parameter) Decimal() (decimal.Decimal, error) {
	if err := p.usable(TypeDecimal); err != nil {
		return decimal.Zero, err
	}
	v, err := decimal.NewFromString(strings.TrimSpace(p.Value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s=%q", ErrInvalidValue, p.Key, p.Value)
	}
	return v, nil
}

// String returns the raw value of any active parameter regardless of its type.
func (p Parameter) String() (string, error) {
	if !p.IsActive {
		return "", fmt.Errorf("%w: %s", ErrInactive, p.Key)
	}
	return p.Value, nil
}
