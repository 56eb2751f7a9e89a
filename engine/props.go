package engine

import (
	"errors"
	"fmt"
	"time"
)

// PropID identifies an item or archive property.
//
// The numeric values follow the property ids of the 7-Zip handler interface.
type PropID uint32

const (
	PropPath        PropID = 3  // string
	PropName        PropID = 4  // string
	PropIsDir       PropID = 6  // bool
	PropSize        PropID = 7  // uint64
	PropPackSize    PropID = 8  // uint64
	PropAttrib      PropID = 9  // uint32
	PropCTime       PropID = 10 // time.Time
	PropATime       PropID = 11 // time.Time
	PropMTime       PropID = 12 // time.Time
	PropSolid       PropID = 13 // bool
	PropEncrypted   PropID = 15 // bool
	PropCRC         PropID = 19 // uint32
	PropType        PropID = 20 // string
	PropMethod      PropID = 22 // string
	PropComment     PropID = 28 // string
	PropPhySize     PropID = 44 // uint64
	PropPosixAttrib PropID = 53 // uint32
	PropSymLink     PropID = 54 // string
	PropIsDeleted   PropID = 65 // bool
)

// ErrPropertyAbsent is returned by the required Read functions when the property is absent.
var ErrPropertyAbsent = errors.New("property is absent")

// PropertyTypeError is returned when a property has an unexpected type.
type PropertyTypeError struct {
	ID    PropID
	Value any
	Want  string
}

func (e *PropertyTypeError) Error() string {
	return fmt.Sprintf("property %d has type %T, expected %s", e.ID, e.Value, e.Want)
}

// PropertyReader is the subset of Handler needed to read item properties.
type PropertyReader interface {
	Property(index uint32, id PropID) (any, error)
}

func read[T any](r PropertyReader, index uint32, id PropID, want string) (v T, ok bool, err error) {
	raw, err := r.Property(index, id)
	if err != nil {
		return v, false, fmt.Errorf("read property %d of item %d error: %w", id, index, err)
	}
	if raw == nil {
		return v, false, nil
	}

	if v, ok = raw.(T); !ok {
		return v, false, &PropertyTypeError{ID: id, Value: raw, Want: want}
	}

	return v, true, nil
}

func required[T any](r PropertyReader, index uint32, id PropID, want string) (T, error) {
	v, ok, err := read[T](r, index, id, want)
	if err == nil && !ok {
		err = fmt.Errorf("read property %d of item %d error: %w", id, index, ErrPropertyAbsent)
	}
	return v, err
}

func optional[T any](r PropertyReader, index uint32, id PropID, want string, def T) (T, error) {
	v, ok, err := read[T](r, index, id, want)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// ReadBool reads a required bool property.
func ReadBool(r PropertyReader, index uint32, id PropID) (bool, error) {
	return required[bool](r, index, id, "bool")
}

// ReadOptionalBool reads a bool property, returning def if absent.
func ReadOptionalBool(r PropertyReader, index uint32, id PropID, def bool) (bool, error) {
	return optional(r, index, id, "bool", def)
}

// ReadString reads a required string property.
func ReadString(r PropertyReader, index uint32, id PropID) (string, error) {
	return required[string](r, index, id, "string")
}

// ReadOptionalString reads a string property, returning def if absent.
func ReadOptionalString(r PropertyReader, index uint32, id PropID, def string) (string, error) {
	return optional(r, index, id, "string", def)
}

// ReadUint64 reads a uint64 property. The second return value is false if absent.
//
// uint32 values are widened.
func ReadUint64(r PropertyReader, index uint32, id PropID) (uint64, bool, error) {
	raw, err := r.Property(index, id)
	if err != nil {
		return 0, false, fmt.Errorf("read property %d of item %d error: %w", id, index, err)
	}

	switch v := raw.(type) {
	case nil:
		return 0, false, nil
	case uint64:
		return v, true, nil
	case uint32:
		return uint64(v), true, nil
	default:
		return 0, false, &PropertyTypeError{ID: id, Value: raw, Want: "uint64"}
	}
}

// ReadUint32 reads a uint32 property. The second return value is false if absent.
func ReadUint32(r PropertyReader, index uint32, id PropID) (uint32, bool, error) {
	return read[uint32](r, index, id, "uint32")
}

// ReadTime reads a time.Time property, returning the zero time if absent.
func ReadTime(r PropertyReader, index uint32, id PropID) (time.Time, error) {
	return optional(r, index, id, "time.Time", time.Time{})
}
