package hcl

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ErrAttrType is returned when a module configuration attribute cannot be
// stored in the Go value a module asked for.
var ErrAttrType = errors.New("attribute has the wrong type")

var ctyValueType = reflect.TypeOf(cty.Value{})

// decodeAttr stores val in target, which must be a non-nil pointer. A null
// value leaves target untouched so modules can preset defaults. A target of
// type *cty.Value receives val as is.
func decodeAttr(logger *slog.Logger, val cty.Value, target any) error {
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
		return fmt.Errorf("decode target must be a non-nil pointer, got %T", target)
	}
	if ptr.Elem().Type() == ctyValueType {
		ptr.Elem().Set(reflect.ValueOf(val))
		return nil
	}
	if val.IsNull() {
		return nil
	}
	if !val.IsWhollyKnown() {
		return fmt.Errorf("%w: value is not known at load time", ErrAttrType)
	}

	want, err := gocty.ImpliedType(ptr.Elem().Interface())
	if err != nil {
		// Maps and interfaces have no implied type; gocty still handles
		// them when the value's own type fits.
		return wrapAttrErr(gocty.FromCtyValue(val, target))
	}

	converted, err := convert.Convert(val, want)
	if err != nil {
		return fmt.Errorf("%w: cannot use %s as %s", ErrAttrType, val.Type().FriendlyName(), want.FriendlyName())
	}
	if !val.Type().Equals(converted.Type()) {
		logger.Debug("Converted module configuration value.",
			"from", val.Type().FriendlyName(),
			"to", want.FriendlyName(),
		)
	}
	return wrapAttrErr(gocty.FromCtyValue(converted, target))
}

func wrapAttrErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrAttrType, err)
}
