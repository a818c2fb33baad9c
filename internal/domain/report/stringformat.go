package report

import (
	"context"
	"log/slog"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/Sentinel-Gate/beanguard/internal/domain/correlation"
	"github.com/Sentinel-Gate/beanguard/internal/domain/validation"
)

// StringFormatTag is the constraint tag, used as stringformat=<format>.
const StringFormatTag = "stringformat"

// dataInfoTag describes a field in human terms.
const dataInfoTag = "datainfo"

var (
	decimalPattern = regexp.MustCompile(`^-?\d+(\.\d{1,4})?$`)
	codePattern    = regexp.MustCompile(`^[A-Z0-9][A-Z0-9-]{2,31}$`)
)

// formats maps a stringformat parameter to its check.
var formats = map[string]func(string) bool{
	"date": func(s string) bool {
		_, err := time.Parse(time.DateOnly, s)
		return err == nil
	},
	"decimal": decimalPattern.MatchString,
	"code":    codePattern.MatchString,
}

// NewStringFormat returns the stringformat constraint. An empty string passes
// (presence is required's job), as does a non-string value. An unknown format
// fails.
//
// The constraint only sees the path of the field it checks. It recovers the
// bean being validated from the correlation stack, reads the datainfo tag of
// the field at that path and logs it.
func NewStringFormat(logger *slog.Logger) validation.ConstraintFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, c validation.ConstraintContext) bool {
		logDataInfo(ctx, logger, c)

		s, ok := c.Value.(string)
		if !ok || s == "" {
			return true
		}
		check, ok := formats[c.Param]
		if !ok {
			logger.WarnContext(ctx, "unknown string format", "format", c.Param, "field", c.Path)
			return false
		}
		return check(s)
	}
}

// Register adds the stringformat constraint to registry.
func Register(registry *validation.ConstraintRegistry, logger *slog.Logger) error {
	return registry.Register(StringFormatTag, NewStringFormat(logger))
}

// DataInfo returns the datainfo tag of the field at path in bean's struct
// type. path is dotted ("Payer.Account"); pointers and containers along the
// way are followed to their element type.
func DataInfo(bean any, path string) (string, bool) {
	t := validation.TypeOf(bean)
	if t == nil || path == "" {
		return "", false
	}
	var field reflect.StructField
	for _, name := range strings.Split(path, ".") {
		t = elemType(t)
		if t.Kind() != reflect.Struct {
			return "", false
		}
		f, ok := t.FieldByName(name)
		if !ok {
			return "", false
		}
		field, t = f, f.Type
	}
	return field.Tag.Lookup(dataInfoTag)
}

func elemType(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
			t = t.Elem()
		default:
			return t
		}
	}
}

func logDataInfo(ctx context.Context, logger *slog.Logger, c validation.ConstraintContext) {
	bean, ok := correlation.CurrentBean(ctx)
	if !ok {
		logger.DebugContext(ctx, "no bean under validation", "field", c.Path)
		return
	}
	info, ok := DataInfo(bean, c.Path)
	if !ok {
		return
	}
	logger.InfoContext(ctx, "validating described field",
		"bean_type", validation.TypeOf(bean).String(),
		"field", c.Path,
		"datainfo", info,
	)
}
