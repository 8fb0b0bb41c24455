package querygen

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/syssam/orma"
)

// ValidateOptions rejects every supplied option missing from supported.
// Options known to the operation (in supportable) yield a
// DialectNotSupportedError, anything else an UnknownOptionError. Keys are
// checked in sorted order so the reported option is deterministic.
func ValidateOptions(op Operation, dialectName string, supportable, supported OptionSet, suppliedOpts map[Option]any) error {
	for _, k := range sortedKeys(suppliedOpts) {
		if supported.Has(k) {
			continue
		}
		if supportable.Has(k) {
			return &orma.DialectNotSupportedError{Operation: string(op), Dialect: dialectName, Option: string(k)}
		}
		return &orma.UnknownOptionError{Operation: string(op), Dialect: dialectName, Option: string(k)}
	}
	return nil
}

// DecodeOptions converts a loosely typed option map (as read from flags or
// config files) into the typed options of op. Keys the operation does not
// recognize fail with an UnknownOptionError; dialect support is checked
// later by the generator itself.
func DecodeOptions(op Operation, dialectName string, raw map[string]any) (Options, error) {
	known := Supportable(op)
	keys := make(map[Option]any, len(raw))
	for k, v := range raw {
		keys[Option(k)] = v
	}
	for _, k := range sortedKeys(keys) {
		if !known.Has(k) {
			return nil, &orma.UnknownOptionError{Operation: string(op), Dialect: dialectName, Option: string(k)}
		}
	}
	var target Options
	switch op {
	case CreateDatabase:
		target = &CreateDatabaseOptions{}
	case ListDatabases:
		target = &ListDatabasesOptions{}
	case ListSchemas:
		target = &ListSchemasOptions{}
	case ListTables:
		target = &ListTablesOptions{}
	case TruncateTable:
		target = &TruncateTableOptions{}
	case ShowConstraints:
		target = &ShowConstraintsOptions{}
	case BulkDelete:
		target = &BulkDeleteOptions{}
	case DescribeTable, ShowIndexes, Version:
		return NoOptions{}, nil
	default:
		return nil, fmt.Errorf("querygen: unknown operation %q", op)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("querygen: decode %s options: %w", op, err)
	}
	return deref(target), nil
}

// deref returns the option struct by value so callers can type switch on
// the same types the generator methods take.
func deref(o Options) Options {
	switch o := o.(type) {
	case *CreateDatabaseOptions:
		return *o
	case *ListDatabasesOptions:
		return *o
	case *ListSchemasOptions:
		return *o
	case *ListTablesOptions:
		return *o
	case *TruncateTableOptions:
		return *o
	case *ShowConstraintsOptions:
		return *o
	case *BulkDeleteOptions:
		return *o
	}
	return o
}
