package value

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SQLType names the target column type a literal is cast against. These
// are the scalar types a PhysicalColumn can carry (its Type field is an
// SQLType), defined here as plain strings so this package stays
// independent of columnpath and model (which themselves depend on value).
type SQLType string

const (
	TypeInt2    SQLType = "int2"
	TypeInt4    SQLType = "int4"
	TypeInt8    SQLType = "int8"
	TypeFloat4  SQLType = "float4"
	TypeFloat8  SQLType = "float8"
	TypeNumeric SQLType = "numeric"
	TypeBool    SQLType = "bool"
	TypeText    SQLType = "text"
	TypeUUID    SQLType = "uuid"
	TypeJSON    SQLType = "json"
	TypeBytea   SQLType = "bytea"
	TypeDate    SQLType = "date"
	TypeTime    SQLType = "time"
	TypeTimestamp SQLType = "timestamp"
	TypeTimestampTZ SQLType = "timestamptz"
)

// CastError reports that a literal value could not be cast to the
// requested SQL type.
type CastError struct {
	Type  SQLType
	Value Value
	Cause error
}

func (e *CastError) Error() string {
	return fmt.Sprintf("value: cannot cast %v to %s: %v", e.Value.GoString(), e.Type, e.Cause)
}

func (e *CastError) Unwrap() error { return e.Cause }

func castErr(t SQLType, v Value, cause error) error {
	return &CastError{Type: t, Value: v, Cause: cause}
}

// Cast converts v, as supplied in a GraphQL argument or variable, to the
// Go representation appropriate for binding against a column of SQL type
// t. Arrays of a base type follow the same matrix element-wise.
func Cast(v Value, t SQLType) (any, error) {
	if v.IsNull() {
		return nil, nil

	}
	if list, ok := v.AsList(); ok {
		out := make([]any, len(list))
		for i, e := range list {
			cv, err := Cast(e, t)
			if err != nil {
				return nil, err
			}
			out[i] = cv
		}
		return out, nil
	}
	switch t {
	case TypeInt2:
		return castInt(v, t, -1<<15, 1<<15-1)
	case TypeInt4:
		return castInt(v, t, -1<<31, 1<<31-1)
	case TypeInt8:
		n, ok := v.AsNumber()
		if !ok {
			return nil, castErr(t, v, fmt.Errorf("not a number"))
		}
		i, ok := n.AsI64()
		if !ok {
			return nil, castErr(t, v, fmt.Errorf("not representable as int64"))
		}
		return i, nil
	case TypeFloat4:
		n, ok := v.AsNumber()
		if !ok {
			return nil, castErr(t, v, fmt.Errorf("not a number"))
		}
		return float32(n.AsF64()), nil
	case TypeFloat8:
		n, ok := v.AsNumber()
		if !ok {
			return nil, castErr(t, v, fmt.Errorf("not a number"))
		}
		return n.AsF64(), nil
	case TypeNumeric:
		return castDecimal(v)
	case TypeBool:
		b, ok := v.AsBool()
		if !ok {
			return nil, castErr(t, v, fmt.Errorf("not a bool"))
		}
		return b, nil
	case TypeText:
		return castText(v)
	case TypeUUID:
		return castUUID(v)
	case TypeJSON:
		return json.Marshal(v.GoString())
	case TypeBytea:
		return castBytea(v)
	case TypeDate:
		return castTimestamp(v, "2006-01-02")
	case TypeTime:
		return castTimestamp(v, "15:04:05")
	case TypeTimestamp:
		return castNaiveOrRFC3339(v)
	case TypeTimestampTZ:
		return castNaiveOrRFC3339(v)
	default:
		return nil, castErr(t, v, fmt.Errorf("unsupported sql type"))
	}
}

func castInt(v Value, t SQLType, min, max int64) (any, error) {
	n, ok := v.AsNumber()
	if !ok {
		return nil, castErr(t, v, fmt.Errorf("not a number"))
	}
	i, ok := n.AsI64()
	if !ok || i < min || i > max {
		return nil, castErr(t, v, fmt.Errorf("out of range for %s", t))
	}
	return i, nil
}

func castText(v Value) (any, error) {
	if s, ok := v.AsString(); ok {
		return s, nil
	}
	if e, ok := v.AsEnum(); ok {
		return e, nil
	}
	return nil, castErr(TypeText, v, fmt.Errorf("not a string"))
}

func castUUID(v Value) (any, error) {
	s, ok := v.AsString()
	if !ok {
		return nil, castErr(TypeUUID, v, fmt.Errorf("not a string"))
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, castErr(TypeUUID, v, err)
	}
	return id, nil
}

func castBytea(v Value) (any, error) {
	if b, ok := v.AsBinary(); ok {
		return b, nil
	}
	s, ok := v.AsString()
	if !ok {
		return nil, castErr(TypeBytea, v, fmt.Errorf("not base64 string or bytes"))
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, castErr(TypeBytea, v, err)
	}
	return b, nil
}

func castDecimal(v Value) (any, error) {
	if s, ok := v.AsString(); ok {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, castErr(TypeNumeric, v, err)
		}
		return d, nil
	}
	if n, ok := v.AsNumber(); ok {
		return decimal.NewFromFloat(n.AsF64()), nil
	}
	return nil, castErr(TypeNumeric, v, fmt.Errorf("not a number or decimal string"))
}

// castTimestamp parses v with a single layout (used for DATE and TIME,
// which have no timezone ambiguity to resolve).
func castTimestamp(v Value, layout string) (any, error) {
	s, ok := v.AsString()
	if !ok {
		return nil, castErr(SQLType(layout), v, fmt.Errorf("not a string"))
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return nil, castErr(SQLType(layout), v, err)
	}
	return t, nil
}

// naiveLayouts are accepted in addition to RFC3339 for TIMESTAMP columns,
// matching the source's acceptance of "YYYY-MM-DDTHH:MM:SS[.fff]" without
// a zone offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func castNaiveOrRFC3339(v Value) (any, error) {
	s, ok := v.AsString()
	if !ok {
		return nil, castErr(TypeTimestamp, v, fmt.Errorf("not a string"))
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, castErr(TypeTimestamp, v, fmt.Errorf("unrecognized timestamp format %q", s))
}

// ParseOrder parses an ASC/DESC direction delivered as either a bare
// string or a GraphQL enum value (spec.md §4.3 notes both are accepted).
func ParseOrder(v Value) (asc bool, err error) {
	var s string
	if str, ok := v.AsString(); ok {
		s = str
	} else if e, ok := v.AsEnum(); ok {
		s = e
	} else {
		return false, fmt.Errorf("value: order direction must be a string or enum")
	}
	switch strings.ToUpper(s) {
	case "ASC":
		return true, nil
	case "DESC":
		return false, nil
	default:
		return false, fmt.Errorf("value: invalid order direction %q", s)
	}
}

// mustAtoi is a small helper retained for callers that parse numeric
// literals out of raw strings (e.g. GraphQL Int coercion).
func mustAtoi(s string) (int, error) { return strconv.Atoi(s) }
