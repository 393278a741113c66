// Package sqltext renders identifiers and typed literals into SQL statement
// text for statements that must be shipped to the executor as plain strings.
package sqltext

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// QuoteIdent quotes a column, schema or table identifier
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteString quotes a string literal, doubling embedded quotes
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// EncodeLiteral renders a cell value as a SQL literal. typeName is the
// declared column type ("" if unknown) and lets boolean-looking or
// numeric-looking strings coerce to bare literals. Non-finite floats have no
// SQL spelling and become NULL. Structured values render as quoted JSON.
func EncodeLiteral(value interface{}, typeName string) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return encodeFloat(float64(v))
	case float64:
		return encodeFloat(v)
	case time.Time:
		return QuoteString(v.Format("2006-01-02 15:04:05.999999-07"))
	case []byte:
		return QuoteString(string(v))
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return QuoteString(fmt.Sprintf("%v", v))
		}
		return QuoteString(string(data))
	case string:
		return encodeString(v, typeName)
	default:
		return QuoteString(fmt.Sprintf("%v", v))
	}
}

func encodeFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "NULL"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func encodeString(s, typeName string) string {
	if isNumericType(typeName) {
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return s
		}
	}
	if isBooleanType(typeName) {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "t", "true", "yes", "on", "1":
			return "TRUE"
		case "f", "false", "no", "off", "0":
			return "FALSE"
		}
	}
	return QuoteString(s)
}

func isNumericType(typeName string) bool {
	t := strings.ToLower(typeName)
	switch {
	case strings.Contains(t, "int"),
		strings.Contains(t, "numeric"),
		strings.Contains(t, "decimal"),
		strings.Contains(t, "real"),
		strings.Contains(t, "double"),
		t == "float":
		return true
	}
	return false
}

func isBooleanType(typeName string) bool {
	return strings.Contains(strings.ToLower(typeName), "bool")
}
