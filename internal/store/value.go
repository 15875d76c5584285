package store

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// fieldValue renders a driver value as a record field. Columns in the mapa
// table are mostly text, but typed columns (numeric coordinates, dates) are
// accepted and stringified. NULL stays nil.
func fieldValue(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = t
	case []byte:
		s = string(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case int32:
		s = strconv.FormatInt(int64(t), 10)
	case int:
		s = strconv.Itoa(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		s = strconv.FormatBool(t)
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			s = t.Format(time.DateOnly)
		} else {
			s = t.Format(time.RFC3339)
		}
	case [16]byte:
		s = uuid.UUID(t).String()
	case driver.Valuer:
		dv, err := t.Value()
		if err != nil {
			return nil
		}
		return fieldValue(dv)
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}
	return &s
}
