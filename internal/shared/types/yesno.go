package types

import (
	"database/sql/driver"
	"fmt"
)

// YesNo is the single-character active/inactive flag carried by every
// master-data record. Deactivation flips the flag; rows are never
// physically deleted.
type YesNo string

const (
	Yes YesNo = "Y"
	No  YesNo = "N"
)

// YesNoFromBool converts a bool into the flag form
func YesNoFromBool(b bool) YesNo {
	if b {
		return Yes
	}
	return No
}

// Bool reports whether the flag is set
func (yn YesNo) Bool() bool {
	return yn == Yes
}

// Valid reports whether the flag holds one of the two legal values
func (yn YesNo) Valid() bool {
	return yn == Yes || yn == No
}

// Value implements driver.Valuer for database serialization
func (yn YesNo) Value() (driver.Value, error) {
	if yn == "" {
		return string(No), nil
	}
	if !yn.Valid() {
		return nil, fmt.Errorf("invalid yes/no flag %q", string(yn))
	}
	return string(yn), nil
}

// Scan implements sql.Scanner for database deserialization
func (yn *YesNo) Scan(value interface{}) error {
	if value == nil {
		*yn = No
		return nil
	}
	switch v := value.(type) {
	case string:
		*yn = YesNo(v)
	case []byte:
		*yn = YesNo(string(v))
	default:
		return fmt.Errorf("cannot scan %T into YesNo", value)
	}
	return nil
}
