package model

// Role is how a requirement item contributes to a ratio.
type Role string

// Requirement roles.
const (
	RoleNumerator   Role = "numerator"
	RoleDenominator Role = "denominator"
	RoleAdd         Role = "add"
	RoleSubtract    Role = "subtract"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleNumerator, RoleDenominator, RoleAdd, RoleSubtract:
		return true
	}
	return false
}

// RatioRequirement is one input line of a named ratio.
type RatioRequirement struct {
	RatioKey string `json:"ratio_key" yaml:"ratio_key"`
	RatioKo  string `json:"ratio_ko" yaml:"ratio_ko"`
	ItemKey  string `json:"item_key" yaml:"item_key"`
	Role     Role   `json:"role" yaml:"role"`
	Required bool   `json:"required" yaml:"required"`
	Note     string `json:"note,omitempty" yaml:"note,omitempty"`
}

// RatioResult is a ratio evaluated for one (entity, year, report).
type RatioResult struct {
	CorpCode    string   `json:"corp_code"`
	Year        int      `json:"bsns_year"`
	ReportID    string   `json:"report_id"`
	RatioKey    string   `json:"ratio_key"`
	RatioKo     string   `json:"ratio_ko"`
	Value       *float64 `json:"ratio_value"`
	Numerator   float64  `json:"numerator"`
	Denominator float64  `json:"denominator"`
	IsComplete  bool     `json:"is_complete"`
	Missing     []string `json:"missing,omitempty"`
}
