package types

// Setting is an operator-managed configuration row. Names are the lower-cased
// environment keys (e.g. "frontend_url") and fill in for unset variables.
type Setting struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"size:64;uniqueIndex;not null"`
	Value string `gorm:"size:512;not null"`
}
