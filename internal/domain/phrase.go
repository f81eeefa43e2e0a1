package domain

import "time"

// DefaultCategoryLabel is the label of the category created on first run.
// Statements saved without an explicit category land here.
const DefaultCategoryLabel = "Uncategorized"

// Category is a named grouping of statements. Labels are not unique.
type Category struct {
	ID      string    `db:"id" json:"id"`
	Label   string    `db:"label" json:"label"`
	Created time.Time `db:"created_at" json:"created"`
}

// String returns the label so categories print nicely in pickers.
func (c Category) String() string { return c.Label }

// Statement is a saved phrase the user can replay without retyping.
// It belongs to exactly one category at a time.
type Statement struct {
	ID         string    `db:"id" json:"id"`
	Text       string    `db:"text" json:"text"`
	CategoryID string    `db:"category" json:"categoryId"`
	Rating     int       `db:"rating" json:"rating"`
	Created    time.Time `db:"created_at" json:"created"`
}

// Bank is a bundle of categories with their statements, used for bulk
// import and export between stores.
type Bank struct {
	Name       string         `json:"name"`
	Categories []BankCategory `json:"categories"`
}

// BankCategory is one category of a Bank with its statement texts.
type BankCategory struct {
	Label      string   `json:"label"`
	Statements []string `json:"statements"`
}
