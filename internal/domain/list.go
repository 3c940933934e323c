package domain

import "time"

const (
	ListCurrentWeek = "current_week"
	ListNextOrder   = "next_order"
	ListCustom      = "custom"
)

// TimeLayout is the stored timestamp format. Fixed width keeps string
// comparison in SQL equivalent to time comparison.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

func Now() string { return time.Now().UTC().Format(TimeLayout) }

type List struct {
	ID        string  `db:"id" json:"id"`
	UserID    string  `db:"user_id" json:"-"`
	Name      string  `db:"name" json:"name"`
	ListType  string  `db:"list_type" json:"list_type"`
	WeekStart *string `db:"week_start" json:"week_start"`
	CreatedAt string  `db:"created_at" json:"created_at"`
	UpdatedAt string  `db:"updated_at" json:"updated_at"`
}

// ListWithItems is a list as returned with ?include=items.
type ListWithItems struct {
	List
	Items []ListItem `json:"items"`
}

// ListItem references either a canonical product or a free-text label, never
// both. The product columns are filled from a join when a reference is set.
type ListItem struct {
	ID                 string  `db:"id" json:"id"`
	ListID             string  `db:"list_id" json:"-"`
	CanonicalProductID *string `db:"canonical_product_id" json:"canonical_product_id"`
	FreeText           *string `db:"free_text" json:"free_text"`
	Quantity           float64 `db:"quantity" json:"quantity"`
	SortOrder          int     `db:"sort_order" json:"sort_order"`
	Checked            bool    `db:"checked" json:"checked"`
	CreatedAt          string  `db:"created_at" json:"created_at"`
	DisplayName        *string `db:"display_name" json:"display_name"`
	Brand              *string `db:"brand" json:"brand"`
	SizeDescription    *string `db:"size_description" json:"size_description"`
	UPC                *string `db:"upc" json:"upc,omitempty"`
}

// Label is what a person reads on the list: the product name or the free text.
func (i ListItem) Label() string {
	if i.DisplayName != nil && *i.DisplayName != "" {
		if i.Brand != nil && *i.Brand != "" {
			return *i.Brand + " " + *i.DisplayName
		}
		return *i.DisplayName
	}
	if i.FreeText != nil {
		return *i.FreeText
	}
	return ""
}
