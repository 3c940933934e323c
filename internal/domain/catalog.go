package domain

type Store struct {
	ID          string  `db:"id" json:"id" yaml:"id"`
	ExternalID  string  `db:"external_id" json:"external_id" yaml:"external_id"`
	Name        string  `db:"name" json:"name" yaml:"name"`
	AddressLine *string `db:"address_line" json:"address_line" yaml:"address_line"`
	City        *string `db:"city" json:"city" yaml:"city"`
	State       *string `db:"state" json:"state" yaml:"state"`
	ZipCode     *string `db:"zip_code" json:"zip_code" yaml:"zip_code"`
	Chain       string  `db:"chain" json:"chain" yaml:"chain"`
	Source      string  `db:"source" json:"source" yaml:"source"`
}

type CanonicalProduct struct {
	ID              string  `db:"id" json:"id" yaml:"id"`
	DisplayName     string  `db:"display_name" json:"display_name" yaml:"display_name"`
	Brand           *string `db:"brand" json:"brand" yaml:"brand"`
	Category        *string `db:"category" json:"category" yaml:"category"`
	SizeDescription *string `db:"size_description" json:"size_description" yaml:"size_description"`
	UPC             *string `db:"upc" json:"upc" yaml:"upc"`
	Source          string  `db:"source" json:"source" yaml:"source"`
}
