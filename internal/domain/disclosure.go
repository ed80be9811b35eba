package domain

import "time"

// RawDisclosure is a snapshot of a source record exactly as fetched.
// Created by source adapters, consumed by the cleaning stage, then discarded.
type RawDisclosure struct {
	Source           string         // source name, e.g. "us_house"
	SourceType       string         // source type identifier, see SourceType* constants
	RawData          map[string]any // opaque source fields
	ScrapedAt        time.Time
	SourceURL        string // optional
	SourceDocumentID string // optional
}

// CleanedDisclosure is a raw record after validation and field normalization.
// All required fields are guaranteed non-empty.
type CleanedDisclosure struct {
	PoliticianName   string
	TransactionDate  time.Time
	DisclosureDate   time.Time
	AssetName        string
	TransactionType  string // lower-case, synonym-mapped
	AssetTicker      string // optional
	AssetType        string // optional
	AmountText       string // optional, e.g. "$1,001 - $15,000"
	SourceURL        string // optional
	SourceDocumentID string // optional
	Source           string
	SourceType       string
	RawData          map[string]any // carried for archival on publish
}

// NormalizedDisclosure is a cleaned record enriched with politician identity,
// parsed amounts and inferred asset metadata. Ready for publishing.
type NormalizedDisclosure struct {
	CleanedDisclosure

	// Resolved politician. PoliticianID is nil when the politician does not
	// exist yet and will be created by the publisher.
	PoliticianID        *int64
	PoliticianFirstName string
	PoliticianLastName  string
	PoliticianRole      string
	PoliticianParty     string
	PoliticianState     string
	PoliticianDistrict  string // e.g. "CA-11", optional
	BioguideID          string

	AmountRangeMin *float64
	AmountRangeMax *float64
	AmountExact    *float64

	// AssetTickerOriginal holds the pre-rebrand symbol when ticker
	// correction rewrote AssetTicker. Empty when no rewrite happened.
	AssetTickerOriginal string
}

// AssetType classifies the traded asset.
type AssetType string

const (
	AssetTypeStock          AssetType = "stock"
	AssetTypeETF            AssetType = "etf"
	AssetTypeMutualFund     AssetType = "mutual_fund"
	AssetTypeBond           AssetType = "bond"
	AssetTypeOption         AssetType = "option"
	AssetTypeCryptocurrency AssetType = "cryptocurrency"
)

// IsValid checks if the asset type is a valid value.
func (a AssetType) IsValid() bool {
	switch a {
	case AssetTypeStock, AssetTypeETF, AssetTypeMutualFund,
		AssetTypeBond, AssetTypeOption, AssetTypeCryptocurrency:
		return true
	}
	return false
}

// TransactionType is the canonical transaction classification.
type TransactionType string

const (
	TransactionPurchase       TransactionType = "purchase"
	TransactionSale           TransactionType = "sale"
	TransactionExchange       TransactionType = "exchange"
	TransactionOptionPurchase TransactionType = "option_purchase"
	TransactionOptionSale     TransactionType = "option_sale"
	TransactionOptionExercise TransactionType = "option_exercise"
)

// IsValid checks if the transaction type is a valid value.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionPurchase, TransactionSale, TransactionExchange,
		TransactionOptionPurchase, TransactionOptionSale, TransactionOptionExercise:
		return true
	}
	return false
}

// TradingDisclosure is the persisted disclosure row.
// Corresponds to trading_disclosures table in PostgreSQL.
// Unique on (politician_id, transaction_date, asset_name, transaction_type,
// disclosure_date).
type TradingDisclosure struct {
	ID               int64 // BIGSERIAL primary key
	PoliticianID     int64
	TransactionDate  time.Time
	DisclosureDate   time.Time
	AssetName        string
	AssetTicker      string
	AssetType        string
	TransactionType  string
	AmountRangeMin   *float64
	AmountRangeMax   *float64
	AmountExact      *float64
	SourceURL        string
	SourceDocumentID string
	Source           string
	RawData          map[string]any
	Status           string // "active"
	HasRawPDF        bool
	SourceFileID     *int64 // FK to stored_files
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Disclosure status constants.
const (
	DisclosureStatusActive = "active"
)
