// Package passage defines the unit of indexed text shared by the chunker,
// the vector index, the retriever and the generator.
package passage

import (
	"crypto/md5"
	"encoding/hex"
)

// Source kinds stored under the MetaSource key.
const (
	SourceClinicalTrials     = "clinicaltrials"
	SourceFDAApproval        = "fda_approval"
	SourceFDALabel           = "fda_label"
	SourceFDAAdverseEvents   = "fda_adverse_events"
	SourceDeviceClearance    = "fda_device_clearance"
	SourceDeviceAdverseEvent = "fda_device_events"
	SourceDeviceRecall       = "fda_device_recall"
	SourceSECFilings         = "sec_filings"
	SourceSECFinancials      = "sec_financials"
	SourceMarketData         = "market_data"
)

// Metadata keys.
const (
	MetaSource            = "source"
	MetaSourceURL         = "source_url"
	MetaCompany           = "company"
	MetaDrugName          = "drug_name"
	MetaDeviceName        = "device_name"
	MetaNCTID             = "nct_id"
	MetaPhase             = "phase"
	MetaStatus            = "status"
	MetaDate              = "date"
	MetaApplicationNumber = "application_number"
	MetaSection           = "section"
	MetaClearanceNumber   = "clearance_number"
	MetaCIK               = "cik"
	MetaTicker            = "ticker"
)

// Passage is a self-contained, human-readable text plus flat metadata.
//
// Distance is set only on passages returned by a similarity query.
type Passage struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
	Distance *float64          `json:"distance,omitempty"`
}

// ID returns the content-derived identifier of the passage.
func (p Passage) ID() string {
	return ID(p.Text)
}

// Source returns the passage's source kind.
func (p Passage) Source() string {
	return p.Metadata[MetaSource]
}

// SourceURL returns the passage's citation URL.
func (p Passage) SourceURL() string {
	return p.Metadata[MetaSourceURL]
}

// ID returns the lowercase hex MD5 of text. Identical texts share an ID,
// which makes re-indexing idempotent.
func ID(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Texts returns the text of every passage in order.
func Texts(ps []Passage) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Text
	}
	return out
}
