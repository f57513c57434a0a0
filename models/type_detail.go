package models

import (
	"encoding/json"
	"fmt"
)

// TypeDetail is the per-type payload stored alongside a submission. The workflow
// core only looks at DetailType; the remaining fields belong to the filing forms.
type TypeDetail interface {
	DetailType() string
}

type PatentDetail struct {
	Inventors      []string `json:"inventors"`
	ClaimsCount    int      `json:"claims_count"`
	PriorityNumber string   `json:"priority_number,omitempty"`
	IPCClass       string   `json:"ipc_class,omitempty"`
	IsUtilityModel bool     `json:"is_utility_model"`
}

type TrademarkDetail struct {
	Mark        string `json:"mark"`
	NiceClasses []int  `json:"nice_classes"`
	MarkKind    string `json:"mark_kind,omitempty"` // word, figurative, combined
}

type CopyrightDetail struct {
	WorkCategory string   `json:"work_category"`
	Authors      []string `json:"authors"`
	PublishedOn  string   `json:"published_on,omitempty"`
}

type IndustrialDesignDetail struct {
	ProductName   string `json:"product_name"`
	LocarnoClass  string `json:"locarno_class,omitempty"`
	ViewsProvided int    `json:"views_provided"`
}

type PlantVarietyDetail struct {
	Denomination string `json:"denomination"`
	Species      string `json:"species"`
	Breeder      string `json:"breeder,omitempty"`
}

type GeographicalIndicationDetail struct {
	ProductName string `json:"product_name"`
	Region      string `json:"region"`
	Producers   int    `json:"producers"`
}

func (PatentDetail) DetailType() string                 { return SubmissionTypePatent }
func (TrademarkDetail) DetailType() string              { return SubmissionTypeTrademark }
func (CopyrightDetail) DetailType() string              { return SubmissionTypeCopyright }
func (IndustrialDesignDetail) DetailType() string       { return SubmissionTypeIndustrialDesign }
func (PlantVarietyDetail) DetailType() string           { return SubmissionTypePlantVariety }
func (GeographicalIndicationDetail) DetailType() string { return SubmissionTypeGeographicalIndication }

// SetTypeDetail stores detail as JSON after checking it matches the submission type.
func (s *Submission) SetTypeDetail(detail TypeDetail) error {
	if detail == nil {
		s.TypeDetail = nil
		return nil
	}
	if detail.DetailType() != s.SubmissionType {
		return fmt.Errorf("type detail %q does not match submission type %q", detail.DetailType(), s.SubmissionType)
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return err
	}
	s.TypeDetail = data
	return nil
}

// ParseTypeDetail decodes the stored JSON into the variant for the submission type.
func (s *Submission) ParseTypeDetail() (TypeDetail, error) {
	if len(s.TypeDetail) == 0 {
		return nil, nil
	}
	return DecodeTypeDetail(s.SubmissionType, s.TypeDetail)
}

// DecodeTypeDetail decodes raw into the variant registered for submissionType.
func DecodeTypeDetail(submissionType string, raw json.RawMessage) (TypeDetail, error) {
	var detail TypeDetail
	switch submissionType {
	case SubmissionTypePatent:
		detail = &PatentDetail{}
	case SubmissionTypeTrademark:
		detail = &TrademarkDetail{}
	case SubmissionTypeCopyright:
		detail = &CopyrightDetail{}
	case SubmissionTypeIndustrialDesign:
		detail = &IndustrialDesignDetail{}
	case SubmissionTypePlantVariety:
		detail = &PlantVarietyDetail{}
	case SubmissionTypeGeographicalIndication:
		detail = &GeographicalIndicationDetail{}
	default:
		return nil, fmt.Errorf("unknown submission type %q", submissionType)
	}
	if err := json.Unmarshal(raw, detail); err != nil {
		return nil, err
	}
	return detail, nil
}
