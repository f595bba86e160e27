package model

import (
	"fmt"
	"strings"
)

// Lead field keys. Identity fields come from the listing scrape, contact
// fields from enrichment, score fields from the scorer, and AI fields from
// the deepen stage.
const (
	FieldFirstName       = "first_name"
	FieldLastName        = "last_name"
	FieldCompany         = "company"
	FieldJobTitle        = "job_title"
	FieldLocation        = "location"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldLinkedInURL     = "linkedin_url"
	FieldWebsite         = "website"
	FieldHitScore        = "hit_score"
	FieldIsHit           = "is_hit"
	FieldActivitySummary = "activity_summary"
	FieldConversionAngle = "conversion_angle"

	// Deepen inputs. Never exported.
	FieldLinkedInText = "linkedin_text"
	FieldWebsiteText  = "website_text"
)

// ExportColumns is the fixed column order of the export artifact.
var ExportColumns = []string{
	FieldFirstName,
	FieldLastName,
	FieldCompany,
	FieldJobTitle,
	FieldLocation,
	FieldEmail,
	FieldPhone,
	FieldLinkedInURL,
	FieldWebsite,
	FieldHitScore,
	FieldIsHit,
	FieldActivitySummary,
	FieldConversionAngle,
}

// Lead is a prospect record assembled incrementally by the pipeline stages.
// A nil value means the field was looked up and nothing was found. Stages
// add or overwrite keys; they never delete them.
type Lead map[string]any

// NewLead builds a lead from its identity fields.
func NewLead(firstName, lastName, company, jobTitle, location string) Lead {
	return Lead{
		FieldFirstName: firstName,
		FieldLastName:  lastName,
		FieldCompany:   company,
		FieldJobTitle:  jobTitle,
		FieldLocation:  location,
	}
}

// Str returns the field as a string. Missing and nil fields are "".
func (l Lead) Str(key string) string {
	v, ok := l[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case *string:
		if s == nil {
			return ""
		}
		return *s
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Has reports whether the field holds a non-empty value.
func (l Lead) Has(key string) bool {
	return strings.TrimSpace(l.Str(key)) != ""
}

// Int returns an integer field, or 0 when unset.
func (l Lead) Int(key string) int {
	switch v := l[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Bool returns a boolean field, or false when unset.
func (l Lead) Bool(key string) bool {
	b, _ := l[key].(bool)
	return b
}

// SetOptional stores value, or nil when value is blank.
func (l Lead) SetOptional(key, value string) {
	if strings.TrimSpace(value) == "" {
		l[key] = nil
		return
	}
	l[key] = value
}

// SetDefault stores value only when the key is absent.
func (l Lead) SetDefault(key string, value any) {
	if _, ok := l[key]; !ok {
		l[key] = value
	}
}

// FullName joins first and last name.
func (l Lead) FullName() string {
	return strings.TrimSpace(l.Str(FieldFirstName) + " " + l.Str(FieldLastName))
}
