package model

import (
	"math"
	"time"
)

// JobStatus represents the lifecycle state of a pipeline job.
type JobStatus string

const (
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusError   JobStatus = "error"
)

// Terminal reports whether no further transition may happen from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// CanTransition reports whether a job may move from s to next. The only
// legal moves are running→done and running→error.
func (s JobStatus) CanTransition(next JobStatus) bool {
	return s == JobStatusRunning && next.Terminal()
}

// JobStats aggregates contact coverage over every lead of a job.
type JobStats struct {
	EmailPct    float64 `json:"email_pct"`
	LinkedInPct float64 `json:"linkedin_pct"`
	PhonePct    float64 `json:"phone_pct"`
	WebsitePct  float64 `json:"website_pct"`
	AvgScore    float64 `json:"avg_score"`
}

// Job is the snapshot of one pipeline run served to status queries.
type Job struct {
	ID         string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	SourceURL  string    `json:"source_url,omitempty"`
	TotalLeads int       `json:"total_leads"`
	HitLeads   int       `json:"hit_leads"`
	NoHitLeads int       `json:"nohit_leads"`
	Stats      JobStats  `json:"stats"`
	Leads      []Lead    `json:"leads"`
	Error      string    `json:"error,omitempty"`
	CSVPath    string    `json:"csv_path,omitempty"`
	XLSXPath   string    `json:"xlsx_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// ComputeStats returns coverage percentages (one decimal) and the average
// hit score across all leads.
func ComputeStats(leads []Lead) JobStats {
	total := len(leads)
	if total == 0 {
		return JobStats{}
	}

	pct := func(field string) float64 {
		n := 0
		for _, l := range leads {
			if l.Has(field) {
				n++
			}
		}
		return round1(100 * float64(n) / float64(total))
	}

	sum := 0
	for _, l := range leads {
		sum += l.Int(FieldHitScore)
	}

	return JobStats{
		EmailPct:    pct(FieldEmail),
		LinkedInPct: pct(FieldLinkedInURL),
		PhonePct:    pct(FieldPhone),
		WebsitePct:  pct(FieldWebsite),
		AvgScore:    round1(float64(sum) / float64(total)),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
