package types

import "time"

type HospitalStats struct {
	TotalAlerts           int `json:"totalAlerts"`
	ActiveAlerts          int `json:"activeAlerts"`
	TotalResponses        int `json:"totalResponses"`
	AvailableResponses    int `json:"availableResponses"`
	NotAvailableResponses int `json:"notAvailableResponses"`
}

type DonorStats struct {
	ActiveAlertsForBloodType int        `json:"activeAlertsForBloodType"`
	TotalResponses           int        `json:"totalResponses"`
	AvailableResponses       int        `json:"availableResponses"`
	LastDonation             *time.Time `json:"lastDonation"`
}

// Stats carries exactly one populated member, chosen by the caller's role.
// Admins receive system-wide numbers in the Hospital shape.
type Stats struct {
	Hospital *HospitalStats
	Donor    *DonorStats
}

// Value returns the populated member for encoding.
func (s *Stats) Value() any {
	if s.Donor != nil {
		return s.Donor
	}
	return s.Hospital
}
