package types

import "time"

type ResponseValue string

const (
	ResponseAvailable    ResponseValue = "available"
	ResponseNotAvailable ResponseValue = "not_available"
)

func (v ResponseValue) Valid() bool {
	return v == ResponseAvailable || v == ResponseNotAvailable
}

type Response struct {
	ID          string        `db:"id" json:"id"`
	AlertID     string        `db:"alert_id" json:"alertId"`
	DonorID     string        `db:"donor_id" json:"donorId"`
	Response    ResponseValue `db:"response" json:"response"`
	Message     *string       `db:"message" json:"message,omitempty"`
	RespondedAt time.Time     `db:"responded_at" json:"respondedAt"`
}

// ResponseView is a response joined with the donor's contact details.
type ResponseView struct {
	Response
	DonorName  string  `db:"donor_name" json:"donorName"`
	DonorEmail string  `db:"donor_email" json:"donorEmail"`
	DonorPhone *string `db:"donor_phone" json:"donorPhone,omitempty"`
}

type RecordResponseInput struct {
	Response ResponseValue `json:"response" form:"response"`
	Message  *string       `json:"message" form:"message"`
}

// ResponseFilter scopes response counts. HospitalID restricts to responses
// on alerts raised by that hospital.
type ResponseFilter struct {
	HospitalID string
	DonorID    string
	Response   ResponseValue
}
