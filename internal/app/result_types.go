package app

import "repair-desk/internal/ai"

// AIResult is returned by InterpretIntake.
type AIResult struct {
	Proposal             *ai.IntakeProposal `json:"proposal,omitempty"`
	ClarificationMessage string             `json:"clarification_message,omitempty"`
	MissingFields        []string           `json:"missing_fields,omitempty"`
	IsClarification      bool               `json:"is_clarification"`
}

// UserSession is returned by AuthenticateUser.
type UserSession struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	IsStaff  bool   `json:"is_staff"`
}

// UserResult is returned by GetUser and CreateAdminUser.
type UserResult struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsStaff  bool   `json:"is_staff"`
	Created  bool   `json:"created,omitempty"`
}

// ExportResult is a rendered file download.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SeedResult counts what SeedSampleData created.
type SeedResult struct {
	CustomersCreated int `json:"customers_created"`
	ServicesCreated  int `json:"services_created"`
	ServicesExisting int `json:"services_existing"`
}
