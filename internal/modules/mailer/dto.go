package mailer

import "slotbook/internal/domain"

type TemplateRequest struct {
	Name    string        `json:"name" binding:"required"`
	Type    string        `json:"type" binding:"required"`
	Subject string        `json:"subject" binding:"required"`
	Body    string        `json:"body" binding:"required"`
	Timing  domain.Timing `json:"timing"`
}

type TestSendRequest struct {
	To string `json:"to" binding:"required,email"`
}
