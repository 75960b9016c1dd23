package calendar

import "time"

type Holiday struct {
	ID         string    `json:"id"`
	Date       time.Time `json:"date"`
	Name       string    `json:"name"`
	Active     bool      `json:"active"`
	Restricted bool      `json:"restricted"`
	CreatedAt  time.Time `json:"createdAt"`
}

type CompanyEvent struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}
