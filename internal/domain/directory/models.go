package directory

import "time"

type Employee struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	JoinDate  time.Time `json:"joinDate"`
	Active    bool      `json:"active"`
	ManagerID string    `json:"managerId,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}
