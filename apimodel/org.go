package apimodel

import "time"

const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"

	MemberStatusActive = "ACTIVE"
)

type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type OrganizationMembership struct {
	Organization Organization `json:"organization"`
	Role         string       `json:"role"`
	Status       string       `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
}

type CreateOrganizationRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type InviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

type InviteResponse struct {
	Message string `json:"message"`
}
