package user

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
)

// Roles
const (
	RoleAdmin    = "admin"
	RoleProf     = "prof"
	RoleEmployer = "employer"
)

var AllRoles = []string{RoleAdmin, RoleProf, RoleEmployer}

type User struct {
	ID           int       `json:"id"`
	LastName     string    `json:"nom"`
	FirstName    string    `json:"prenom"`
	Department   string    `json:"departement"`
	Role         string    `json:"role"`
	Email        string    `json:"email"`
	Phone        string    `json:"telephone"`
	PasswordHash []byte    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsApproved   bool      `json:"is_approved"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.LastName + " " + u.FirstName)
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
func (u *User) IsProf() bool  { return u.Role == RoleProf }

// NewUser contains information needed to register a new User.
type NewUser struct {
	LastName        string `json:"nom" validate:"required"`
	FirstName       string `json:"prenom" validate:"required"`
	Department      string `json:"departement" validate:"required,alphanum_"`
	Role            string `json:"role" validate:"required,oneof=admin prof employer"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"telephone" validate:"omitempty,max=32"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
}

func (nu *NewUser) Clean() {
	nu.LastName = core.CleanString(nu.LastName)
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.Department = core.CleanString(nu.Department)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)
}

// NewAdmin contains information needed to bootstrap an administrator account.
type NewAdmin struct {
	LastName        string `json:"nom" validate:"required"`
	FirstName       string `json:"prenom" validate:"required"`
	Department      string `json:"departement" validate:"required,alphanum_"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (na *NewAdmin) Clean() {
	na.LastName = core.CleanString(na.LastName)
	na.FirstName = core.CleanString(na.FirstName)
	na.Department = core.CleanString(na.Department)
	na.Email = core.CleanString(na.Email, true /* lower */)
}

type ResetUserPassword struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// GetFilter selects a single user by any of its unique keys.
type GetFilter struct {
	ID    int
	Email string
}

// QueryFilter applies AND on its non-empty fields.
type QueryFilter struct {
	Role       string
	IsApproved *bool
	IsActive   *bool
	Emails     []string
}

func (qf QueryFilter) Match(usr User) bool {
	if qf.Role != "" && usr.Role != qf.Role {
		return false
	}
	if qf.IsApproved != nil && usr.IsApproved != *qf.IsApproved {
		return false
	}
	if qf.IsActive != nil && usr.IsActive != *qf.IsActive {
		return false
	}
	if qf.Emails != nil {
		for _, email := range qf.Emails {
			if email == usr.Email {
				return true
			}
		}
		return false
	}
	return true
}

// Stats summarizes the user base for the admin dashboard.
type Stats struct {
	Total   int            `json:"total_users"`
	Pending int            `json:"pending_users"`
	Active  int            `json:"active_users"`
	ByRole  map[string]int `json:"users_by_role"`
}
