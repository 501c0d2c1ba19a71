package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound            = errors.New("user not found")
	ErrEmailTaken          = errors.New("a user with this email already exists")
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrInvalidCredentials  = errors.New("incorrect email or password")
	ErrNotApproved         = errors.New("account not yet approved by an administrator")
	ErrAccountDeactivated  = errors.New("account deactivated")
	ErrSelfDeleteForbidden = errors.New("you cannot delete your own account")
)

const accountApprovedTemplate = "account_approved"

type (
	Repository interface {
		// CreateUser returns ErrEmailTaken when the email is already registered.
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers returns the users matching filter ordered by ID.
		QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUser(ctx context.Context, id int) error
	}

	Service struct {
		tx       core.Transactor
		repo     Repository
		mailSvc  core.EmailService
		validate *validator.Validate
		site     core.SiteData
	}
)

func NewService(tx core.Transactor, repo Repository, mailSvc core.EmailService, validate *validator.Validate, site core.SiteData) *Service {
	return &Service{tx: tx, repo: repo, mailSvc: mailSvc, validate: validate, site: site}
}

// Authorize fails with core.ErrForbidden unless usr has one of roles.
func Authorize(usr User, roles ...string) error {
	for _, role := range roles {
		if usr.Role == role {
			return nil
		}
	}
	return core.ErrForbidden
}

func (svc *Service) checkEmailUniqueness(ctx context.Context, email string, excl ...int) error {
	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: email})
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return errors.Wrap(err, "finding user by email")
	}
	for _, id := range excl {
		if usr.ID == id {
			return nil
		}
	}
	return emailTakenError()
}

func emailTakenError() error {
	return core.NewValidationError(ErrEmailTaken, core.FieldError{Field: "email", Error: ErrEmailTaken.Error()})
}

func passwordMismatchError() error {
	return core.NewValidationError(ErrPasswordMismatch, core.FieldError{Field: "password_confirm", Error: ErrPasswordMismatch.Error()})
}

func (svc *Service) createUser(ctx context.Context, usr User) (User, error) {
	usr, err := svc.repo.CreateUser(ctx, usr)
	if errors.Is(err, ErrEmailTaken) {
		return User{}, emailTakenError()
	}
	return usr, err
}

// Register creates an active but unapproved account, whatever the requested role.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	nu.Clean()
	if nu.Password != nu.PasswordConfirm {
		return User{}, passwordMismatchError()
	}
	if err := svc.validate.Struct(nu); err != nil {
		return User{}, err
	}

	usr := User{
		LastName:   nu.LastName,
		FirstName:  nu.FirstName,
		Department: nu.Department,
		Role:       nu.Role,
		Email:      nu.Email,
		Phone:      nu.Phone,
		IsActive:   true,
		IsApproved: false,
		CreatedAt:  time.Now().UTC(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := svc.checkEmailUniqueness(ctx, usr.Email); err != nil {
			return err
		}
		var err error
		usr, err = svc.createUser(ctx, usr)
		return err
	})
	if err != nil {
		return User{}, err
	}
	return usr, nil
}

// Authenticate checks the credentials and the approval gate.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsApproved {
		return User{}, ErrNotApproved
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{Email: email})
}

func (svc *Service) QueryPending(ctx context.Context, actor User) ([]User, error) {
	if err := Authorize(actor, RoleAdmin); err != nil {
		return nil, err
	}
	return svc.repo.QueryUsers(ctx, QueryFilter{IsApproved: core.BoolPtr(false)})
}

// SetApproval flips the approval flag of the user `id`.
// The user is e-mailed when the account becomes approved.
func (svc *Service) SetApproval(ctx context.Context, actor User, id int, approved bool) (User, error) {
	if err := Authorize(actor, RoleAdmin); err != nil {
		return User{}, err
	}

	var (
		usr         User
		newApproval bool
	)
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if usr, err = svc.repo.GetUser(ctx, GetFilter{ID: id}); err != nil {
			return err
		}
		newApproval = approved && !usr.IsApproved
		usr.IsApproved = approved
		usr, err = svc.repo.UpdateUser(ctx, usr)
		return err
	})
	if err != nil {
		return User{}, err
	}

	if newApproval {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
			Subject:      "Your account has been approved",
			TemplateName: accountApprovedTemplate,
			TemplateData: struct{ Name, Email string }{usr.FullName(), usr.Email},
		})
	}
	return usr, nil
}

// Delete removes the user `id` along with everything it owns.
func (svc *Service) Delete(ctx context.Context, actor User, id int) error {
	if err := Authorize(actor, RoleAdmin); err != nil {
		return err
	}
	if actor.ID == id {
		return ErrSelfDeleteForbidden
	}
	return svc.repo.DeleteUser(ctx, id)
}

// CreateAdmin creates an approved and active administrator, or promotes the existing account with the same email.
func (svc *Service) CreateAdmin(ctx context.Context, na NewAdmin) (User, error) {
	na.Clean()
	if err := svc.validate.Struct(na); err != nil {
		return User{}, err
	}

	var usr User
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		usr, err = svc.repo.GetUser(ctx, GetFilter{Email: na.Email})
		exists := err == nil
		if err != nil && !errors.Is(err, ErrNotFound) {
			return errors.Wrap(err, "finding user by email")
		}

		usr.LastName = na.LastName
		usr.FirstName = na.FirstName
		usr.Department = na.Department
		usr.Email = na.Email
		usr.Role = RoleAdmin
		usr.IsActive = true
		usr.IsApproved = true
		if err = usr.SetPassword(na.Password); err != nil {
			return errors.Wrap(err, "hashing password")
		}

		if exists {
			usr, err = svc.repo.UpdateUser(ctx, usr)
			return err
		}
		usr.CreatedAt = time.Now().UTC()
		usr, err = svc.createUser(ctx, usr)
		return err
	})
	if err != nil {
		return User{}, err
	}
	return usr, nil
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) (User, error) {
	rp.Email = core.CleanString(rp.Email, true /* lower */)
	if err := svc.validate.Struct(rp); err != nil {
		return User{}, err
	}

	var usr User
	err := svc.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if usr, err = svc.repo.GetUser(ctx, GetFilter{Email: rp.Email}); err != nil {
			return err
		}
		if err = usr.SetPassword(rp.Password); err != nil {
			return errors.Wrap(err, "hashing password")
		}
		usr, err = svc.repo.UpdateUser(ctx, usr)
		return err
	})
	if err != nil {
		return User{}, err
	}
	return usr, nil
}

// Stats returns the admin dashboard user counters.
func (svc *Service) Stats(ctx context.Context, actor User) (Stats, error) {
	if err := Authorize(actor, RoleAdmin); err != nil {
		return Stats{}, err
	}

	users, err := svc.repo.QueryUsers(ctx, QueryFilter{})
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying users")
	}
	stats := Stats{Total: len(users), ByRole: make(map[string]int, len(AllRoles))}
	for _, role := range AllRoles {
		stats.ByRole[role] = 0
	}
	for _, usr := range users {
		if !usr.IsApproved {
			stats.Pending++
		}
		if usr.IsActive {
			stats.Active++
		}
		stats.ByRole[usr.Role]++
	}
	return stats, nil
}
