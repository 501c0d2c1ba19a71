package notification

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/user"
)

// AdminResolver returns the administrators receiving the course lifecycle notifications.
type AdminResolver interface {
	Admins(ctx context.Context) ([]user.User, error)
}

// ConfiguredAdmins resolves the admins from an explicit e-mail list.
// With an empty list, every admin is resolved, ordered by ID.
type ConfiguredAdmins struct {
	users  user.Repository
	emails []string
}

func NewConfiguredAdmins(users user.Repository, emails []string) *ConfiguredAdmins {
	cleaned := make([]string, 0, len(emails))
	for _, email := range emails {
		if email = core.CleanString(email, true /* lower */); email != "" {
			cleaned = append(cleaned, email)
		}
	}
	return &ConfiguredAdmins{users: users, emails: cleaned}
}

// Admins ignores configured e-mails that are unknown or do not belong to an admin.
func (r *ConfiguredAdmins) Admins(ctx context.Context) ([]user.User, error) {
	filter := user.QueryFilter{Role: user.RoleAdmin}
	if len(r.emails) > 0 {
		filter.Emails = r.emails
	}
	admins, err := r.users.QueryUsers(ctx, filter)
	return admins, errors.Wrap(err, "querying admins")
}

// Notifier creates the notification rows of the course and progress events.
// It implements course.Notifier and progress.Notifier.
type Notifier struct {
	repo   Repository
	admins AdminResolver
}

func NewNotifier(repo Repository, admins AdminResolver) *Notifier {
	return &Notifier{repo: repo, admins: admins}
}

func (n *Notifier) create(ctx context.Context, userID int, title, msg, typ string, courseID int, materialID *int) error {
	_, err := n.repo.CreateNotification(ctx, Notification{
		UserID:     userID,
		Title:      title,
		Message:    msg,
		Type:       typ,
		CreatedAt:  time.Now().UTC(),
		CourseID:   core.IntPtr(courseID),
		MaterialID: materialID,
	})
	return errors.Wrap(err, "creating notification")
}

func (n *Notifier) notifyAdmins(ctx context.Context, title, msg, typ string, courseID int, materialID *int) error {
	admins, err := n.admins.Admins(ctx)
	if err != nil {
		return err
	}
	for _, admin := range admins {
		if err = n.create(ctx, admin.ID, title, msg, typ, courseID, materialID); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) CourseCreated(ctx context.Context, c course.Course, instructor user.User) error {
	return n.notifyAdmins(
		ctx,
		"Nouveau cours créé",
		fmt.Sprintf("Le cours '%s' a été créé par %s %s", c.Title, instructor.LastName, instructor.FirstName),
		TypeCourseCreated,
		c.ID, nil,
	)
}

func (n *Notifier) CourseDeleted(ctx context.Context, c course.Course) error {
	return n.notifyAdmins(
		ctx,
		"Cours supprimé",
		fmt.Sprintf("Le cours '%s' a été supprimé", c.Title),
		TypeCourseDeleted,
		c.ID, nil,
	)
}

// MaterialAdded notifies the admins and every enrolled user.
func (n *Notifier) MaterialAdded(ctx context.Context, c course.Course, m course.Material, enrolledUserIDs []int) error {
	err := n.notifyAdmins(
		ctx,
		"Nouveau matériel ajouté",
		fmt.Sprintf("Un nouveau matériel a été ajouté au cours '%s'", c.Title),
		TypeMaterialAdded,
		c.ID, core.IntPtr(m.ID),
	)
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("Un nouveau matériel est disponible dans le cours '%s'", c.Title)
	for _, uid := range enrolledUserIDs {
		if err = n.create(ctx, uid, "Nouveau matériel disponible", msg, TypeMaterialAdded, c.ID, core.IntPtr(m.ID)); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) ProgressUpdated(ctx context.Context, userID int, c course.Course, value float64) error {
	return n.create(
		ctx, userID,
		"Progression mise à jour",
		fmt.Sprintf("Votre progression dans le cours '%s' est maintenant de %s%%", c.Title, strconv.FormatFloat(value, 'f', -1, 64)),
		TypeProgressUpdated,
		c.ID, nil,
	)
}
