package course

import "github.com/trezcool/academia/core/user"

// QueryFilter restricts a course query.
// Unless Unrestricted is set, a course matches when it is instructed by InstructorID OR belongs to Department.
type QueryFilter struct {
	Unrestricted bool
	InstructorID *int
	Department   *string
}

func (qf QueryFilter) Match(c Course) bool {
	if qf.Unrestricted {
		return true
	}
	if qf.InstructorID != nil && c.InstructorID == *qf.InstructorID {
		return true
	}
	return qf.Department != nil && c.Department == *qf.Department
}

// VisibilityFilter returns the filter selecting the courses usr can read.
func VisibilityFilter(usr user.User) QueryFilter {
	dept := usr.Department
	switch usr.Role {
	case user.RoleAdmin:
		return QueryFilter{Unrestricted: true}
	case user.RoleProf:
		id := usr.ID
		return QueryFilter{InstructorID: &id, Department: &dept}
	case user.RoleEmployer:
		return QueryFilter{Department: &dept}
	default:
		return QueryFilter{}
	}
}

// CanView reports whether usr may read c.
func CanView(usr user.User, c Course) bool {
	return VisibilityFilter(usr).Match(c)
}

// CanModify reports whether usr may update or delete c: admins and the owning instructor only.
func CanModify(usr user.User, c Course) bool {
	return usr.IsAdmin() || (usr.IsProf() && c.InstructorID == usr.ID)
}

// Visible filters courses down to the ones usr can read, keeping their order.
func Visible(usr user.User, courses []Course) []Course {
	filter := VisibilityFilter(usr)
	visible := make([]Course, 0, len(courses))
	for _, c := range courses {
		if filter.Match(c) {
			visible = append(visible, c)
		}
	}
	return visible
}
