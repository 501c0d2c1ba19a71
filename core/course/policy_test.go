package course

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/academia/core/user"
)

var (
	admin    = user.User{ID: 1, Role: user.RoleAdmin, Department: "IT"}
	profCS   = user.User{ID: 2, Role: user.RoleProf, Department: "CS"}
	profCS2  = user.User{ID: 3, Role: user.RoleProf, Department: "CS"}
	profHR   = user.User{ID: 4, Role: user.RoleProf, Department: "HR"}
	empCS    = user.User{ID: 5, Role: user.RoleEmployer, Department: "CS"}
	empSales = user.User{ID: 6, Role: user.RoleEmployer, Department: "Sales"}

	// profHR moved away from CS after creating courseByHRInCS
	courseCS       = Course{ID: 10, InstructorID: profCS.ID, Department: "CS"}
	courseHR       = Course{ID: 11, InstructorID: profHR.ID, Department: "HR"}
	courseByHRInCS = Course{ID: 12, InstructorID: profHR.ID, Department: "CS"}
	courseMkt      = Course{ID: 13, InstructorID: 99, Department: "Marketing"}
)

func TestCanView(t *testing.T) {
	tests := []struct {
		name string
		usr  user.User
		c    Course
		want bool
	}{
		{"admin sees everything", admin, courseMkt, true},
		{"prof sees own course", profCS, courseCS, true},
		{"prof sees department course", profCS2, courseCS, true},
		{"prof does not see other department", profCS, courseHR, false},
		{"prof sees own course in another department", profHR, courseByHRInCS, true},
		{"employer sees department course", empCS, courseByHRInCS, true},
		{"employer does not see other department", empSales, courseMkt, false},
		{"unknown role sees nothing", user.User{ID: 7, Role: "guest", Department: "CS"}, courseCS, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanView(tt.usr, tt.c))
		})
	}
}

func TestCanModify(t *testing.T) {
	tests := []struct {
		name string
		usr  user.User
		c    Course
		want bool
	}{
		{"admin", admin, courseCS, true},
		{"owner", profCS, courseCS, true},
		{"same department prof can read but not modify", profCS2, courseCS, false},
		{"employer", empCS, courseCS, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanModify(tt.usr, tt.c))
		})
	}
}

func TestVisible(t *testing.T) {
	all := []Course{courseMkt, courseByHRInCS, courseHR, courseCS}

	assert.Equal(t, all, Visible(admin, all))
	assert.Equal(t, []Course{courseByHRInCS, courseCS}, Visible(profCS, all))
	assert.Equal(t, []Course{courseByHRInCS, courseHR}, Visible(profHR, all))
	assert.Equal(t, []Course{courseByHRInCS, courseCS}, Visible(empCS, all))
	assert.Empty(t, Visible(empSales, all))
}
