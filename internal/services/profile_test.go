package services

import (
	"testing"

	"github.com/peerhub/peerhub/internal/models"
)

func TestProfileGet_CreatesMissingProfileAndFiltersProjects(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	viewer := createUser(t, db, "viewer", models.RoleUser)

	createProject(t, db, owner, "public", false)
	createProject(t, db, owner, "private", true)

	svc := NewProfileService(db)
	page, err := svc.Get(principalFor(viewer), owner.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if page.Profile.UserID != owner.ID {
		t.Error("profile row was not created on first read")
	}
	if len(page.Memberships) != 1 || page.Memberships[0].Project.Name != "public" {
		t.Errorf("viewer sees %d memberships, want only the public project", len(page.Memberships))
	}

	// The owner sees both of their projects on their own profile.
	page, err = svc.Get(principalFor(owner), owner.ID)
	if err != nil {
		t.Fatalf("Get own profile: %v", err)
	}
	if len(page.Memberships) != 2 {
		t.Errorf("owner sees %d memberships, want 2", len(page.Memberships))
	}
}

func TestProfileUpdate(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "user", models.RoleUser)

	bio := "systems researcher"
	first := "Ada"
	page, err := NewProfileService(db).Update(principalFor(user), &UpdateProfileRequest{
		FirstName: &first,
		Bio:       &bio,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if page.User.FirstName != "Ada" {
		t.Errorf("first name = %q", page.User.FirstName)
	}
	if page.Profile.Bio != "systems researcher" {
		t.Errorf("bio = %q", page.Profile.Bio)
	}
}

func TestUserSearch_ExcludesSelfAdminsAndMembers(t *testing.T) {
	db := newTestDB(t)
	me := createUser(t, db, "me", models.RoleUser)
	admin := createUser(t, db, "platform-admin", models.RoleAdmin)
	member := createUser(t, db, "existing-member", models.RoleUser)
	candidate := createUser(t, db, "candidate", models.RoleUser)
	_ = admin

	project := createProject(t, db, me, "proj", false)
	addMember(t, db, member, project)

	users, err := NewUserService(db).Search(principalFor(me), "", project.ID)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(users) != 1 || users[0].ID != candidate.ID {
		names := make([]string, 0, len(users))
		for _, u := range users {
			names = append(names, u.Username)
		}
		t.Errorf("search returned %v, want only the candidate", names)
	}
}

func TestUserSearch_MatchesBio(t *testing.T) {
	db := newTestDB(t)
	me := createUser(t, db, "me", models.RoleUser)
	expert := createUser(t, db, "expert", models.RoleUser)
	if err := db.Create(&models.UserProfile{
		UserID: expert.ID,
		Bio:    "distributed systems reviewer",
	}).Error; err != nil {
		t.Fatalf("seeding profile: %v", err)
	}
	createUser(t, db, "unrelated", models.RoleUser)

	users, err := NewUserService(db).Search(principalFor(me), "distributed", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(users) != 1 || users[0].ID != expert.ID {
		t.Errorf("bio search returned %d users, want the expert", len(users))
	}
}
