package services

import (
	"gorm.io/gorm"

	"github.com/peerhub/peerhub/internal/models"
)

// ProfileService serves public profile pages and the owner's profile edits.
type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// ProfilePage is everything the profile view shows: the user, their profile
// fields and their project memberships with join dates.
type ProfilePage struct {
	User        models.User                `json:"user"`
	Profile     models.UserProfile         `json:"profile"`
	Memberships []models.ProjectMembership `json:"memberships"`
}

// Get assembles the profile page for a user. Project memberships are
// filtered to what the viewer may see.
func (s *ProfileService) Get(p Principal, userID uint) (*ProfilePage, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, errUserNotFound(err)
	}

	profile, err := EnsureProfile(s.db, user.ID)
	if err != nil {
		return nil, err
	}

	var memberships []models.ProjectMembership
	if err := s.db.Preload("Project").Preload("Project.Owner").
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&memberships).Error; err != nil {
		return nil, err
	}

	viewerMemberOf, err := NewVisibilityService(s.db).projectIDSet(&models.ProjectMembership{}, p)
	if err != nil {
		return nil, err
	}
	visible := memberships[:0]
	for _, m := range memberships {
		if m.Project != nil && ProjectVisible(m.Project, p, viewerMemberOf[m.ProjectID]) {
			visible = append(visible, m)
		}
	}

	return &ProfilePage{User: user, Profile: *profile, Memberships: visible}, nil
}

// UpdateProfileRequest carries partial profile edits; nil fields are left
// untouched.
type UpdateProfileRequest struct {
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Email           *string `json:"email"`
	Bio             *string `json:"bio"`
	Specializations *string `json:"specializations"`
	LinkedIn        *string `json:"linkedin"`
	GitHub          *string `json:"github"`
	Twitter         *string `json:"twitter"`
}

// Update edits p's own account and profile fields.
func (s *ProfileService) Update(p Principal, req *UpdateProfileRequest) (*ProfilePage, error) {
	var user models.User
	if err := s.db.First(&user, p.UserID).Error; err != nil {
		return nil, errUserNotFound(err)
	}

	userUpdates := map[string]interface{}{}
	if req.FirstName != nil {
		userUpdates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		userUpdates["last_name"] = *req.LastName
	}
	if req.Email != nil {
		userUpdates["email"] = *req.Email
	}

	profileUpdates := map[string]interface{}{}
	if req.Bio != nil {
		profileUpdates["bio"] = *req.Bio
	}
	if req.Specializations != nil {
		profileUpdates["specializations"] = *req.Specializations
	}
	if req.LinkedIn != nil {
		profileUpdates["linked_in"] = *req.LinkedIn
	}
	if req.GitHub != nil {
		profileUpdates["git_hub"] = *req.GitHub
	}
	if req.Twitter != nil {
		profileUpdates["twitter"] = *req.Twitter
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if len(userUpdates) > 0 {
			if err := tx.Model(&user).Updates(userUpdates).Error; err != nil {
				return err
			}
		}
		profile, err := EnsureProfile(tx, user.ID)
		if err != nil {
			return err
		}
		if len(profileUpdates) > 0 {
			return tx.Model(profile).Updates(profileUpdates).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(p, p.UserID)
}

// EnsureProfile returns the user's profile row, creating an empty one if it
// does not exist yet. Called at every user-creation boundary and again on
// reads, for accounts that predate profiles.
func EnsureProfile(db *gorm.DB, userID uint) (*models.UserProfile, error) {
	profile := models.UserProfile{UserID: userID}
	err := db.Where("user_id = ?", userID).FirstOrCreate(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
