package services

import (
	"errors"
	"testing"

	"github.com/peerhub/peerhub/internal/models"
	"github.com/peerhub/peerhub/pkg/response"
)

func TestInvite_OwnerOnlyAndNoDuplicates(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	member := createUser(t, db, "member", models.RoleUser)
	candidate := createUser(t, db, "candidate", models.RoleUser)
	project := createProject(t, db, owner, "proj", false)
	addMember(t, db, member, project)

	svc := NewInvitationService(db)

	if _, err := svc.Invite(principalFor(member), project.ID, candidate.ID); err == nil {
		t.Error("non-owner could invite")
	}

	if _, err := svc.Invite(principalFor(owner), project.ID, candidate.ID); err != nil {
		t.Fatalf("Invite: %v", err)
	}

	_, err := svc.Invite(principalFor(owner), project.ID, candidate.ID)
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 409 {
		t.Errorf("duplicate invite error = %v, want conflict", err)
	}

	_, err = svc.Invite(principalFor(owner), project.ID, member.ID)
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 409 {
		t.Errorf("inviting an existing member error = %v, want conflict", err)
	}
}

func TestRespond_AcceptCreatesMembershipAndRemovesInvitation(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	invited := createUser(t, db, "invited", models.RoleUser)
	project := createProject(t, db, owner, "proj", false)

	svc := NewInvitationService(db)
	invitation, err := svc.Invite(principalFor(owner), project.ID, invited.ID)
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}

	result, err := svc.Respond(principalFor(invited), invitation.ID, true)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if result.Status != models.InvitationAccepted {
		t.Errorf("status = %q, want accepted", result.Status)
	}

	isMember, err := userIsMember(db, invited.ID, project.ID)
	if err != nil {
		t.Fatalf("membership check: %v", err)
	}
	if !isMember {
		t.Error("accepted invitee is not a member")
	}

	var remaining int64
	db.Model(&models.ProjectInvitation{}).Where("id = ?", invitation.ID).Count(&remaining)
	if remaining != 0 {
		t.Error("answered invitation row still exists")
	}

	// The slot is free again; the owner can re-invite after the user leaves.
	if err := NewMembershipService(db).Leave(principalFor(invited), project.ID); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if _, err := svc.Invite(principalFor(owner), project.ID, invited.ID); err != nil {
		t.Errorf("re-inviting after leave: %v", err)
	}
}

func TestRespond_AcceptSettlesPendingJoinRequest(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	invited := createUser(t, db, "invited", models.RoleUser)
	project := createProject(t, db, owner, "proj", false)

	if err := db.Create(&models.JoinRequest{
		UserID:    invited.ID,
		ProjectID: project.ID,
		Status:    models.JoinRequestPending,
	}).Error; err != nil {
		t.Fatalf("seeding join request: %v", err)
	}

	svc := NewInvitationService(db)
	invitation, err := svc.Invite(principalFor(owner), project.ID, invited.ID)
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if _, err := svc.Respond(principalFor(invited), invitation.ID, true); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	var request models.JoinRequest
	if err := db.Where("user_id = ? AND project_id = ?", invited.ID, project.ID).
		First(&request).Error; err != nil {
		t.Fatalf("join request missing: %v", err)
	}
	if request.Status != models.JoinRequestAccepted {
		t.Errorf("join request status = %q, want accepted", request.Status)
	}
}

func TestRespond_DeclineLeavesNoMembership(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	invited := createUser(t, db, "invited", models.RoleUser)
	project := createProject(t, db, owner, "proj", false)

	svc := NewInvitationService(db)
	invitation, err := svc.Invite(principalFor(owner), project.ID, invited.ID)
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}

	result, err := svc.Respond(principalFor(invited), invitation.ID, false)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if result.Status != models.InvitationDeclined {
		t.Errorf("status = %q, want declined", result.Status)
	}

	isMember, _ := userIsMember(db, invited.ID, project.ID)
	if isMember {
		t.Error("declined invitee became a member")
	}
}

func TestRespond_OnlyInvitedUserMayAnswer(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	invited := createUser(t, db, "invited", models.RoleUser)
	other := createUser(t, db, "other", models.RoleUser)
	project := createProject(t, db, owner, "proj", false)

	svc := NewInvitationService(db)
	invitation, err := svc.Invite(principalFor(owner), project.ID, invited.ID)
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}

	_, err = svc.Respond(principalFor(other), invitation.ID, true)
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 404 {
		t.Errorf("other user's respond error = %v, want not found", err)
	}
}
