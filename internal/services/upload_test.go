package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/peerhub/peerhub/internal/models"
	"github.com/peerhub/peerhub/pkg/response"
)

func TestMimeTypeFor(t *testing.T) {
	cases := map[string]string{
		"paper.pdf":   "application/pdf",
		"photo.jpg":   "image/jpeg",
		"notes.txt":   "text/plain",
		"talk.mp4":    "video/mp4",
		"mystery.xyz": "application/octet-stream",
		"noext":       "application/octet-stream",
	}
	for fileName, want := range cases {
		if got := mimeTypeFor(fileName); got != want {
			t.Errorf("mimeTypeFor(%q) = %q, want %q", fileName, got, want)
		}
	}
}

func TestDispositionFor(t *testing.T) {
	if got := dispositionFor("application/pdf", "dir/paper.pdf"); !strings.HasPrefix(got, "inline;") {
		t.Errorf("pdf disposition = %q, want inline", got)
	}
	if got := dispositionFor("application/zip", "bundle.zip"); !strings.HasPrefix(got, "attachment;") {
		t.Errorf("zip disposition = %q, want attachment", got)
	}
	if got := dispositionFor("application/pdf", "a/b/paper.pdf"); strings.Contains(got, "a/b") {
		t.Errorf("disposition leaks the path: %q", got)
	}
}

func TestCreateUpload_StoresBlobAndQueuesMedia(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	project := createProject(t, db, owner, "proj", false)
	store := newFakeStore()
	queue := &fakeQueue{}

	svc := NewUploadService(db, store, queue, nil, time.Hour)

	upload, err := svc.Create(context.Background(), principalFor(owner), project.ID,
		&CreateUploadRequest{Name: "talk"}, "talk.mp4", strings.NewReader("media-bytes"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, ok := store.objects["proj/talk.mp4"]; !ok {
		t.Error("blob not stored under the project prefix")
	}
	if upload.OutputKey == nil || *upload.OutputKey != "proj/talk.mp4-transcription.json" {
		t.Errorf("output key = %v, want proj/talk.mp4-transcription.json", upload.OutputKey)
	}
	if upload.TranscriptionJobName != nil {
		t.Error("job name set before any submission happened")
	}
	if len(queue.tasks) != 1 || queue.tasks[0].UploadID != upload.ID {
		t.Errorf("queued tasks = %v, want one for upload %d", queue.tasks, upload.ID)
	}
}

func TestCreateUpload_NonMediaIsNotQueued(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	project := createProject(t, db, owner, "proj", false)
	queue := &fakeQueue{}

	svc := NewUploadService(db, newFakeStore(), queue, nil, time.Hour)
	if _, err := svc.Create(context.Background(), principalFor(owner), project.ID,
		&CreateUploadRequest{Name: "paper"}, "paper.pdf", strings.NewReader("pdf")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(queue.tasks) != 0 {
		t.Errorf("%d tasks queued for a pdf upload", len(queue.tasks))
	}
}

func TestCreateUpload_QueueFailureDoesNotLoseTheUpload(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	project := createProject(t, db, owner, "proj", false)
	queue := &fakeQueue{fail: true}

	svc := NewUploadService(db, newFakeStore(), queue, nil, time.Hour)
	upload, err := svc.Create(context.Background(), principalFor(owner), project.ID,
		&CreateUploadRequest{Name: "talk"}, "talk.mp3", strings.NewReader("media"))
	if err != nil {
		t.Fatalf("Create with broken queue: %v", err)
	}

	var reloaded models.Upload
	if err := db.First(&reloaded, upload.ID).Error; err != nil {
		t.Fatalf("upload row missing after queue failure: %v", err)
	}
	if reloaded.TranscriptionJobName != nil {
		t.Error("job name set even though submission never ran")
	}
}

func TestCreateUpload_RequiresMembership(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	stranger := createUser(t, db, "stranger", models.RoleUser)
	project := createProject(t, db, owner, "proj", false)

	svc := NewUploadService(db, newFakeStore(), &fakeQueue{}, nil, time.Hour)
	_, err := svc.Create(context.Background(), principalFor(stranger), project.ID,
		&CreateUploadRequest{Name: "x"}, "x.txt", strings.NewReader("text"))
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 403 {
		t.Errorf("stranger upload error = %v, want forbidden", err)
	}
}

func TestCreateUpload_DuplicateNameWithinProject(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	project := createProject(t, db, owner, "proj", false)
	other := createProject(t, db, owner, "other", false)

	svc := NewUploadService(db, newFakeStore(), &fakeQueue{}, nil, time.Hour)
	ctx := context.Background()
	p := principalFor(owner)

	if _, err := svc.Create(ctx, p, project.ID,
		&CreateUploadRequest{Name: "notes"}, "a.txt", strings.NewReader("a")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err := svc.Create(ctx, p, project.ID,
		&CreateUploadRequest{Name: "notes"}, "b.txt", strings.NewReader("b"))
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.Fields["name"] == "" {
		t.Errorf("duplicate name error = %v, want a field error on name", err)
	}

	// The same display name is fine in a different project.
	if _, err := svc.Create(ctx, p, other.ID,
		&CreateUploadRequest{Name: "notes"}, "c.txt", strings.NewReader("c")); err != nil {
		t.Errorf("same name in another project: %v", err)
	}
}

func TestViewUpload_PresignsWithTypeAndDisposition(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	project := createProject(t, db, owner, "proj", false)
	store := newFakeStore()

	svc := NewUploadService(db, store, &fakeQueue{}, nil, time.Hour)
	upload, err := svc.Create(context.Background(), principalFor(owner), project.ID,
		&CreateUploadRequest{Name: "paper"}, "paper.pdf", strings.NewReader("pdf"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	view, err := svc.View(context.Background(), principalFor(owner), project.ID, upload.ID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if view.FileType != "application/pdf" {
		t.Errorf("file type = %q, want application/pdf", view.FileType)
	}
	if !strings.Contains(view.FileURL, "proj/paper.pdf") {
		t.Errorf("file URL %q does not reference the blob", view.FileURL)
	}
	if !strings.Contains(view.FileURL, "inline") {
		t.Errorf("pdf should be served inline, got %q", view.FileURL)
	}
	if view.Transcription != "" {
		t.Errorf("transcription = %q for an upload without a job", view.Transcription)
	}
}

func TestDeleteUpload_RemovesBlobThreadAndRow(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	project := createProject(t, db, owner, "proj", false)
	store := newFakeStore()

	svc := NewUploadService(db, store, &fakeQueue{}, nil, time.Hour)
	upload, err := svc.Create(context.Background(), principalFor(owner), project.ID,
		&CreateUploadRequest{Name: "notes"}, "notes.txt", strings.NewReader("text"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	prompt := &models.Prompt{UploadID: upload.ID, Content: "q", CreatedByID: owner.ID}
	if err := db.Create(prompt).Error; err != nil {
		t.Fatalf("seeding prompt: %v", err)
	}

	if err := svc.Delete(context.Background(), principalFor(owner), project.ID, upload.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, ok := store.objects["proj/notes.txt"]; ok {
		t.Error("blob survived upload deletion")
	}
	var uploads, prompts int64
	db.Model(&models.Upload{}).Count(&uploads)
	db.Model(&models.Prompt{}).Count(&prompts)
	if uploads != 0 || prompts != 0 {
		t.Errorf("after delete: %d uploads, %d prompts, want 0 and 0", uploads, prompts)
	}
}

func TestUpdateUploadMetadata_OnlyManagersMayEdit(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	uploader := createUser(t, db, "uploader", models.RoleUser)
	member := createUser(t, db, "member", models.RoleUser)
	project := createProject(t, db, owner, "proj", false)
	addMember(t, db, uploader, project)
	addMember(t, db, member, project)

	svc := NewUploadService(db, newFakeStore(), &fakeQueue{}, nil, time.Hour)
	upload, err := svc.Create(context.Background(), principalFor(uploader), project.ID,
		&CreateUploadRequest{Name: "notes"}, "notes.txt", strings.NewReader("text"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	desc := "updated"
	if _, err := svc.UpdateMetadata(principalFor(uploader), project.ID, upload.ID,
		&UpdateUploadRequest{Description: &desc}); err != nil {
		t.Errorf("uploader edit: %v", err)
	}

	_, err = svc.UpdateMetadata(principalFor(member), project.ID, upload.ID,
		&UpdateUploadRequest{Description: &desc})
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.HTTPStatus != 403 {
		t.Errorf("plain member edit error = %v, want forbidden", err)
	}
}

func TestListUploads_SearchByNameAndKeywords(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	project := createProject(t, db, owner, "proj", false)

	svc := NewUploadService(db, newFakeStore(), &fakeQueue{}, nil, time.Hour)
	ctx := context.Background()
	p := principalFor(owner)
	if _, err := svc.Create(ctx, p, project.ID,
		&CreateUploadRequest{Name: "draft one", Keywords: "intro, methods"},
		"one.txt", strings.NewReader("1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, p, project.ID,
		&CreateUploadRequest{Name: "slides", Keywords: "talk"},
		"two.txt", strings.NewReader("2")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	uploads, err := svc.List(p, project.ID, "methods")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(uploads) != 1 || uploads[0].Name != "draft one" {
		t.Errorf("keyword search returned %d uploads, want the draft", len(uploads))
	}

	uploads, err = svc.List(p, project.ID, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(uploads) != 2 {
		t.Errorf("unfiltered list returned %d uploads, want 2", len(uploads))
	}
}
