package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	transcribetypes "github.com/aws/aws-sdk-go-v2/service/transcribe/types"

	"github.com/peerhub/peerhub/internal/models"
)

// fakeTranscribe scripts the provider's answers.
type fakeTranscribe struct {
	status   transcribetypes.TranscriptionJobStatus
	startErr error
	getErr   error
	noJob    bool
	started  []*transcribe.StartTranscriptionJobInput
}

func (f *fakeTranscribe) StartTranscriptionJob(_ context.Context, params *transcribe.StartTranscriptionJobInput, _ ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, params)
	return &transcribe.StartTranscriptionJobOutput{}, nil
}

func (f *fakeTranscribe) GetTranscriptionJob(_ context.Context, _ *transcribe.GetTranscriptionJobInput, _ ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.noJob {
		return &transcribe.GetTranscriptionJobOutput{}, nil
	}
	return &transcribe.GetTranscriptionJobOutput{
		TranscriptionJob: &transcribetypes.TranscriptionJob{
			TranscriptionJobStatus: f.status,
		},
	}, nil
}

func TestNewTranscriptionJobName(t *testing.T) {
	name := NewTranscriptionJobName("My Project", "talk one.mp4")
	if !strings.HasSuffix(name, "-transcription") {
		t.Errorf("job name %q missing the -transcription suffix", name)
	}
	if !strings.HasPrefix(name, "My_Project-talk_one.mp4-") {
		t.Errorf("job name %q not built from the sanitized project and file", name)
	}
	if strings.ContainsAny(name, " /") {
		t.Errorf("job name %q contains characters the provider rejects", name)
	}
	if name == NewTranscriptionJobName("My Project", "talk one.mp4") {
		t.Error("two job names for the same file collided")
	}
}

func TestTranscriptionOutputKey(t *testing.T) {
	got := TranscriptionOutputKey("My Project", "talk.mp4")
	want := "My_Project/talk.mp4-transcription.json"
	if got != want {
		t.Errorf("output key = %q, want %q", got, want)
	}
}

func TestSubmitForUpload_StartsJobAndPersistsName(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	project := createProject(t, db, owner, "proj", false)
	outputKey := "proj/talk.mp4-transcription.json"
	upload := &models.Upload{
		Name: "talk", OwnerID: owner.ID, ProjectID: project.ID,
		FileName: "talk.mp4", OutputKey: &outputKey,
	}
	if err := db.Create(upload).Error; err != nil {
		t.Fatalf("seeding upload: %v", err)
	}

	client := &fakeTranscribe{}
	svc := NewTranscriptionService(db, newFakeStore(), client, "bucket")
	if err := svc.SubmitForUpload(context.Background(), upload.ID); err != nil {
		t.Fatalf("SubmitForUpload: %v", err)
	}

	if len(client.started) != 1 {
		t.Fatalf("%d jobs started, want 1", len(client.started))
	}
	input := client.started[0]
	if got := aws.ToString(input.Media.MediaFileUri); got != "s3://bucket/proj/talk.mp4" {
		t.Errorf("media uri = %q", got)
	}
	if input.MediaFormat != transcribetypes.MediaFormatMp4 {
		t.Errorf("media format = %q, want mp4", input.MediaFormat)
	}
	if got := aws.ToString(input.OutputKey); got != outputKey {
		t.Errorf("output key = %q, want %q", got, outputKey)
	}

	var reloaded models.Upload
	if err := db.First(&reloaded, upload.ID).Error; err != nil {
		t.Fatalf("reloading upload: %v", err)
	}
	if reloaded.TranscriptionJobName == nil {
		t.Fatal("job name not persisted")
	}

	// Re-running the task must not start a second job.
	if err := svc.SubmitForUpload(context.Background(), upload.ID); err != nil {
		t.Fatalf("second SubmitForUpload: %v", err)
	}
	if len(client.started) != 1 {
		t.Errorf("re-submission started %d extra jobs", len(client.started)-1)
	}
}

func TestSubmitForUpload_ProviderRejectionIsSwallowed(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	project := createProject(t, db, owner, "proj", false)
	upload := &models.Upload{
		Name: "talk", OwnerID: owner.ID, ProjectID: project.ID, FileName: "talk.mp3",
	}
	if err := db.Create(upload).Error; err != nil {
		t.Fatalf("seeding upload: %v", err)
	}

	client := &fakeTranscribe{startErr: fmt.Errorf("throttled")}
	svc := NewTranscriptionService(db, newFakeStore(), client, "bucket")
	if err := svc.SubmitForUpload(context.Background(), upload.ID); err != nil {
		t.Fatalf("SubmitForUpload should swallow provider errors, got %v", err)
	}

	var reloaded models.Upload
	if err := db.First(&reloaded, upload.ID).Error; err != nil {
		t.Fatalf("reloading upload: %v", err)
	}
	if reloaded.TranscriptionJobName != nil {
		t.Error("job name persisted for a rejected submission")
	}
}

func TestSubmitForUpload_SkipsNonMediaAndMissingRows(t *testing.T) {
	db := newTestDB(t)
	owner := createUser(t, db, "owner", models.RoleUser)
	project := createProject(t, db, owner, "proj", false)
	upload := &models.Upload{
		Name: "paper", OwnerID: owner.ID, ProjectID: project.ID, FileName: "paper.pdf",
	}
	if err := db.Create(upload).Error; err != nil {
		t.Fatalf("seeding upload: %v", err)
	}

	client := &fakeTranscribe{}
	svc := NewTranscriptionService(db, newFakeStore(), client, "bucket")
	if err := svc.SubmitForUpload(context.Background(), upload.ID); err != nil {
		t.Fatalf("SubmitForUpload on a pdf: %v", err)
	}
	if err := svc.SubmitForUpload(context.Background(), 9999); err != nil {
		t.Fatalf("SubmitForUpload on a deleted row: %v", err)
	}
	if len(client.started) != 0 {
		t.Errorf("%d jobs started, want none", len(client.started))
	}
}

func TestCheckJob_Completed(t *testing.T) {
	db := newTestDB(t)
	store := newFakeStore()
	store.objects["proj/talk.mp4-transcription.json"] = []byte(
		`{"results":{"transcripts":[{"transcript":"hello world"}]}}`)

	svc := NewTranscriptionService(db, store,
		&fakeTranscribe{status: transcribetypes.TranscriptionJobStatusCompleted}, "bucket")
	text, err := svc.CheckJob(context.Background(), "job", "proj/talk.mp4-transcription.json")
	if err != nil {
		t.Fatalf("CheckJob: %v", err)
	}
	if text != "hello world" {
		t.Errorf("transcript = %q, want %q", text, "hello world")
	}
}

func TestCheckJob_FailedAndInProgress(t *testing.T) {
	db := newTestDB(t)

	svc := NewTranscriptionService(db, newFakeStore(),
		&fakeTranscribe{status: transcribetypes.TranscriptionJobStatusFailed}, "bucket")
	text, err := svc.CheckJob(context.Background(), "job", "key")
	if err != nil || text != TranscriptionFailedMessage {
		t.Errorf("failed job = (%q, %v), want the failure message", text, err)
	}

	svc = NewTranscriptionService(db, newFakeStore(),
		&fakeTranscribe{status: transcribetypes.TranscriptionJobStatusInProgress}, "bucket")
	text, err = svc.CheckJob(context.Background(), "job", "key")
	if err != nil || text != TranscribingMessage {
		t.Errorf("running job = (%q, %v), want the transcribing placeholder", text, err)
	}
}

func TestCheckJob_AbsenceCases(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Provider error.
	svc := NewTranscriptionService(db, newFakeStore(),
		&fakeTranscribe{getErr: fmt.Errorf("timeout")}, "bucket")
	if _, err := svc.CheckJob(ctx, "job", "key"); err == nil {
		t.Error("provider error not surfaced")
	}

	// Completed but the output object is missing.
	svc = NewTranscriptionService(db, newFakeStore(),
		&fakeTranscribe{status: transcribetypes.TranscriptionJobStatusCompleted}, "bucket")
	if _, err := svc.CheckJob(ctx, "job", "missing-key"); err == nil {
		t.Error("missing transcript object not surfaced")
	}

	// Completed but the document is malformed.
	store := newFakeStore()
	store.objects["key"] = []byte(`{"results":{"transcripts":[]}}`)
	svc = NewTranscriptionService(db, store,
		&fakeTranscribe{status: transcribetypes.TranscriptionJobStatusCompleted}, "bucket")
	if _, err := svc.CheckJob(ctx, "job", "key"); err == nil {
		t.Error("empty transcript list not surfaced")
	}
}

func TestRefreshStatus_Mapping(t *testing.T) {
	db := newTestDB(t)
	jobName := "job"
	outputKey := "key"
	upload := &models.Upload{TranscriptionJobName: &jobName, OutputKey: &outputKey}

	store := newFakeStore()
	store.objects["key"] = []byte(`{"results":{"transcripts":[{"transcript":"done text"}]}}`)
	svc := NewTranscriptionService(db, store,
		&fakeTranscribe{status: transcribetypes.TranscriptionJobStatusCompleted}, "bucket")
	status := svc.RefreshStatus(context.Background(), upload)
	if status.Status != StatusCompleted || status.Transcription != "done text" {
		t.Errorf("completed = %+v", status)
	}

	svc = NewTranscriptionService(db, newFakeStore(),
		&fakeTranscribe{status: transcribetypes.TranscriptionJobStatusInProgress}, "bucket")
	status = svc.RefreshStatus(context.Background(), upload)
	if status.Status != TranscribingMessage || status.Transcription != "" {
		t.Errorf("in progress = %+v", status)
	}

	// A failed job still reads as a completed poll, with the failure text.
	svc = NewTranscriptionService(db, newFakeStore(),
		&fakeTranscribe{status: transcribetypes.TranscriptionJobStatusFailed}, "bucket")
	status = svc.RefreshStatus(context.Background(), upload)
	if status.Status != StatusCompleted || status.Transcription != TranscriptionFailedMessage {
		t.Errorf("failed = %+v", status)
	}

	// Fetch errors mean "no transcription", not an error response.
	svc = NewTranscriptionService(db, newFakeStore(),
		&fakeTranscribe{getErr: fmt.Errorf("timeout")}, "bucket")
	status = svc.RefreshStatus(context.Background(), upload)
	if status.Status != "" || status.Transcription != "" {
		t.Errorf("errored poll = %+v, want empty", status)
	}

	// No job on the upload at all.
	status = svc.RefreshStatus(context.Background(), &models.Upload{})
	if status.Status != "" {
		t.Errorf("jobless upload = %+v, want empty", status)
	}
}
