package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	transcribetypes "github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/peerhub/peerhub/internal/models"
	"github.com/peerhub/peerhub/internal/storage"
	"github.com/peerhub/peerhub/pkg/logger"
)

const (
	// TranscribingMessage is the placeholder text shown while a job runs.
	TranscribingMessage = "Transcribing..."
	// TranscriptionFailedMessage is the text shown when the provider gave
	// up on the job.
	TranscriptionFailedMessage = "Transcription failed."
	// StatusCompleted marks a finished transcription in refresh responses.
	StatusCompleted = "completed"

	transcriptionLanguage = transcribetypes.LanguageCodeEnUs
)

// TranscribeAPI is the slice of the transcription provider the service
// calls.
type TranscribeAPI interface {
	StartTranscriptionJob(ctx context.Context, params *transcribe.StartTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, params *transcribe.GetTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
}

// TranscriptionService submits media uploads for transcription and reads the
// results back out of the object store.
type TranscriptionService struct {
	db     *gorm.DB
	store  storage.ObjectStore
	client TranscribeAPI
	bucket string
}

func NewTranscriptionService(db *gorm.DB, store storage.ObjectStore, client TranscribeAPI, bucket string) *TranscriptionService {
	return &TranscriptionService{db: db, store: store, client: client, bucket: bucket}
}

// sanitizeJobToken makes a string safe for a transcription job name, which
// only allows letters, digits, dots, underscores and hyphens.
func sanitizeJobToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

// NewTranscriptionJobName builds a unique provider-side job name for a file.
func NewTranscriptionJobName(projectName, fileName string) string {
	return fmt.Sprintf("%s-%s-%s-transcription",
		sanitizeJobToken(projectName), sanitizeJobToken(fileName), uuid.New())
}

// TranscriptionOutputKey is the object-store key the finished transcript
// document is written to.
func TranscriptionOutputKey(projectName, fileName string) string {
	return fmt.Sprintf("%s/%s-transcription.json",
		strings.ReplaceAll(projectName, " ", "_"), fileName)
}

// transcriptDocument is the provider's output format, reduced to the part we
// read.
type transcriptDocument struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

// SubmitForUpload starts a transcription job for the upload. A provider
// rejection is logged and swallowed; the upload simply stays without a
// transcription. Called from the task queue, so it is safe to retry on
// rows that were already submitted.
func (s *TranscriptionService) SubmitForUpload(ctx context.Context, uploadID uint) error {
	var upload models.Upload
	if err := s.db.Preload("Project").First(&upload, uploadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The upload was deleted before the task ran.
			return nil
		}
		return err
	}
	if upload.TranscriptionJobName != nil || !upload.Transcribable() || upload.Project == nil {
		return nil
	}

	outputKey := TranscriptionOutputKey(upload.Project.Name, upload.FileName)
	if upload.OutputKey != nil {
		outputKey = *upload.OutputKey
	}

	jobName := NewTranscriptionJobName(upload.Project.Name, upload.FileName)
	_, err := s.client.StartTranscriptionJob(ctx, &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
		LanguageCode:         transcriptionLanguage,
		MediaFormat:          transcribetypes.MediaFormat(upload.MediaFormat()),
		Media: &transcribetypes.Media{
			MediaFileUri: aws.String(fmt.Sprintf("s3://%s/%s/%s",
				s.bucket, upload.Project.Name, upload.FileName)),
		},
		OutputBucketName: aws.String(s.bucket),
		OutputKey:        aws.String(outputKey),
	})
	if err != nil {
		logger.Warnf("starting transcription for upload %d: %v", upload.ID, err)
		return nil
	}

	return s.db.Model(&upload).Updates(map[string]interface{}{
		"transcription_job_name": jobName,
		"output_key":             outputKey,
	}).Error
}

// CheckJob reports the current transcription text for a job. A completed job
// yields the transcript, a failed one the failure message, and a running one
// the transcribing placeholder. Fetch and parse problems come back as errors
// so callers can treat the transcript as absent.
func (s *TranscriptionService) CheckJob(ctx context.Context, jobName, outputKey string) (string, error) {
	out, err := s.client.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
	})
	if err != nil {
		return "", err
	}
	if out.TranscriptionJob == nil {
		return "", errors.New("provider returned no job")
	}

	switch out.TranscriptionJob.TranscriptionJobStatus {
	case transcribetypes.TranscriptionJobStatusCompleted:
		data, err := s.store.Get(ctx, outputKey)
		if err != nil {
			return "", err
		}
		var doc transcriptDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return "", err
		}
		if len(doc.Results.Transcripts) == 0 {
			return "", errors.New("transcript document has no transcripts")
		}
		return doc.Results.Transcripts[0].Transcript, nil
	case transcribetypes.TranscriptionJobStatusFailed:
		return TranscriptionFailedMessage, nil
	default:
		return TranscribingMessage, nil
	}
}

// TranscriptionStatus is the poll response for a running transcription. An
// empty status means no transcription exists for the file.
type TranscriptionStatus struct {
	Status        string `json:"status"`
	Transcription string `json:"transcription"`
}

// RefreshStatus polls the upload's job and maps the result for the file
// page: completed text, the transcribing placeholder, or nothing at all.
func (s *TranscriptionService) RefreshStatus(ctx context.Context, upload *models.Upload) *TranscriptionStatus {
	if upload.TranscriptionJobName == nil || upload.OutputKey == nil {
		return &TranscriptionStatus{}
	}

	text, err := s.CheckJob(ctx, *upload.TranscriptionJobName, *upload.OutputKey)
	if err != nil {
		logger.Warnf("refreshing transcription for upload %d: %v", upload.ID, err)
		return &TranscriptionStatus{}
	}
	if text == TranscribingMessage {
		return &TranscriptionStatus{Status: TranscribingMessage}
	}
	return &TranscriptionStatus{Status: StatusCompleted, Transcription: text}
}
