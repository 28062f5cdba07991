package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/webcritic-go/internal/analyzer"
	"github.com/anime-shed/webcritic-go/internal/critique"
	apperrors "github.com/anime-shed/webcritic-go/internal/errors"
	"github.com/anime-shed/webcritic-go/internal/factory"
	"github.com/anime-shed/webcritic-go/internal/logger"
	"github.com/anime-shed/webcritic-go/internal/observer"
	"github.com/anime-shed/webcritic-go/internal/roaster"
	"github.com/anime-shed/webcritic-go/internal/session"
	"github.com/anime-shed/webcritic-go/internal/storage"
	"github.com/anime-shed/webcritic-go/pkg/models"
	"github.com/anime-shed/webcritic-go/pkg/validation"
)

// Outcome is delivered exactly once per accepted upload
type Outcome struct {
	Snapshot models.StateSnapshot
	Result   *models.CritiqueResult
	Err      error
	Duration time.Duration
}

// CritiqueService runs the upload flow for a session
type CritiqueService interface {
	// Submit decodes an uploaded screenshot and starts a critique
	Submit(ctx context.Context, sess *session.Session, r io.Reader) (<-chan Outcome, error)
	// SubmitImage starts a critique for an already decoded screenshot
	SubmitImage(ctx context.Context, sess *session.Session, img image.Image) (<-chan Outcome, error)
	// SubmitRemote fetches a screenshot by URL or blob URL and starts a critique
	SubmitRemote(ctx context.Context, sess *session.Session, req models.SourceRequest) (<-chan Outcome, error)
}

// Dependencies groups what the critique service needs
type Dependencies struct {
	Critic       roaster.Critic
	Inspector    *analyzer.Inspector
	Pool         *WorkerPool
	Sources      factory.Sources
	URLValidator *validation.URLValidator
	AzureAccount string
}

type critiqueService struct {
	critic       roaster.Critic
	inspector    *analyzer.Inspector
	pool         *WorkerPool
	sources      factory.Sources
	urlValidator *validation.URLValidator
	azureAccount string
}

// NewCritiqueService creates a new critique service
func NewCritiqueService(deps Dependencies) CritiqueService {
	if deps.Inspector == nil {
		deps.Inspector = analyzer.NewInspector(analyzer.DefaultOptions(), nil)
	}
	if deps.URLValidator == nil {
		deps.URLValidator = validation.NewURLValidator()
	}
	if deps.Pool == nil {
		deps.Pool = NewWorkerPool(0)
	}
	deps.Pool.Start()

	return &critiqueService{
		critic:       deps.Critic,
		inspector:    deps.Inspector,
		pool:         deps.Pool,
		sources:      deps.Sources,
		urlValidator: deps.URLValidator,
		azureAccount: deps.AzureAccount,
	}
}

func (s *critiqueService) Submit(ctx context.Context, sess *session.Session, r io.Reader) (<-chan Outcome, error) {
	if err := s.begin(ctx, sess); err != nil {
		return nil, err
	}

	img, format, err := storage.DecodeImage(r)
	if err != nil {
		s.abort(ctx, sess, err)
		return nil, err
	}
	logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"format":     format,
	}).Debug("Screenshot decoded")

	return s.start(ctx, sess, img), nil
}

func (s *critiqueService) SubmitImage(ctx context.Context, sess *session.Session, img image.Image) (<-chan Outcome, error) {
	if err := s.begin(ctx, sess); err != nil {
		return nil, err
	}
	if img == nil {
		err := apperrors.NewEncodingError("no image supplied", nil)
		s.abort(ctx, sess, err)
		return nil, err
	}
	return s.start(ctx, sess, img), nil
}

func (s *critiqueService) SubmitRemote(ctx context.Context, sess *session.Session, req models.SourceRequest) (<-chan Outcome, error) {
	sourceType, location, err := s.resolveSource(req)
	if err != nil {
		return nil, err
	}
	src, ok := s.sources[sourceType]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s sources are not configured", sourceType), nil)
	}

	if err := s.begin(ctx, sess); err != nil {
		return nil, err
	}

	fetchStart := time.Now()
	img, err := src.FetchImage(ctx, location)
	if err != nil {
		sess.State.Events().NotifyObservers(ctx, observer.Event{
			EventType:    observer.ImageFetchFailed,
			SessionID:    sess.ID,
			ErrorType:    string(apperrors.TypeOf(err)),
			ErrorMessage: err.Error(),
			Metadata:     map[string]interface{}{"source": string(sourceType)},
		})
		s.abort(ctx, sess, err)
		return nil, err
	}
	sess.State.Events().NotifyObservers(ctx, observer.Event{
		EventType:      observer.ImageFetched,
		SessionID:      sess.ID,
		ProcessingTime: time.Since(fetchStart),
		Success:        true,
		Metadata:       map[string]interface{}{"source": string(sourceType)},
	})

	return s.start(ctx, sess, img), nil
}

func (s *critiqueService) resolveSource(req models.SourceRequest) (factory.StorageType, string, error) {
	switch {
	case req.URL != "" && req.BlobURL != "":
		return "", "", apperrors.NewValidationError("set either url or blob_url, not both", nil)
	case req.URL != "":
		if err := s.urlValidator.ValidateImageURL(req.URL); err != nil {
			return "", "", err
		}
		return factory.HTTPStorage, req.URL, nil
	case req.BlobURL != "":
		if err := s.urlValidator.ValidateBlobURL(req.BlobURL, s.azureAccount); err != nil {
			return "", "", err
		}
		return factory.AzureStorage, req.BlobURL, nil
	default:
		return "", "", apperrors.NewValidationError("a screenshot file, url or blob_url is required", nil)
	}
}

// begin moves the flow to processing or rejects the upload
func (s *critiqueService) begin(ctx context.Context, sess *session.Session) error {
	if err := sess.Flow.TryBegin(); err != nil {
		sess.State.Events().NotifyObservers(ctx, observer.Event{
			EventType:    observer.UploadRejected,
			SessionID:    sess.ID,
			ErrorType:    string(apperrors.TypeOf(err)),
			ErrorMessage: err.Error(),
		})
		return err
	}
	sess.Touch()
	return nil
}

// abort handles failures before the model call was queued; processing was never set
func (s *critiqueService) abort(ctx context.Context, sess *session.Session, err error) {
	sess.State.SetError(err)
	sess.Flow.Finish()
	sess.State.Events().NotifyObservers(ctx, observer.Event{
		EventType:    observer.UploadFailed,
		SessionID:    sess.ID,
		ErrorType:    string(apperrors.TypeOf(err)),
		ErrorMessage: err.Error(),
	})
}

func (s *critiqueService) start(ctx context.Context, sess *session.Session, img image.Image) <-chan Outcome {
	sess.State.SetImage(img)
	sess.State.ClearError()
	sess.State.SetProcessing(true)
	sess.State.Events().NotifyObservers(ctx, observer.Event{
		EventType: observer.CritiqueStarted,
		SessionID: sess.ID,
	})

	out := make(chan Outcome, 1)
	// The job outlives the request that started it
	jobCtx := context.WithoutCancel(ctx)
	queued := time.Now()

	if !s.pool.Submit(func() { s.run(jobCtx, sess, img, queued, out) }) {
		s.finish(jobCtx, sess, queued, nil, apperrors.NewInternalError("critique workers are shut down", nil), out)
	}
	return out
}

func (s *critiqueService) run(ctx context.Context, sess *session.Session, img image.Image, queued time.Time, out chan<- Outcome) {
	var result *models.CritiqueResult
	var err error

	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewInternalError(fmt.Sprintf("critique job panicked: %v", r), nil)
		}
		s.finish(ctx, sess, queued, result, err, out)
	}()

	insp := s.inspector.InspectScreenshot(ctx, img)

	text, err := s.critic.Critique(ctx, img)
	if err != nil {
		return
	}

	parsed, err := critique.Parse(text)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"session_id": sess.ID,
			"reply":      truncate(text, 200),
		}).Warn("Model reply could not be parsed")
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			err = appErr.WithDetails(fmt.Sprintf("reply began %q", truncate(text, 60)))
		}
		return
	}

	insp = s.inspector.InspectCritique(insp, parsed, sess.PreviousFeedback())
	sess.State.ApplyCritique(parsed)
	sess.State.SetInspection(insp)
	sess.RememberFeedback(parsed.Feedback)
	result = &parsed
}

// finish runs on every exit path of an accepted upload
func (s *critiqueService) finish(ctx context.Context, sess *session.Session, started time.Time, result *models.CritiqueResult, err error, out chan<- Outcome) {
	duration := time.Since(started)

	if err != nil {
		sess.State.SetError(err)
	}
	sess.State.SetProcessing(false)
	// Taken before the flow is released so a following upload cannot leak into it
	snap := sess.State.Snapshot()
	sess.Flow.Finish()

	event := observer.Event{
		EventType:      observer.CritiqueCompleted,
		SessionID:      sess.ID,
		ProcessingTime: duration,
		Success:        err == nil,
	}
	if err != nil {
		event.EventType = observer.CritiqueFailed
		event.ErrorType = string(apperrors.TypeOf(err))
		event.ErrorMessage = err.Error()
	}
	sess.State.Events().NotifyObservers(ctx, event)

	out <- Outcome{
		Snapshot: snap,
		Result:   result,
		Err:      err,
		Duration: duration,
	}
	close(out)
}

// Await blocks until the outcome arrives or ctx is done
func Await(ctx context.Context, outcomes <-chan Outcome) (Outcome, error) {
	select {
	case o := <-outcomes:
		return o, o.Err
	case <-ctx.Done():
		return Outcome{}, apperrors.NewTimeoutError("gave up waiting for the critique", ctx.Err())
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
