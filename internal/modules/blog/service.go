package blog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hellorun/server/internal/models"
	"github.com/hellorun/server/internal/pkg/objectstore"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxCoverBytes = 5 << 20
	slugRefType   = "blog_post"
)

var coverContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID            string
	Role          string
	EmailVerified bool
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// Notifier tells authors about review decisions. Implementations must not block for long.
type Notifier interface {
	NotifyReviewed(ctx context.Context, post *models.BlogPostModel) error
}

// SlugHistory remembers slugs a post carried before it was renamed.
type SlugHistory interface {
	Track(ctx context.Context, oldSlug, refType, targetID string) error
	FindBySlug(ctx context.Context, slug, refType string) (string, error)
}

// PublicCache is flushed whenever a change can alter what anonymous readers see.
type PublicCache interface {
	PurgePublic(ctx context.Context) error
}

// AutosaveResult is returned to the admin editor after a partial save.
type AutosaveResult struct {
	Post          *models.BlogPostModel `json:"post"`
	ChangedFields []string              `json:"changed_fields"`
}

// ReviewView is what the admin review page renders.
type ReviewView struct {
	Post      *models.BlogPostModel      `json:"post"`
	Revisions []models.BlogRevisionModel `json:"revisions"`
}

// Service runs the blog content lifecycle for authors and admins.
type Service struct {
	repo       Repository
	slugs      *SlugAllocator
	revisions  *RevisionRecorder
	normalizer *Normalizer
	store      objectstore.Store
	notifier   Notifier
	tracker    SlugHistory
	cache      PublicCache
	log        *zap.Logger
	now        func() time.Time
}

func NewService(repo Repository, san Sanitizer, store objectstore.Store, log *zap.Logger) *Service {
	if store == nil {
		store = objectstore.Disabled{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		slugs:      NewSlugAllocator(repo),
		revisions:  NewRevisionRecorder(repo),
		normalizer: NewNormalizer(san),
		store:      store,
		log:        log.Named("blog"),
		now:        time.Now,
	}
}

// SetNotifier wires review decision notifications (optional).
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// SetSlugTracker wires old-slug tracking (optional).
func (s *Service) SetSlugTracker(t SlugHistory) { s.tracker = t }

// SetPublicCache wires the public response cache (optional).
func (s *Service) SetPublicCache(c PublicCache) { s.cache = c }

// CreatePost saves a new draft, or submits it straight away when in.Submit is set.
func (s *Service) CreatePost(ctx context.Context, author Actor, in PostInput, cover *objectstore.File) (*models.BlogPostModel, error) {
	if author.ID == "" {
		return nil, ErrUnauthorized
	}
	if in.Submit && !author.EmailVerified {
		return nil, ErrEmailUnverified
	}
	payload := s.normalizer.Input(in)

	uploaded, err := s.uploadCover(ctx, author.ID, cover)
	if err != nil {
		return nil, err
	}
	if uploaded != nil {
		payload.CoverImageURL = uploaded.URL
	}

	post, err := s.createPost(ctx, author, payload, in.Submit)
	if err != nil {
		s.discardObject(ctx, uploaded)
		return nil, err
	}
	return post, nil
}

func (s *Service) createPost(ctx context.Context, author Actor, payload Payload, submit bool) (*models.BlogPostModel, error) {
	if msgs := Validate(payload, ValidateOptions{RequireCover: submit}); len(msgs) > 0 {
		return nil, newValidationError(msgs...)
	}

	post := &models.BlogPostModel{AuthorID: author.ID, Status: models.BlogStatusDraft}
	payload.apply(post)
	if submit {
		if err := Submit(post, s.now()); err != nil {
			return nil, err
		}
	}

	for attempt := 0; ; attempt++ {
		slug, err := s.slugs.Allocate(ctx, post.Title, "")
		if err != nil {
			return nil, s.fail("allocate slug", err, zap.String("author_id", author.ID))
		}
		post.Slug = slug
		err = s.repo.Create(ctx, post)
		if err == nil {
			return post, nil
		}
		if !isDuplicateKey(err) || attempt > 0 {
			return nil, s.fail("create post", err, zap.String("author_id", author.ID), zap.String("slug", slug))
		}
		s.log.Info("slug taken concurrently, allocating again", zap.String("slug", slug))
	}
}

// UpdatePost replaces the author-editable fields of a post the author still controls.
// A new cover replaces the old one; removeCover clears it. An empty cover URL in the
// form keeps the stored cover.
func (s *Service) UpdatePost(ctx context.Context, author Actor, id string, in PostInput, cover *objectstore.File, removeCover bool) (*models.BlogPostModel, error) {
	post, err := s.ownedPost(ctx, author, id)
	if err != nil {
		return nil, err
	}
	if err := requireEditable(post, ActionEdit); err != nil {
		return nil, err
	}
	if in.Submit && !author.EmailVerified {
		return nil, ErrEmailUnverified
	}

	payload := s.normalizer.Input(in)
	oldCover := post.CoverImageURL

	uploaded, err := s.uploadCover(ctx, author.ID, cover)
	if err != nil {
		return nil, err
	}
	switch {
	case uploaded != nil:
		payload.CoverImageURL = uploaded.URL
	case removeCover:
		payload.CoverImageURL = ""
	case payload.CoverImageURL == "":
		payload.CoverImageURL = oldCover
	}

	updated, err := s.updatePost(ctx, post, payload, in.Submit)
	if err != nil {
		s.discardObject(ctx, uploaded)
		return nil, err
	}
	if oldCover != "" && oldCover != updated.CoverImageURL {
		s.discardURL(ctx, oldCover)
	}
	return updated, nil
}

func (s *Service) updatePost(ctx context.Context, post *models.BlogPostModel, payload Payload, submit bool) (*models.BlogPostModel, error) {
	requireCover := submit || post.Status == models.BlogStatusPending
	if msgs := Validate(payload, ValidateOptions{RequireCover: requireCover}); len(msgs) > 0 {
		return nil, newValidationError(msgs...)
	}

	next := post.Clone()
	payload.apply(next)
	if next.Status == models.BlogStatusRejected {
		// the author started fixing the post, the old reason no longer applies
		ClearRejection(next)
	}
	if submit {
		if err := Submit(next, s.now()); err != nil {
			return nil, err
		}
	}
	if err := s.save(ctx, post, next); err != nil {
		return nil, err
	}
	return next, nil
}

// SubmitForReview moves a post that meets the readiness bar into the review queue.
func (s *Service) SubmitForReview(ctx context.Context, author Actor, id string) (*models.BlogPostModel, error) {
	post, err := s.ownedPost(ctx, author, id)
	if err != nil {
		return nil, err
	}
	if err := requireEditable(post, ActionSubmit); err != nil {
		return nil, err
	}
	if !author.EmailVerified {
		return nil, ErrEmailUnverified
	}
	if msgs := ValidateReadyForReview(post); len(msgs) > 0 {
		return nil, newValidationError(msgs...)
	}

	next := post.Clone()
	if err := Submit(next, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, post, next); err != nil {
		return nil, err
	}
	return next, nil
}

// DeletePost soft-deletes a post the author still controls.
func (s *Service) DeletePost(ctx context.Context, author Actor, id string) error {
	post, err := s.ownedPost(ctx, author, id)
	if err != nil {
		return err
	}
	if err := requireEditable(post, ActionDelete); err != nil {
		return err
	}

	now := s.now()
	next := post.Clone()
	next.IsDeleted = true
	next.DeletedBy = actorRef(author.ID)
	next.DeletedAt = gorm.DeletedAt{Time: now, Valid: true}
	return s.save(ctx, post, next)
}

// ListForAuthor lists the author's own posts, optionally narrowed to one status.
func (s *Service) ListForAuthor(ctx context.Context, author Actor, status string) ([]models.BlogPostModel, error) {
	if author.ID == "" {
		return nil, ErrUnauthorized
	}
	f := ListFilter{AuthorID: author.ID}
	if err := applyStatusFilter(&f, status); err != nil {
		return nil, err
	}
	posts, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, s.fail("list author posts", err, zap.String("author_id", author.ID))
	}
	return posts, nil
}

// GetForAuthor returns one of the author's posts.
func (s *Service) GetForAuthor(ctx context.Context, author Actor, id string) (*models.BlogPostModel, error) {
	return s.ownedPost(ctx, author, id)
}

// GetPublished returns a published post by slug. Slugs a post carried before a
// rename still resolve; callers compare the returned slug to redirect.
func (s *Service) GetPublished(ctx context.Context, slug string) (*models.BlogPostModel, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	post, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, s.fail("find post by slug", err, zap.String("slug", slug))
	}
	if post == nil && s.tracker != nil {
		targetID, err := s.tracker.FindBySlug(ctx, slug, slugRefType)
		if err != nil {
			return nil, s.fail("find slug history", err, zap.String("slug", slug))
		}
		if targetID != "" {
			if post, err = s.repo.FindByID(ctx, targetID); err != nil {
				return nil, s.fail("find post", err, zap.String("post_id", targetID))
			}
		}
	}
	if post == nil || post.Status != models.BlogStatusPublished {
		return nil, ErrNotFound
	}
	return post, nil
}

// ListPublished lists published posts, newest first.
func (s *Service) ListPublished(ctx context.Context, category, tag string) ([]models.BlogPostModel, error) {
	f := ListFilter{
		Statuses: []models.BlogPostStatus{models.BlogStatusPublished},
		Category: strings.TrimSpace(category),
		Tag:      strings.ToLower(strings.TrimSpace(tag)),
		OrderBy:  "featured DESC, published_at DESC",
	}
	posts, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, s.fail("list published posts", err)
	}
	return posts, nil
}

// AdminListQueue lists posts for moderation. An empty or "all" status lists every status.
func (s *Service) AdminListQueue(ctx context.Context, actor Actor, status, query string) ([]models.BlogPostModel, error) {
	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	f := ListFilter{Search: query}
	if err := applyStatusFilter(&f, status); err != nil {
		return nil, err
	}
	posts, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, s.fail("list moderation queue", err, zap.String("actor", actor.ID))
	}
	return posts, nil
}

// AdminGetPost returns the post with its most recent revisions.
func (s *Service) AdminGetPost(ctx context.Context, actor Actor, id string) (*ReviewView, error) {
	post, err := s.adminPost(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	revs, err := s.revisions.Recent(ctx, post.ID, ReviewRevisionLimit)
	if err != nil {
		return nil, s.fail("list revisions", err, zap.String("post_id", post.ID))
	}
	if revs == nil {
		revs = []models.BlogRevisionModel{}
	}
	return &ReviewView{Post: post, Revisions: revs}, nil
}

// AdminApprove publishes a pending post.
func (s *Service) AdminApprove(ctx context.Context, id string, actor Actor) (*models.BlogPostModel, error) {
	return s.adminTransition(ctx, id, actor, func(p *models.BlogPostModel, now time.Time) error {
		return Approve(p, actor.ID, now)
	})
}

// AdminReject returns a pending post to its author with a reason.
func (s *Service) AdminReject(ctx context.Context, id string, actor Actor, reason string) (*models.BlogPostModel, error) {
	return s.adminTransition(ctx, id, actor, func(p *models.BlogPostModel, now time.Time) error {
		return Reject(p, actor.ID, reason, now)
	})
}

// AdminArchive takes a published post down.
func (s *Service) AdminArchive(ctx context.Context, id string, actor Actor) (*models.BlogPostModel, error) {
	return s.adminTransition(ctx, id, actor, func(p *models.BlogPostModel, now time.Time) error {
		return Archive(p, now)
	})
}

func (s *Service) adminTransition(ctx context.Context, id string, actor Actor, apply func(*models.BlogPostModel, time.Time) error) (*models.BlogPostModel, error) {
	post, err := s.adminPost(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	next := post.Clone()
	if err := apply(next, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, post, next); err != nil {
		return nil, err
	}
	s.notifyReviewed(ctx, post.Status, next)
	return next, nil
}

// AdminAutosave merges the present fields of patch into the post, applies a status
// change when one is requested and records a revision of what changed.
//
// Moving a post into pending or published holds it to the ready-for-review bar;
// every other save only needs the basic payload rules.
func (s *Service) AdminAutosave(ctx context.Context, id string, actor Actor, patch AutosavePatch) (*AutosaveResult, error) {
	post, err := s.adminPost(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	target := post.Status
	if patch.Status != nil {
		st, ok := ParseStatus(*patch.Status)
		if !ok {
			return nil, newValidationError("Unknown status.")
		}
		target = st
	}
	statusChange := target != post.Status

	payload := s.normalizer.Merge(PayloadFromPost(post), patch)
	requireCover := statusChange && (target == models.BlogStatusPending || target == models.BlogStatusPublished)
	if msgs := Validate(payload, ValidateOptions{RequireCover: requireCover}); len(msgs) > 0 {
		return nil, newValidationError(msgs...)
	}

	next := post.Clone()
	payload.applyAdmin(next)
	if statusChange {
		reason := ""
		if patch.RejectionReason != nil {
			reason = *patch.RejectionReason
		}
		if err := ApplyAdminStatus(next, target, actor.ID, reason, s.now()); err != nil {
			return nil, err
		}
	} else if target == models.BlogStatusRejected && patch.RejectionReason != nil {
		if msgs := ValidateRejectionReason(*patch.RejectionReason); len(msgs) > 0 {
			return nil, newValidationError(msgs...)
		}
		next.RejectionReason = strings.TrimSpace(*patch.RejectionReason)
	}
	// the reason is not a revision field; report it without writing a revision row
	reasonChanged := next.RejectionReason != post.RejectionReason && target == models.BlogStatusRejected && !statusChange

	before := Snapshot(post)
	if next.Title != post.Title {
		// slug is allocated inside save; diff it against a provisional slug first
		if next.Slug, err = s.slugs.Allocate(ctx, next.Title, next.ID); err != nil {
			return nil, s.fail("allocate slug", err, zap.String("post_id", post.ID))
		}
	}
	changed := Diff(before, Snapshot(next))
	if len(changed) == 0 && !reasonChanged {
		return &AutosaveResult{Post: post, ChangedFields: changed}, nil
	}

	if err := s.save(ctx, post, next); err != nil {
		return nil, err
	}
	after := Snapshot(next)
	changed = Diff(before, after)
	if _, err := s.revisions.Record(ctx, next.ID, actor.ID, changed, before, after); err != nil {
		return nil, s.fail("record revision", err, zap.String("post_id", next.ID), zap.Strings("changed", changed))
	}
	if reasonChanged {
		changed = append(changed, "rejectionReason")
	}
	if statusChange {
		s.notifyReviewed(ctx, post.Status, next)
	}
	return &AutosaveResult{Post: next, ChangedFields: changed}, nil
}

// save persists next over prev. A title change re-allocates the slug, retrying once
// when another writer takes it first.
func (s *Service) save(ctx context.Context, prev, next *models.BlogPostModel) error {
	next.ReadingTime = ReadingTime(next.ContentText)
	retitled := next.Title != prev.Title

	for attempt := 0; ; attempt++ {
		if retitled && (attempt > 0 || next.Slug == prev.Slug) {
			slug, err := s.slugs.Allocate(ctx, next.Title, next.ID)
			if err != nil {
				return s.fail("allocate slug", err, zap.String("post_id", next.ID))
			}
			next.Slug = slug
		}
		err := s.repo.Save(ctx, next)
		if err == nil {
			break
		}
		if errors.Is(err, ErrStaleWrite) {
			return &StateConflictError{Status: prev.Status, Action: ActionSave}
		}
		if !isDuplicateKey(err) || !retitled || attempt > 0 {
			return s.fail("save post", err, zap.String("post_id", next.ID))
		}
	}

	if next.Slug != prev.Slug && s.tracker != nil {
		if err := s.tracker.Track(ctx, prev.Slug, slugRefType, next.ID); err != nil {
			s.log.Warn("track old slug failed", zap.String("post_id", next.ID), zap.String("slug", prev.Slug), zap.Error(err))
		}
	}
	if s.cache != nil && (prev.Status == models.BlogStatusPublished || next.Status == models.BlogStatusPublished) {
		if err := s.cache.PurgePublic(ctx); err != nil {
			s.log.Warn("purge public cache failed", zap.String("post_id", next.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) ownedPost(ctx context.Context, author Actor, id string) (*models.BlogPostModel, error) {
	if author.ID == "" {
		return nil, ErrUnauthorized
	}
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.fail("find post", err, zap.String("post_id", id))
	}
	if post == nil || post.AuthorID != author.ID {
		return nil, ErrNotFound
	}
	return post, nil
}

func (s *Service) adminPost(ctx context.Context, actor Actor, id string) (*models.BlogPostModel, error) {
	if !actor.IsAdmin() {
		return nil, ErrUnauthorized
	}
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.fail("find post", err, zap.String("post_id", id))
	}
	if post == nil {
		return nil, ErrNotFound
	}
	return post, nil
}

func (s *Service) uploadCover(ctx context.Context, ownerID string, f *objectstore.File) (*objectstore.Object, error) {
	if f == nil {
		return nil, nil
	}
	var msgs []string
	if !coverContentTypes[strings.ToLower(f.ContentType)] {
		msgs = append(msgs, "Cover image must be a JPEG, PNG, WEBP or GIF file.")
	}
	if f.Size > maxCoverBytes {
		msgs = append(msgs, "Cover image must be 5 MB or smaller.")
	}
	if len(msgs) > 0 {
		return nil, newValidationError(msgs...)
	}
	obj, err := s.store.Upload(ctx, ownerID, *f)
	if errors.Is(err, objectstore.ErrDisabled) {
		return nil, newValidationError("Cover uploads are not available right now, paste an image URL instead.")
	}
	if err != nil {
		return nil, s.fail("upload cover", err, zap.String("author_id", ownerID))
	}
	return &obj, nil
}

// discardObject removes an upload whose post was never saved. Failures are logged only.
func (s *Service) discardObject(ctx context.Context, obj *objectstore.Object) {
	if obj == nil || obj.Key == "" {
		return
	}
	if err := s.store.Delete(ctx, []string{obj.Key}); err != nil {
		s.log.Warn("cover cleanup failed", zap.String("key", obj.Key), zap.Error(err))
	}
}

// discardURL removes a replaced cover if it lives in our store.
func (s *Service) discardURL(ctx context.Context, url string) {
	key := s.store.KeyFromPublicURL(url)
	if key == "" {
		return
	}
	s.discardObject(ctx, &objectstore.Object{Key: key, URL: url})
}

func (s *Service) notifyReviewed(ctx context.Context, from models.BlogPostStatus, post *models.BlogPostModel) {
	if s.notifier == nil || from == post.Status {
		return
	}
	if post.Status != models.BlogStatusPublished && post.Status != models.BlogStatusRejected {
		return
	}
	if err := s.notifier.NotifyReviewed(ctx, post); err != nil {
		s.log.Warn("review notification failed", zap.String("post_id", post.ID), zap.Error(err))
	}
}

// fail logs an unexpected failure and wraps it as a StorageError.
func (s *Service) fail(op string, err error, fields ...zap.Field) error {
	var ve *ValidationError
	var ce *StateConflictError
	if errors.As(err, &ve) || errors.As(err, &ce) {
		return err
	}
	s.log.Error(op+" failed", append(fields, zap.Error(err))...)
	return storageErr(op, err)
}

func applyStatusFilter(f *ListFilter, status string) error {
	status = strings.TrimSpace(status)
	if status == "" || strings.EqualFold(status, "all") {
		return nil
	}
	st, ok := ParseStatus(status)
	if !ok {
		return newValidationError("Unknown status filter.")
	}
	f.Statuses = []models.BlogPostStatus{st}
	return nil
}
