package blog

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hellorun/server/internal/middleware"
	"github.com/hellorun/server/internal/models"
	"github.com/hellorun/server/internal/pkg/objectstore"
	"github.com/hellorun/server/internal/pkg/response"
	"go.uber.org/zap"
)

const coverField = "cover"

// Middlewares are the guards RegisterRoutes attaches. Nil entries are skipped.
type Middlewares struct {
	Auth        gin.HandlerFunc
	Admin       gin.HandlerFunc
	Autosave    gin.HandlerFunc // rate limit
	Idempotent  gin.HandlerFunc
	PublicCache gin.HandlerFunc
}

type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log.Named("blog-http")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mw Middlewares) {
	public := rg.Group("/blog/posts", chain(mw.PublicCache)...)
	public.GET("", h.listPublished)
	public.GET("/:slug", h.getPublished)

	me := rg.Group("/blog/me/posts", chain(mw.Auth)...)
	me.GET("", h.listMine)
	me.POST("", append(chain(mw.Idempotent), h.create)...)
	me.GET("/:id", h.getMine)
	me.PUT("/:id", h.update)
	me.DELETE("/:id", h.remove)
	me.POST("/:id/submit", append(chain(mw.Idempotent), h.submit)...)

	admin := rg.Group("/admin/blog/posts", chain(mw.Auth, mw.Admin)...)
	admin.GET("", h.adminList)
	admin.GET("/:id", h.adminGet)
	admin.POST("/:id/approve", h.adminApprove)
	admin.POST("/:id/reject", h.adminReject)
	admin.POST("/:id/archive", h.adminArchive)
	admin.PATCH("/:id/autosave", append(chain(mw.Autosave), h.adminAutosave)...)
}

func chain(mws ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

func currentActor(c *gin.Context) Actor {
	return Actor{
		ID:            middleware.CurrentUserID(c),
		Role:          middleware.CurrentRole(c),
		EmailVerified: middleware.CurrentEmailVerified(c),
	}
}

// GET /blog/posts?category=&tag=
func (h *Handler) listPublished(c *gin.Context) {
	posts, err := h.svc.ListPublished(c.Request.Context(), c.Query("category"), c.Query("tag"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, toPublicPosts(posts))
}

// GET /blog/posts/:slug, old slugs redirect to the current one
func (h *Handler) getPublished(c *gin.Context) {
	slug := c.Param("slug")
	post, err := h.svc.GetPublished(c.Request.Context(), slug)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if post.Slug != strings.ToLower(strings.TrimSpace(slug)) {
		base := strings.TrimSuffix(c.Request.URL.Path, slug)
		response.Redirect(c, base+post.Slug)
		return
	}
	response.OK(c, toPublicPost(post, true))
}

// GET /blog/me/posts?status=
func (h *Handler) listMine(c *gin.Context) {
	posts, err := h.svc.ListForAuthor(c.Request.Context(), currentActor(c), c.Query("status"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, nonNilPosts(posts))
}

func (h *Handler) getMine(c *gin.Context) {
	post, err := h.svc.GetForAuthor(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, post)
}

// POST /blog/me/posts, JSON or multipart with an optional "cover" file
func (h *Handler) create(c *gin.Context) {
	var in PostInput
	if err := c.ShouldBind(&in); err != nil {
		response.BadRequest(c, "Invalid request body.")
		return
	}
	cover, closeCover, ok := h.readCover(c)
	if !ok {
		return
	}
	defer closeCover()

	post, err := h.svc.CreatePost(c.Request.Context(), currentActor(c), in, cover)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, post)
}

// PUT /blog/me/posts/:id
func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "Invalid request body.")
		return
	}
	cover, closeCover, ok := h.readCover(c)
	if !ok {
		return
	}
	defer closeCover()

	post, err := h.svc.UpdatePost(c.Request.Context(), currentActor(c), c.Param("id"), req.PostInput, cover, req.RemoveCover)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, post)
}

func (h *Handler) submit(c *gin.Context) {
	post, err := h.svc.SubmitForReview(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, post)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.DeletePost(c.Request.Context(), currentActor(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

// GET /admin/blog/posts?status=&q=
func (h *Handler) adminList(c *gin.Context) {
	posts, err := h.svc.AdminListQueue(c.Request.Context(), currentActor(c), c.Query("status"), c.Query("q"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, nonNilPosts(posts))
}

func (h *Handler) adminGet(c *gin.Context) {
	view, err := h.svc.AdminGetPost(c.Request.Context(), currentActor(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, view)
}

func (h *Handler) adminApprove(c *gin.Context) {
	post, err := h.svc.AdminApprove(c.Request.Context(), c.Param("id"), currentActor(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, post)
}

func (h *Handler) adminReject(c *gin.Context) {
	var req rejectRequest
	if c.Request.ContentLength == 0 {
		req.Reason = c.Query("reason")
	} else if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "Invalid request body.")
		return
	}
	post, err := h.svc.AdminReject(c.Request.Context(), c.Param("id"), currentActor(c), req.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, post)
}

func (h *Handler) adminArchive(c *gin.Context) {
	post, err := h.svc.AdminArchive(c.Request.Context(), c.Param("id"), currentActor(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, post)
}

// PATCH /admin/blog/posts/:id/autosave
func (h *Handler) adminAutosave(c *gin.Context) {
	var patch AutosavePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, "Invalid request body.")
		return
	}
	res, err := h.svc.AdminAutosave(c.Request.Context(), c.Param("id"), currentActor(c), patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, res)
}

// readCover opens the optional multipart cover. ok is false when a response was already written.
func (h *Handler) readCover(c *gin.Context) (file *objectstore.File, closeFn func(), ok bool) {
	closeFn = func() {}
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, closeFn, true
	}
	fh, err := c.FormFile(coverField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, closeFn, true
	}
	if err != nil {
		response.BadRequest(c, "Could not read the cover upload.")
		return nil, closeFn, false
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "Could not read the cover upload.")
		return nil, closeFn, false
	}
	contentType, err := sniffContentType(f)
	if err != nil {
		_ = f.Close()
		response.BadRequest(c, "Could not read the cover upload.")
		return nil, closeFn, false
	}
	return &objectstore.File{
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Body:        f,
	}, func() { _ = f.Close() }, true
}

// sniffContentType trusts the bytes, not the client's header.
func sniffContentType(f multipart.File) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

// writeError maps service errors onto HTTP responses.
func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		conflict *StateConflictError
		storage  *StorageError
	)
	if msgs, ok := IsValidation(err); ok {
		response.ValidationFailed(c, msgs)
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFoundMsg(c, "Blog post not found.")
	case errors.Is(err, ErrEmailUnverified):
		response.ForbiddenMsg(c, "Verify your email address before submitting posts for review.")
	case errors.Is(err, ErrUnauthorized):
		response.Forbidden(c)
	case errors.As(err, &conflict):
		response.Conflict(c, conflictMessage(conflict))
	case errors.As(err, &storage):
		response.InternalError(c, err)
	default:
		h.log.Error("unhandled blog error", zap.String("path", c.FullPath()), zap.Error(err))
		response.InternalError(c, err)
	}
}

func conflictMessage(e *StateConflictError) string {
	if e.Action == ActionSave {
		return "This post was changed by someone else. Reload it and try again."
	}
	return "This post can no longer be " + pastTense(e.Action) + " while it is " + string(e.Status) + "."
}

func pastTense(action string) string {
	switch action {
	case ActionSubmit:
		return "submitted"
	case ActionApprove:
		return "approved"
	case ActionReject:
		return "rejected"
	case ActionArchive:
		return "archived"
	case ActionDelete:
		return "deleted"
	default:
		return "edited"
	}
}

func nonNilPosts(posts []models.BlogPostModel) []models.BlogPostModel {
	if posts == nil {
		return []models.BlogPostModel{}
	}
	return posts
}
