package script

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/spsim/spsim/internal/platform/session"
	"github.com/spsim/spsim/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", session.RequireRole("admin", "educator", "reviewer", "author"))
	readGroup.GET("/scripts", h.ListScripts)
	readGroup.GET("/scripts/:id", h.GetScript)
	readGroup.GET("/scripts/:id/versions", h.ListVersions)
	readGroup.GET("/scripts/:id/effective", h.EffectiveDocument)
	readGroup.GET("/scripts/form-template", h.FormTemplate)

	writeGroup := api.Group("", session.RequireRole("admin", "educator", "author"))
	writeGroup.POST("/scripts", h.CreateScript)
	writeGroup.POST("/scripts/from-form", h.CreateFromForm)
	writeGroup.POST("/scripts/preview", h.PreviewForm)
	writeGroup.PUT("/scripts/:id", h.UpdateScript)
	writeGroup.PUT("/scripts/:id/with-attachments", h.SaveWithAttachments)
	writeGroup.DELETE("/scripts/:id", h.DeleteScript)
}

func (h *Handler) CreateScript(c echo.Context) error {
	var sc Script
	if err := c.Bind(&sc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if sc.CreatedBy == "" {
		sc.CreatedBy = session.FromContext(c.Request().Context()).UserID
	}
	if err := h.svc.CreateScript(c.Request().Context(), &sc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sc)
}

func (h *Handler) CreateFromForm(c echo.Context) error {
	var form map[string]interface{}
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	createdBy := session.FromContext(c.Request().Context()).UserID
	sc, err := h.svc.CreateFromForm(c.Request().Context(), form, createdBy)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sc)
}

// PreviewForm builds the canonical document for a form submission without
// persisting anything. Used by the editor's review step.
func (h *Handler) PreviewForm(c echo.Context) error {
	var form map[string]interface{}
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, BuildDocument(form))
}

// FormTemplate returns an empty editing form with placeholder rows, the
// shape the editor initializes from.
func (h *Handler) FormTemplate(c echo.Context) error {
	return c.JSON(http.StatusOK, NewFormState())
}

func (h *Handler) GetScript(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sc, err := h.svc.GetScript(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "script not found")
	}
	if c.QueryParam("as") == "form" {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"id":         sc.ID,
			"title":      sc.Title,
			"version_id": sc.VersionID,
			"form":       FormFromDocument(sc.Document),
		})
	}
	return c.JSON(http.StatusOK, sc)
}

func (h *Handler) ListScripts(c echo.Context) error {
	pg := pagination.FromContext(c)

	params := map[string]string{}
	for _, key := range []string{"title", "department", "created_by"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}
	if len(params) > 0 {
		scripts, total, err := h.svc.SearchScripts(c.Request().Context(), params, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(scripts, total, pg.Limit, pg.Offset))
	}

	scripts, total, err := h.svc.ListScripts(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(scripts, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateScript(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Script
		ChangeNote string `json:"change_note"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	body.Script.ID = id
	meta := UpdateMeta{
		ChangeNote: body.ChangeNote,
		CreatedBy:  session.FromContext(c.Request().Context()).UserID,
	}
	if err := h.svc.UpdateScript(c.Request().Context(), &body.Script, meta); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "script not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, body.Script)
}

// SaveWithAttachments accepts a multipart request carrying the script JSON
// in the "script" field plus any number of file parts, and runs the
// upload-then-save flow with compensating deletes on failure.
func (h *Handler) SaveWithAttachments(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart form required")
	}

	var body struct {
		Script
		ChangeNote string `json:"change_note"`
	}
	raw := c.FormValue("script")
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing script field")
	}
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	body.Script.ID = id

	var uploads []AttachmentUpload
	for _, files := range form.File {
		for _, fh := range files {
			src, err := fh.Open()
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			data, err := io.ReadAll(src)
			src.Close()
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			uploads = append(uploads, AttachmentUpload{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}

	meta := UpdateMeta{
		ChangeNote: body.ChangeNote,
		CreatedBy:  session.FromContext(c.Request().Context()).UserID,
	}
	refs, err := h.svc.SaveWithAttachments(c.Request().Context(), &body.Script, uploads, meta)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "script not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"script":      body.Script,
		"attachments": refs,
	})
}

func (h *Handler) DeleteScript(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteScript(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "script not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListVersions(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	versions, err := h.svc.ListVersions(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "script not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, versions)
}

func (h *Handler) EffectiveDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	doc, err := h.svc.EffectiveDocument(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "script not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}
