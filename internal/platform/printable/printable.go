// Package printable assembles the projection handed to the external PDF
// renderer. Page layout and text wrapping are the renderer's concern; this
// package only guarantees well-formed input: a flat header plus the selected
// version's field tree flattened into ordered label/value lines.
package printable

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/spsim/spsim/internal/domain/script"
	"github.com/spsim/spsim/internal/platform/session"
)

// Projection is the input contract of the document-to-printable collaborator.
type Projection struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Patient    string        `json:"patient"`
	Department string        `json:"department"`
	CreatedAt  time.Time     `json:"createdAt"`
	Summary    string        `json:"summary"`
	Versions   []VersionInfo `json:"versions"`
	Fields     []Field       `json:"fields"`
}

// VersionInfo summarizes one version history entry for the rendered cover.
type VersionInfo struct {
	Number     int       `json:"version_number"`
	ChangeNote string    `json:"change_note"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// Field is one rendered label/value line.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// groupOrder fixes the rendering order of document groups.
var groupOrder = []string{
	script.GroupAdmin, script.GroupPatient, script.GroupSP,
	script.GroupMedHist, script.GroupSpecial,
}

var groupLabels = map[string]string{
	script.GroupAdmin:   "Case Information",
	script.GroupPatient: "Patient",
	script.GroupSP:      "Standardized Patient",
	script.GroupMedHist: "Medical History",
	script.GroupSpecial: "Special Instructions",
}

// FromScript builds the renderer projection for one script and the selected
// version's document.
func FromScript(s *script.Script, versions []script.VersionEntry, selected script.Document) Projection {
	p := Projection{
		ID:         s.ID.String(),
		Title:      s.Title,
		Patient:    script.GetString(selected, script.GroupPatient, "name"),
		Department: s.Department,
		CreatedAt:  s.CreatedAt,
		Summary:    summaryOf(selected),
	}
	for _, v := range versions {
		p.Versions = append(p.Versions, VersionInfo{
			Number:     v.VersionNumber,
			ChangeNote: v.ChangeNote,
			CreatedBy:  v.CreatedBy,
			CreatedAt:  v.CreatedAt,
		})
	}
	norm := script.NormalizeDocument(selected)
	for _, group := range groupOrder {
		sub, ok := norm[group].(map[string]interface{})
		if !ok {
			continue
		}
		p.Fields = append(p.Fields, flatten(groupLabels[group], sub)...)
	}
	return p
}

func summaryOf(doc script.Document) string {
	if s := script.GetString(doc, script.GroupSpecial, "opening_statement"); s != "" {
		return s
	}
	return script.GetString(doc, script.GroupAdmin, "reson_for_visit")
}

// flatten converts a nested group into ordered label/value lines. Keys are
// sorted for deterministic output; empty values are skipped.
func flatten(prefix string, node map[string]interface{}) []Field {
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fields []Field
	for _, k := range keys {
		label := prefix + " / " + humanize(k)
		switch v := node[k].(type) {
		case map[string]interface{}:
			// Prescription-shaped records render as their display string
			// rather than one line per key.
			if text := renderList([]interface{}{v}); text != "" {
				fields = append(fields, Field{Label: label, Value: text})
				continue
			}
			fields = append(fields, flatten(label, v)...)
		case []interface{}:
			if text := renderList(v); text != "" {
				fields = append(fields, Field{Label: label, Value: text})
			}
		case string:
			if v != "" {
				fields = append(fields, Field{Label: label, Value: v})
			}
		case float64:
			if v != 0 {
				fields = append(fields, Field{Label: label, Value: strings.TrimSuffix(fmt.Sprintf("%.2f", v), ".00")})
			}
		case int:
			if v != 0 {
				fields = append(fields, Field{Label: label, Value: fmt.Sprintf("%d", v)})
			}
		}
	}
	return fields
}

// renderList renders a repeatable entry list one entry per line, using the
// prescription display string for prescription-shaped entries.
func renderList(items []interface{}) string {
	return strings.Join(script.NormalizeTextList(items), "\n")
}

func humanize(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Handler serves the printable projection endpoint.
type Handler struct {
	svc *script.Service
}

func NewHandler(svc *script.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	group := api.Group("", session.RequireRole("admin", "educator", "reviewer", "author"))
	group.GET("/scripts/:id/printable", h.Printable)
}

// Printable renders the projection consumed by the PDF renderer. The
// optional "version" query parameter selects a historical snapshot;
// otherwise the folded effective document is used.
func (h *Handler) Printable(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sc, err := h.svc.GetScript(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "script not found")
	}
	versions, err := h.svc.ListVersions(ctx, id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	selected := sc.Document
	if raw := c.QueryParam("version"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid version")
		}
		found := false
		for _, v := range versions {
			if v.VersionNumber == n {
				selected = v.Document
				found = true
				break
			}
		}
		if !found {
			return echo.NewHTTPError(http.StatusNotFound, "version not found")
		}
	} else if doc, err := h.svc.EffectiveDocument(ctx, id); err == nil {
		selected = doc
	}

	return c.JSON(http.StatusOK, FromScript(sc, versions, selected))
}
