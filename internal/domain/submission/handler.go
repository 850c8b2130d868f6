package submission

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/edc/internal/platform/auth"
	"github.com/ehr/edc/internal/platform/crf"
	"github.com/ehr/edc/internal/platform/lookup"
	"github.com/ehr/edc/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireCRFRead())
	readGroup.GET("/forms", h.ListForms)
	readGroup.GET("/crfs/:form", h.ListRecords)

	// Monitors review; only the entry roles may validate or store.
	writeGroup := api.Group("", auth.RequireCRFEntry())
	writeGroup.POST("/crfs/:form/validate", h.ValidateRecord)
	writeGroup.POST("/crfs/:form", h.SubmitRecord)
}

// ValidationResponse is the 422 body of a rejected submission.
type ValidationResponse struct {
	Form   string            `json:"form"`
	Errors []crf.FieldError  `json:"errors"`
	Fields map[string]string `json:"fields"`
}

func (h *Handler) ListForms(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Forms())
}

func (h *Handler) ValidateRecord(c echo.Context) error {
	form := c.Param("form")
	rec, err := bindRecord(c)
	if err != nil {
		return err
	}
	if err := h.svc.Validate(c.Request().Context(), form, rec); err != nil {
		return h.failure(c, form, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"form": form, "valid": true})
}

func (h *Handler) SubmitRecord(c echo.Context) error {
	form := c.Param("form")
	rec, err := bindRecord(c)
	if err != nil {
		return err
	}
	id, err := h.svc.Submit(c.Request().Context(), form, rec)
	if err != nil {
		return h.failure(c, form, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"form": form, "id": id})
}

func (h *Handler) ListRecords(c echo.Context) error {
	pg := pagination.FromContext(c)
	recs, total, err := h.svc.List(c.Request().Context(), c.Param("form"), c.QueryParam("subject_identifier"), pg.Limit, pg.Offset)
	if err != nil {
		if errors.Is(err, ErrUnknownForm) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if recs == nil {
		recs = []crf.Record{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(recs, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL))
}

func (h *Handler) failure(c echo.Context, form string, err error) error {
	if vf, ok := crf.AsValidationFailed(err); ok {
		return c.JSON(http.StatusUnprocessableEntity, ValidationResponse{
			Form:   form,
			Errors: vf.Errors,
			Fields: vf.Map(),
		})
	}
	switch {
	case errors.Is(err, ErrUnknownForm):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, lookup.ErrUnknownRecordType):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	// A related record could not be read; the submission was not judged.
	return echo.NewHTTPError(http.StatusServiceUnavailable, "related records unavailable")
}

func bindRecord(c echo.Context) (crf.Record, error) {
	// Decoded directly: echo's binder would merge the :form path param
	// into a map target.
	var body map[string]interface{}
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid JSON body: "+err.Error())
	}
	if len(body) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "empty submission")
	}
	return crf.Record(body), nil
}
