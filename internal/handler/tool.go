package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sakif/toolhub/internal/model"
	"github.com/sakif/toolhub/internal/service"
)

// ToolHandler serves the /tools routes.
type ToolHandler struct {
	tools  *service.ToolService
	search *service.SearchService
	logger *zap.Logger
}

func NewToolHandler(tools *service.ToolService, search *service.SearchService, logger *zap.Logger) *ToolHandler {
	return &ToolHandler{
		tools:  tools,
		search: search,
		logger: logger,
	}
}

// Routes mounts the tool endpoints on r. Static segments are registered
// before /{id}, but chi matches them first regardless of order.
func (h *ToolHandler) Routes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Get("/search", h.HandleSearch)
	r.Get("/ai_search", h.HandleAISearch)
	r.Get("/{id}", h.HandleGet)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
}

// ToolCreateRequest is the body of POST /tools.
type ToolCreateRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Category    string  `json:"category"`
	URL         string  `json:"url"`
}

// HandleList godoc
//
//	@Summary	List tools in insertion order
//	@Tags		tools
//	@Produce	json
//	@Param		skip	query		int	false	"rows to skip"	default(0)
//	@Param		limit	query		int	false	"page size"		default(10)
//	@Success	200		{array}		model.Tool
//	@Failure	400		{object}	ErrorResponse
//	@Router		/tools [get]
func (h *ToolHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	tools, err := h.tools.List(r.Context(), skip, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

// HandleSearch godoc
//
//	@Summary	Filter tools by name and/or category substring
//	@Tags		tools
//	@Produce	json
//	@Param		name		query		string	false	"case-insensitive name substring"
//	@Param		category	query		string	false	"case-insensitive category substring"
//	@Param		skip		query		int		false	"rows to skip"	default(0)
//	@Param		limit		query		int		false	"page size"		default(10)
//	@Success	200			{array}		model.Tool
//	@Failure	400			{object}	ErrorResponse
//	@Router		/tools/search [get]
func (h *ToolHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	tools, err := h.tools.Search(r.Context(), q.Get("name"), q.Get("category"), skip, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

// HandleAISearch godoc
//
//	@Summary	Rank tools by semantic similarity to a query
//	@Tags		tools
//	@Produce	json
//	@Param		q		query		string	true	"free-text query"
//	@Param		top_k	query		int		false	"number of results"	default(5)
//	@Success	200		{array}		model.Tool
//	@Failure	400		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse	"empty catalog"
//	@Failure	502		{object}	ErrorResponse	"embedding model failed"
//	@Router		/tools/ai_search [get]
func (h *ToolHandler) HandleAISearch(w http.ResponseWriter, r *http.Request) {
	topK, err := intParam(r, "top_k", service.DefaultTopK)
	if err != nil {
		writeError(w, err)
		return
	}

	tools, err := h.search.AISearch(r.Context(), r.URL.Query().Get("q"), topK)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

// HandleGet godoc
//
//	@Summary	Get one tool
//	@Tags		tools
//	@Produce	json
//	@Param		id	path		int	true	"tool id"
//	@Success	200	{object}	model.Tool
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/tools/{id} [get]
func (h *ToolHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	tool, err := h.tools.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

// HandleCreate godoc
//
//	@Summary	Create a tool
//	@Tags		tools
//	@Accept		json
//	@Produce	json
//	@Param		tool	body		ToolCreateRequest	true	"new tool"
//	@Success	200		{object}	model.Tool
//	@Failure	400		{object}	ErrorResponse
//	@Failure	409		{object}	ErrorResponse	"url already exists"
//	@Router		/tools [post]
func (h *ToolHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req ToolCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debug("rejected create body", zap.Error(err))
		writeError(w, err)
		return
	}

	tool, err := h.tools.Create(r.Context(), service.ToolInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		URL:         req.URL,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

// HandleUpdate godoc
//
//	@Summary		Partially update a tool
//	@Description	Absent or null fields are left unchanged. An empty description clears it.
//	@Tags			tools
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int					true	"tool id"
//	@Param			tool	body		model.ToolUpdate	true	"fields to change"
//	@Success		200		{object}	model.Tool
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/tools/{id} [put]
func (h *ToolHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var upd model.ToolUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, err)
		return
	}

	tool, err := h.tools.Update(r.Context(), id, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

// HandleDelete godoc
//
//	@Summary	Delete a tool
//	@Tags		tools
//	@Produce	json
//	@Param		id	path		int	true	"tool id"
//	@Success	200	{object}	DetailResponse
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/tools/{id} [delete]
func (h *ToolHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.tools.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DetailResponse{Detail: "Tool deleted successfully"})
}

func pageParams(r *http.Request) (skip, limit int, err error) {
	if skip, err = intParam(r, "skip", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = intParam(r, "limit", service.DefaultListLimit); err != nil {
		return 0, 0, err
	}
	return skip, limit, nil
}
