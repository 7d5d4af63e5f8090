package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	dom "github.com/rohithreddydev/taskforge-cloud-platform/internal/domain"
	"github.com/rohithreddydev/taskforge-cloud-platform/internal/dto"
	"github.com/rohithreddydev/taskforge-cloud-platform/internal/service"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	svc *service.TaskService
}

func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// Create godoc
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateTaskRequest  true  "Task body"
// @Success      201   {object}  dto.TaskResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      429   {object}  dto.ErrorResponse
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Error(dto.KindValidation, err.Error()))
		return
	}
	t, err := h.svc.Create(c.Request.Context(), toTaskInput(req))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, taskToResponse(t))
}

// List godoc
// @Summary      List tasks with optional filters
// @Tags         tasks
// @Produce      json
// @Param        search     query  string  false  "Substring match on title or description"
// @Param        completed  query  bool    false  "Exact match on completed"
// @Param        priority   query  int     false  "Exact match on priority (1..3)"
// @Success      200  {array}   dto.TaskResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	f, ok := parseFilter(c)
	if !ok {
		return
	}
	list, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasksToResponses(list))
}

// GetByID godoc
// @Summary      Get a task by ID
// @Tags         tasks
// @Produce      json
// @Param        id   path      int  true  "Task ID"
// @Success      200  {object}  dto.TaskResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(t))
}

// Update godoc
// @Summary      Replace a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        id    path      int  true  "Task ID"
// @Param        body  body      dto.UpdateTaskRequest  true  "Full replacement"
// @Success      200   {object}  dto.TaskResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      429   {object}  dto.ErrorResponse
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Error(dto.KindValidation, err.Error()))
		return
	}
	t, err := h.svc.Update(c.Request.Context(), id, service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Completed:   req.Completed,
		DueDate:     req.DueDate.Ptr(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(t))
}

// Toggle godoc
// @Summary      Flip a task's completed flag
// @Tags         tasks
// @Produce      json
// @Param        id   path      int  true  "Task ID"
// @Success      200  {object}  dto.TaskResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      429  {object}  dto.ErrorResponse
// @Router       /tasks/{id}/toggle [post]
func (h *TaskHandler) Toggle(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	t, err := h.svc.Toggle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskToResponse(t))
}

// Delete godoc
// @Summary      Delete a task
// @Tags         tasks
// @Param        id   path  int  true  "Task ID"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      429  {object}  dto.ErrorResponse
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateBatch godoc
// @Summary      Create many tasks atomically
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        body  body      dto.BatchCreateRequest  true  "Tasks"
// @Success      201   {array}   dto.TaskResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      429   {object}  dto.ErrorResponse
// @Router       /tasks/batch [post]
func (h *TaskHandler) CreateBatch(c *gin.Context) {
	var req dto.BatchCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.Error(dto.KindValidation, err.Error()))
		return
	}
	ins := make([]service.TaskInput, 0, len(req.Tasks))
	for _, item := range req.Tasks {
		ins = append(ins, toTaskInput(item))
	}
	created, err := h.svc.CreateBatch(c.Request.Context(), ins)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tasksToResponses(created))
}

func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, dto.Error(dto.KindValidation, "invalid id"))
		return 0, false
	}
	return id, true
}

// parseFilter rejects malformed filter values instead of silently ignoring
// them: a typo'd filter returning the full set would look like data loss.
func parseFilter(c *gin.Context) (dom.TaskFilter, bool) {
	f := dom.TaskFilter{Search: c.Query("search")}

	if raw, ok := c.GetQuery("completed"); ok {
		v, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.Error(dto.KindValidation, "completed must be true or false"))
			return dom.TaskFilter{}, false
		}
		f.Completed = &v
	}
	if raw, ok := c.GetQuery("priority"); ok {
		p, err := strconv.Atoi(raw)
		if err != nil || !dom.ValidPriority(p) {
			c.JSON(http.StatusBadRequest, dto.Error(dto.KindValidation, "priority must be 1, 2 or 3"))
			return dom.TaskFilter{}, false
		}
		f.Priority = &p
	}
	return f, true
}

func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Kind:    dto.KindValidation,
			Message: verr.Error(),
			Fields:  verr.Fields,
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.Error(dto.KindNotFound, "task not found"))
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, dto.Error(dto.KindInternal, "internal error"))
	}
}

func toTaskInput(req dto.CreateTaskRequest) service.TaskInput {
	return service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate.Ptr(),
	}
}

func taskToResponse(t dom.Task) dto.TaskResponse {
	return dto.TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
	}
}

func tasksToResponses(list []dom.Task) []dto.TaskResponse {
	out := make([]dto.TaskResponse, len(list))
	for i := range list {
		out[i] = taskToResponse(list[i])
	}
	return out
}
