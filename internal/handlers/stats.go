package handlers

import (
	"net/http"
	"strconv"

	dom "github.com/rohithreddydev/taskforge-cloud-platform/internal/domain"
	"github.com/rohithreddydev/taskforge-cloud-platform/internal/dto"
	"github.com/rohithreddydev/taskforge-cloud-platform/internal/service"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	svc *service.StatsService
}

func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// Get godoc
// @Summary      Aggregate task statistics
// @Description  Counts are cached for a short TTL and may lag recent writes.
// @Tags         stats
// @Produce      json
// @Success      200  {object}  dto.StatsResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /stats [get]
func (h *StatsHandler) Get(c *gin.Context) {
	sum, err := h.svc.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	breakdown := make(map[string]int64, len(sum.ByPriority))
	for p := dom.PriorityLow; p <= dom.PriorityHigh; p++ {
		breakdown[strconv.Itoa(p)] = sum.ByPriority[p]
	}
	c.JSON(http.StatusOK, dto.StatsResponse{
		TotalTasks:        sum.Total,
		CompletedTasks:    sum.Completed,
		PendingTasks:      sum.Pending,
		CompletionRate:    sum.CompletionRate,
		PriorityBreakdown: breakdown,
		TasksCreatedToday: sum.CreatedToday,
		Timestamp:         sum.GeneratedAt,
	})
}
