// Project HTTP handlers.
//
// This file exposes the civic-project surface that feeds and reads the
// priority scorer:
//   - GET  /projects            (ranked by score, paginated)
//   - POST /projects/:id/votes  (increments the vote count the scorer reads)
//
// Scores are only ever written by the scorer's scheduled recompute; voting
// does not touch them inline, so a vote becomes visible in the ranking on
// the next scoring pass.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/domain"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/repo"
)

// ListProjectsResponse contains a score-ordered page of projects.
type ListProjectsResponse struct {
	Projects   []domain.Project `json:"projects"`
	Pagination Pagination       `json:"pagination"`
}

// ListProjects godoc
// @ID          listProjects
// @Summary     List civic projects by priority
// @Description Returns projects ordered by descending priority score.
// @Tags        Projects
// @Produce     json
// @Param       page       query  int  false "Page number"    minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page" minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListProjectsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /projects [get]
func (h *Handlers) ListProjects(c *gin.Context) {
	ctx := c.Request.Context()

	page, pageSize := clampPagination(c)
	offset := (page - 1) * pageSize

	total, err := repo.CountProjects(ctx, h.ingest.DB)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	items, err := repo.ListProjectsByScore(ctx, h.ingest.DB, offset, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListProjectsResponse{
		Projects: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// PostProjectVote godoc
// @ID          postProjectVote
// @Summary     Vote for a project
// @Description Increments the project's vote count. The priority score picks
// @Description the vote up on the next scheduled recompute.
// @Tags        Projects
// @Produce     json
// @Param       id  path  string  true  "Project ID"
// @Success     204  "Vote recorded"
// @Failure     404  {object} handlers.ErrorResponse "Project not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /projects/{id}/votes [post]
func (h *Handlers) PostProjectVote(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if err := repo.IncrementProjectVotes(ctx, h.ingest.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "project not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}
