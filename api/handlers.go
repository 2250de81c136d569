// Package api exposes the mirrored board over a local HTTP API: the
// projected columns, the drag-move operation and the refresh trigger.
package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"board-sync/board"
	"board-sync/domain"
)

const requestMaxSize = 1 << 20

// Register wires up all routes on the provided Echo instance.
func Register(e *echo.Echo, b Board, auth Authenticator, logger *log.Logger) {
	e.GET("/api/board", getBoard(b, auth))
	e.GET("/api/tasks", getTasks(b, auth))
	e.POST("/api/tasks", createTask(b, auth))
	e.PUT("/api/tasks/:id", updateTask(b, auth))
	e.DELETE("/api/tasks/:id", deleteTask(b, auth))
	e.POST("/api/tasks/:id/move", moveTask(b, auth, logger))
	e.POST("/api/refresh", refresh(b, auth))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func authorize(c echo.Context, auth Authenticator) error {
	_, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return c.String(http.StatusUnauthorized, err.Error())
	}
	return nil
}

// filtersFromQuery builds view criteria from query parameters; absent
// parameters leave the corresponding filter disabled.
func filtersFromQuery(c echo.Context) (board.Filters, bool) {
	f := board.Filters{
		List:     c.QueryParam("list"),
		Assignee: c.QueryParam("assignee"),
		Priority: c.QueryParam("priority"),
	}
	switch strings.ToLower(c.QueryParam("sortBy")) {
	case "deadline":
		f.SortBy = board.SortDeadline
	case "priority":
		f.SortBy = board.SortPriority
	}
	f.Desc = strings.EqualFold(c.QueryParam("order"), "desc")
	any := f.List != "" || f.Assignee != "" || f.Priority != "" || f.SortBy != board.SortNone
	return f, any
}

func getBoard(b Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := authorize(c, auth); err != nil {
			return err
		}
		if f, any := filtersFromQuery(c); any {
			return c.JSON(http.StatusOK, b.View(f))
		}
		// No criteria: serve the working projection, which carries any
		// optimistic drag ordering.
		return c.JSON(http.StatusOK, b.Columns())
	}
}

func getTasks(b Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := authorize(c, auth); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, b.Snapshot())
	}
}

func createTask(b Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := authorize(c, auth); err != nil {
			return err
		}
		var payload domain.Task
		if err := decodeBody(c, &payload); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		created, err := b.Create(c.Request().Context(), c.QueryParam("list"), payload)
		if err != nil {
			return c.String(http.StatusBadGateway, err.Error())
		}
		return c.JSON(http.StatusCreated, created)
	}
}

func updateTask(b Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := authorize(c, auth); err != nil {
			return err
		}
		var payload domain.Task
		if err := decodeBody(c, &payload); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		updated, err := b.Update(c.Request().Context(), c.Param("id"), payload)
		if err != nil {
			return c.String(http.StatusBadGateway, err.Error())
		}
		return c.JSON(http.StatusOK, updated)
	}
}

func deleteTask(b Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := authorize(c, auth); err != nil {
			return err
		}
		if err := b.Delete(c.Request().Context(), c.Param("id")); err != nil {
			return c.String(http.StatusBadGateway, err.Error())
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type moveRequest struct {
	Status string `json:"status"`
	Before string `json:"before,omitempty"`
}

func moveTask(b Board, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := authorize(c, auth); err != nil {
			return err
		}
		var req moveRequest
		if err := decodeBody(c, &req); err != nil || req.Status == "" {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		id := c.Param("id")
		task, ok := b.GetByIdentity(id)
		if !ok {
			return c.String(http.StatusNotFound, "unknown task")
		}

		b.Drop(c.Request().Context(), board.Drop{
			TaskID: id,
			From:   string(task.Status),
			To:     req.Status,
			Before: req.Before,
		})

		moved, ok := b.GetByIdentity(id)
		if !ok {
			return c.String(http.StatusNotFound, "unknown task")
		}
		logger.WithFields(log.Fields{"task": id, "status": moved.Status}).Debug("move handled")
		return c.JSON(http.StatusOK, moved)
	}
}

func refresh(b Board, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := authorize(c, auth); err != nil {
			return err
		}
		if err := b.Refresh(c.Request().Context()); err != nil {
			return c.String(http.StatusBadGateway, err.Error())
		}
		return c.NoContent(http.StatusAccepted)
	}
}

func decodeBody(c echo.Context, out any) error {
	lr := io.LimitReader(c.Request().Body, requestMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	return dec.Decode(out)
}
