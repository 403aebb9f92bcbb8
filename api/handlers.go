package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"pocketplan/domain"
)

// taskMaxSize bounds a single task body; anything larger is rejected.
const taskMaxSize = 64 * 1024

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, logger *log.Logger) {
	e.GET("/tasks", getTasks(store, logger))
	e.POST("/tasks", postTask(store))
	e.PUT("/tasks/:id", putTask(store))
	e.DELETE("/tasks/:id", deleteTask(store))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		//TODO: ping the task table before reporting healthy
		return c.NoContent(http.StatusOK)
	}
}

func getTasks(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newListRequestMetrics(ctx, logger)
		c.SetRequest(c.Request().WithContext(spanCtx))
		ctx = spanCtx
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		fetchStart := time.Now()
		tasks, fetchErr := store.ListTasks(ctx)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		metrics.SetTasksReturned(len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasks)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func postTask(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		task, err := decodeTask(c)
		if err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := task.Validate(); err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}
		if task.ID == "" {
			task.ID = uuid.NewString()
		}

		saved, err := store.CreateTask(ctx, task)
		if err != nil {
			if errors.Is(err, domain.ErrTaskExists) {
				return c.String(http.StatusConflict, "task id already exists")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusCreated, saved)
	}
}

func putTask(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		task, err := decodeTask(c)
		if err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		// The path segment names the task; a diverging body id is ignored.
		task.ID = c.Param("id")
		if err := task.Validate(); err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}

		saved, err := store.UpdateTask(ctx, task)
		if err != nil {
			if errors.Is(err, domain.ErrTaskNotFound) {
				return c.String(http.StatusNotFound, "task not found")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, saved)
	}
}

func deleteTask(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		if err := store.DeleteTask(ctx, c.Param("id")); err != nil {
			if errors.Is(err, domain.ErrTaskNotFound) {
				return c.String(http.StatusNotFound, "task not found")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func decodeTask(c echo.Context) (domain.Task, error) {
	lr := io.LimitReader(c.Request().Body, taskMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()

	var task domain.Task
	if err := dec.Decode(&task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}
