// Package response writes the JSON envelope every handler returns.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const internalMessage = "Internal server error"

type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Paged wraps a list with its paging metadata.
type Paged struct {
	Items any   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

var (
	development bool
	logger      = logrus.StandardLogger()
)

// Configure sets whether internal error messages reach clients and which
// logger records them.
func Configure(dev bool, log *logrus.Logger) {
	development = dev
	if log != nil {
		logger = log
	}
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

func Message(c *gin.Context, status int, msg string) {
	c.JSON(status, Envelope{Success: true, Message: msg})
}

func List(c *gin.Context, items any, total int64, page repository.Page) {
	page = page.Normalize()
	OK(c, Paged{Items: items, Total: total, Page: page.Page, Limit: page.Limit})
}

// Fail aborts with a failure envelope carrying msg.
func Fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Message: msg})
}

// Error maps err onto its HTTP status. Internal failures are logged and
// their message is hidden outside development.
func Error(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)

	if apperr.KindOf(err) != apperr.KindInternal {
		Fail(c, status, apperr.Message(err))
		return
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
	}).Error("Request failed")

	msg := internalMessage
	if development {
		msg = err.Error()
	}
	Fail(c, status, msg)
}

// BindError reports a request that could not be decoded or validated.
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		Fail(c, http.StatusBadRequest, validationMessage(verrs))
		return
	}
	Fail(c, http.StatusBadRequest, "Invalid request body")
}

func validationMessage(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, e.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, e.Param()))
		case "url", "http_url":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid http(s) URL", field))
		case "len":
			msgs = append(msgs, fmt.Sprintf("%s must be %s characters long", field, e.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s", field, e.Param()))
		case "yogalevel":
			msgs = append(msgs, fmt.Sprintf("%s must be beginner, intermediate, advanced or all", field))
		case "billingcycle":
			msgs = append(msgs, fmt.Sprintf("%s must be monthly, quarterly or yearly", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is not valid", field))
		}
	}
	return strings.Join(msgs, ", ")
}

// UseJSONNames makes validation errors report a field by its json key.
func UseJSONNames(v *validator.Validate) {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// PageFrom reads page and limit query parameters.
func PageFrom(c *gin.Context) repository.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return repository.Page{Page: page, Limit: limit}.Normalize()
}

// UintParam reads a positive numeric path parameter or writes a 400.
func UintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		Fail(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(v), true
}
