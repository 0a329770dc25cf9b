package controllers

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anacarla/crm-api/apperrors"
	"github.com/anacarla/crm-api/config"
	"github.com/anacarla/crm-api/repositories"
)

func init() {
	// report json names in validation details
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	}
}

// respondOK writes the success envelope
func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes the error envelope for err. Internal and transient
// failures are logged; their cause never reaches the client.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		config.LogError(config.GetLogger().WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}), "controllers", c.HandlerName(), nil, err)
	}
	_ = c.Error(err)

	body := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if appErr.Details != nil && appErr.StatusCode < http.StatusInternalServerError {
		body["details"] = appErr.Details
	}
	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
		"success": false,
		"error":   body,
	})
}

// bindError converts a gin binding failure into a validation error. Field
// level failures are reported as field -> rule.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fieldPath(fe)] = fe.Tag()
		}
		return apperrors.Validation("Invalid request data").WithDetails(details)
	}
	return apperrors.Validation("Invalid request data").WithDetails(err.Error())
}

// fieldPath drops the top level struct name from the namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// bindJSON binds the request body into req and responds on failure
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, bindError(err))
		return false
	}
	return true
}

// uuidParam parses the named path parameter and responds on failure
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apperrors.Validationf("invalid %s", name).WithDetails(map[string]string{name: "uuid"}))
		return uuid.Nil, false
	}
	return id, true
}

// pageQuery reads the 0-based page and size query parameters
func pageQuery(c *gin.Context) (repositories.Page, bool) {
	var page repositories.Page
	for name, dst := range map[string]*int{"page": &page.Number, "size": &page.Size} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, apperrors.Validationf("invalid %s", name).WithDetails(map[string]string{name: "min=0"}))
			return page, false
		}
		*dst = n
	}
	return page, true
}

// boolQuery reads an optional boolean query parameter
func boolQuery(c *gin.Context, name string) (*bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		respondError(c, apperrors.Validationf("invalid %s", name).WithDetails(map[string]string{name: "boolean"}))
		return nil, false
	}
	return &v, true
}
