package controllers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"natours/src/middlewares"
	"natours/src/types"
	"natours/src/utils"
)

const (
	presetsKey = "presets"
	patchKey   = "patch"
)

func respond(ctx *gin.Context, code int, data gin.H) {
	ctx.JSON(code, gin.H{"status": types.StatusSuccess, "data": data})
}

// NestedID copies the :id param of a parent route into a preset filter on
// field, e.g. /tours/:id/reviews lists the reviews of one tour.
func NestedID(field string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id, err := utils.ParseID("id", ctx.Param("id"))
		if err != nil {
			middlewares.Fail(ctx, err)
			return
		}
		presets := ctx.GetStringMapString(presetsKey)
		if presets == nil {
			presets = map[string]string{}
		}
		presets[field] = fmt.Sprint(id)
		ctx.Set(presetsKey, presets)
		ctx.Next()
	}
}

// NestedValue returns the parent id preset by NestedID for field.
func NestedValue(ctx *gin.Context, field string) (uint, bool) {
	raw, ok := ctx.GetStringMapString(presetsKey)[field]
	if !ok {
		return 0, false
	}
	id, err := utils.ParseID(field, raw)
	return id, err == nil
}

// setPatch adds a value to the update document built by upload handlers.
func setPatch(ctx *gin.Context, key string, value any) {
	patch, _ := ctx.Get(patchKey)
	m, ok := patch.(map[string]any)
	if !ok {
		m = map[string]any{}
	}
	m[key] = value
	ctx.Set(patchKey, m)
}

// baseURL is the scheme and host the request was made to.
func baseURL(ctx *gin.Context) string {
	scheme := "http"
	if ctx.Request.TLS != nil || ctx.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, ctx.Request.Host)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// formFiles returns the uploaded files of field, nil when the request has
// none.
func formFiles(ctx *gin.Context, field string) ([]*multipart.FileHeader, error) {
	if ctx.ContentType() != "multipart/form-data" {
		return nil, nil
	}
	form, err := ctx.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	return form.File[field], nil
}
