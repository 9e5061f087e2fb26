package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"natours/src/db"
	"natours/src/middlewares"
	"natours/src/models"
	"natours/src/query"
	"natours/src/types"
	"natours/src/utils"
)

// readOnlyKeys are never taken from request bodies.
var readOnlyKeys = []string{"id", "createdAt", "updatedAt"}

type Names struct {
	Singular string
	Plural   string
}

// Hooks customize the generic handlers for one model. Every hook is
// optional; a returned error aborts the request.
type Hooks[T any] struct {
	BeforeCreate func(ctx *gin.Context, doc *T) error
	BeforeUpdate func(ctx *gin.Context, old, doc *T) error
	// AfterWrite runs after a create (old is nil) or an update.
	AfterWrite  func(ctx *gin.Context, old, doc *T) error
	AfterDelete func(ctx *gin.Context, doc *T) error
	AfterFind   func(ctx *gin.Context, doc *T) error
}

// Factory builds the list, get, create, update and delete handlers of a
// resource.
type Factory[T any] struct {
	coll  db.Collection[T]
	names Names
	hooks Hooks[T]
}

func NewFactory[T any](coll db.Collection[T], names Names, hooks Hooks[T]) *Factory[T] {
	return &Factory[T]{coll: coll, names: names, hooks: hooks}
}

func (f *Factory[T]) GetAll() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		spec := query.Parse(ctx.Request.URL.Query(), query.ExcludedFields...)
		for field, value := range ctx.GetStringMapString(presetsKey) {
			spec.Where(field, value)
		}
		docs, err := f.coll.Find(ctx.Request.Context(), spec)
		if err != nil {
			middlewares.Fail(ctx, err)
			return
		}
		items, err := query.Project(docs, spec)
		if err != nil {
			middlewares.Fail(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{
			"status":  types.StatusSuccess,
			"results": len(docs),
			"data":    gin.H{f.names.Plural: items},
		})
	}
}

func (f *Factory[T]) GetOne(populate ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id, err := utils.ParseID("id", ctx.Param("id"))
		if err != nil {
			middlewares.Fail(ctx, err)
			return
		}
		doc, err := f.coll.FindByID(ctx.Request.Context(), id, populate...)
		if err != nil {
			middlewares.Fail(ctx, f.notFound(err))
			return
		}
		if f.hooks.AfterFind != nil {
			if err := f.hooks.AfterFind(ctx, doc); err != nil {
				middlewares.Fail(ctx, err)
				return
			}
		}
		respond(ctx, http.StatusOK, gin.H{f.names.Singular: doc})
	}
}

func (f *Factory[T]) CreateOne() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		body, err := readBody(ctx)
		if err != nil {
			middlewares.Fail(ctx, err)
			return
		}
		doc := new(T)
		if err := json.Unmarshal(body, doc); err != nil {
			middlewares.Fail(ctx, err)
			return
		}
		if f.hooks.BeforeCreate != nil {
			if err := f.hooks.BeforeCreate(ctx, doc); err != nil {
				middlewares.Fail(ctx, err)
				return
			}
		}
		if err := models.Validate(doc); err != nil {
			middlewares.Fail(ctx, err)
			return
		}
		if err := f.coll.Create(ctx.Request.Context(), doc); err != nil {
			middlewares.Fail(ctx, err)
			return
		}
		if f.hooks.AfterWrite != nil {
			if err := f.hooks.AfterWrite(ctx, nil, doc); err != nil {
				middlewares.Fail(ctx, err)
				return
			}
		}
		respond(ctx, http.StatusCreated, gin.H{f.names.Singular: doc})
	}
}

func (f *Factory[T]) UpdateOne() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id, err := utils.ParseID("id", ctx.Param("id"))
		if err != nil {
			middlewares.Fail(ctx, err)
			return
		}
		body, err := readBody(ctx)
		if err != nil {
			middlewares.Fail(ctx, err)
			return
		}
		var old T
		doc, err := f.coll.FindByIDAndUpdate(ctx.Request.Context(), id, func(doc *T) error {
			old = *doc
			if err := json.Unmarshal(body, doc); err != nil {
				return err
			}
			if f.hooks.BeforeUpdate != nil {
				if err := f.hooks.BeforeUpdate(ctx, &old, doc); err != nil {
					return err
				}
			}
			return models.Validate(doc)
		})
		if err != nil {
			middlewares.Fail(ctx, f.notFound(err))
			return
		}
		if f.hooks.AfterWrite != nil {
			if err := f.hooks.AfterWrite(ctx, &old, doc); err != nil {
				middlewares.Fail(ctx, err)
				return
			}
		}
		respond(ctx, http.StatusOK, gin.H{f.names.Singular: doc})
	}
}

func (f *Factory[T]) DeleteOne() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id, err := utils.ParseID("id", ctx.Param("id"))
		if err != nil {
			middlewares.Fail(ctx, err)
			return
		}
		doc, err := f.coll.FindByIDAndDelete(ctx.Request.Context(), id)
		if err != nil {
			middlewares.Fail(ctx, f.notFound(err))
			return
		}
		if f.hooks.AfterDelete != nil {
			if err := f.hooks.AfterDelete(ctx, doc); err != nil {
				middlewares.Fail(ctx, err)
				return
			}
		}
		ctx.Status(http.StatusNoContent)
	}
}

func (f *Factory[T]) notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NewAppError(fmt.Sprintf("Invalid %s ID!", f.names.Singular), http.StatusNotFound)
	}
	return err
}

// readBody returns the JSON document of the request without its read-only
// keys. Upload handlers may have prepared the document already.
func readBody(ctx *gin.Context) ([]byte, error) {
	fields := map[string]any{}
	if ctx.ContentType() != "multipart/form-data" {
		raw, err := ctx.GetRawData()
		if err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &fields); err != nil {
				return nil, err
			}
		}
	}
	if patch, ok := ctx.Get(patchKey); ok {
		for k, v := range patch.(map[string]any) {
			fields[k] = v
		}
	}
	for _, k := range readOnlyKeys {
		delete(fields, k)
	}
	return json.Marshal(fields)
}
