package middlewares

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"natours/src/types"
)

const uniqueViolation = "23505"

var pageErrorMessages = map[int]string{
	http.StatusUnauthorized: "You are not logged in!",
	http.StatusForbidden:    "You do not have access to this page!",
	http.StatusNotFound:     "Page not found!",
}

var duplicateKey = regexp.MustCompile(`Key \(([^)]+)\)=`)

// Fail records err for ErrorHandler and stops the chain.
func Fail(ctx *gin.Context, err error) {
	_ = ctx.Error(err)
	ctx.Abort()
}

// ErrorHandler renders the last error recorded on the context. API paths get
// the JSON envelope; pages get the error template.
func ErrorHandler(isProd bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()
		if len(ctx.Errors) == 0 || ctx.Writer.Written() {
			return
		}
		err := ctx.Errors.Last().Err
		appErr := Normalize(err)
		if appErr.StatusCode >= http.StatusInternalServerError && !isProd {
			log.Printf("[Error] %s %s: %s\n", ctx.Request.Method, ctx.Request.URL.Path, err.Error())
		}
		if strings.HasPrefix(ctx.Request.URL.Path, "/api") {
			ctx.JSON(appErr.StatusCode, gin.H{"status": appErr.Status, "message": appErr.Message})
			return
		}
		ctx.HTML(appErr.StatusCode, "error.html", gin.H{
			"title":   strconv.Itoa(appErr.StatusCode),
			"message": pageErrorMessages[appErr.StatusCode],
			"user":    CurrentUser(ctx),
		})
	}
}

// NoRoute reports unknown paths through ErrorHandler.
func NoRoute(ctx *gin.Context) {
	Fail(ctx, types.NewAppError(fmt.Sprintf("Invalid route: %s", ctx.Request.URL.RequestURI()), http.StatusNotFound))
}

// Normalize maps any error to the client visible AppError.
func Normalize(err error) *types.AppError {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return validationError(validationErrs)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return duplicateError(pgErr)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return types.NewAppError("Duplicated field value. Use another value", http.StatusBadRequest)
	}
	var castErr *types.CastError
	if errors.As(err, &castErr) {
		return types.NewAppError(castErr.Error(), http.StatusBadRequest)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NewAppError("No document found with that ID", http.StatusNotFound)
	}
	if errors.Is(err, jwt.ErrTokenExpired) {
		return types.NewAppError("Token has expired", http.StatusUnauthorized)
	}
	if isTokenError(err) {
		return types.NewAppError("Invalid token", http.StatusUnauthorized)
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return types.NewAppError(fmt.Sprintf("Request body too large. The limit is %d bytes", maxBytesErr.Limit), http.StatusRequestEntityTooLarge)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.Is(err, http.ErrNotMultipart) {
		return types.NewAppError("Invalid request body", http.StatusBadRequest)
	}
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return types.NewAppError("Invalid request body", http.StatusBadRequest)
		}
		return types.NewAppError(fmt.Sprintf("Invalid %s: expected %s", typeErr.Field, typeErr.Type.String()), http.StatusBadRequest)
	}
	return types.NewAppError("", http.StatusInternalServerError)
}

func isTokenError(err error) bool {
	for _, target := range []error{
		jwt.ErrTokenMalformed,
		jwt.ErrTokenUnverifiable,
		jwt.ErrTokenSignatureInvalid,
		jwt.ErrTokenInvalidClaims,
		jwt.ErrTokenInvalidSubject,
		jwt.ErrTokenRequiredClaimMissing,
		jwt.ErrTokenNotValidYet,
		jwt.ErrTokenUsedBeforeIssued,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validationError(errs validator.ValidationErrors) *types.AppError {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return types.NewAppError("Invalid input data: "+strings.Join(msgs, ". "), http.StatusBadRequest)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "eqfield":
		return fmt.Sprintf("%s must match %s", field, lowerFirst(fe.Param()))
	case "ltfield":
		return fmt.Sprintf("%s must be below %s", field, lowerFirst(fe.Param()))
	case "lnglat":
		return fmt.Sprintf("%s must be [lng, lat]", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}

func duplicateError(pgErr *pgconn.PgError) *types.AppError {
	fields := []string{pgErr.ConstraintName}
	if m := duplicateKey.FindStringSubmatch(pgErr.Detail); m != nil {
		fields = strings.Split(m[1], ", ")
	}
	noun, adj := "value", "another"
	if len(fields) > 1 {
		noun, adj = "values", "other"
	}
	return types.NewAppError(fmt.Sprintf("Duplicated field %s: %s. Use %s %s", noun, strings.Join(fields, ", "), adj, noun), http.StatusBadRequest)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
