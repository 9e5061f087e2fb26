package models

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
		v.RegisterValidation("lnglat", lngLatValidatorFunc)
	}
}

// Validate runs the binding rules of a document, then its own Validate
// method when it has one.
func Validate(obj any) error {
	if err := binding.Validator.ValidateStruct(obj); err != nil {
		return err
	}
	if v, ok := obj.(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}

var lngLatValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	coords, ok := fl.Field().Interface().([]float64)
	if !ok {
		return false
	}
	return validLngLat(coords)
}

func validLngLat(coords []float64) bool {
	if len(coords) != 2 {
		return false
	}
	lng, lat := coords[0], coords[1]
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}
