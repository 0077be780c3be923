package validator

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
	strict    *bluemonday.Policy

	spaceRegex = regexp.MustCompile(`\s+`)
	urlRegex   = regexp.MustCompile(`^https?://[a-zA-Z0-9\-\.]+(:\d+)?(/.*)?$`)
)

var lessonTypes = map[string]struct{}{
	"video": {},
	"text":  {},
	"pdf":   {},
	"quiz":  {},
}

var courseLevels = map[string]struct{}{
	"beginner":     {},
	"intermediate": {},
	"advanced":     {},
}

func Init() {
	validate = validator.New()

	sanitizer = bluemonday.UGCPolicy()
	strict = bluemonday.StrictPolicy()

	registerCustomValidations(validate)

	if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
		registerCustomValidations(engine)
	}
}

func ensureInit() {
	if validate == nil || sanitizer == nil {
		Init()
	}
}

func registerCustomValidations(v *validator.Validate) {
	v.RegisterValidation("lesson_type", validateLessonType)
	v.RegisterValidation("course_level", validateCourseLevel)
	v.RegisterValidation("no_html", validateNoHTML)
}

func Validate(s interface{}) error {
	ensureInit()
	return validate.Struct(s)
}

// SanitizeHTML keeps user generated markup safe for rendering lesson content.
func SanitizeHTML(html string) string {
	ensureInit()
	return sanitizer.Sanitize(html)
}

// SanitizeString strips all markup.
func SanitizeString(s string) string {
	ensureInit()
	return strict.Sanitize(s)
}

func IsLessonType(value string) bool {
	_, ok := lessonTypes[value]
	return ok
}

func IsCourseLevel(value string) bool {
	_, ok := courseLevels[value]
	return ok
}

func validateLessonType(fl validator.FieldLevel) bool {
	return IsLessonType(fl.Field().String())
}

func validateCourseLevel(fl validator.FieldLevel) bool {
	return IsCourseLevel(fl.Field().String())
}

func validateNoHTML(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return !strings.Contains(value, "<") && !strings.Contains(value, ">")
}

func NormalizeSpaces(s string) string {
	return spaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// ValidateMediaURL accepts empty values; anything else must be an http(s) URL.
func ValidateMediaURL(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return true
	}
	return urlRegex.MatchString(url)
}
